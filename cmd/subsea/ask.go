package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"subsea_intel/pkg/core/assistant"
	"subsea_intel/pkg/models"
)

var askUser string

var askCmd = &cobra.Command{
	Use:   "ask <question...>",
	Short: "Ask the agent one question; report requests print the PDF link",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askUser, "user", "", "user id recorded on generated reports")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.Assistant.RunAgentConversation(ctx, assistant.Request{
		Messages: []models.ChatMessage{{Role: "user", Content: strings.Join(args, " ")}},
		UserID:   askUser,
	})
	if err != nil {
		return err
	}

	fmt.Println(resp.Answer)
	if resp.Report != nil {
		heading.Printf("\n%s\n", resp.Report.Title)
		fmt.Printf("  %d pages, %s\n", resp.Report.Pages, resp.Report.FileName)
		if resp.Report.URL != "" {
			ok.Printf("  %s\n", resp.Report.URL)
		}
	}
	for _, f := range resp.FollowUps {
		faint.Printf("  > %s\n", f)
	}
	for _, w := range resp.DataCoverage.Warnings {
		warn.Printf("warning: %s\n", w)
	}
	if resp.DataCoverage.Fallback {
		warn.Println("answered without the language model")
	}
	return nil
}
