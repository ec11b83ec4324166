package main

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"subsea_intel/pkg/core/report"
)

var (
	renderIn    string
	renderOut   string
	renderTitle string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a markdown report to PDF",
	RunE: func(cmd *cobra.Command, args []string) error {
		md, err := os.ReadFile(renderIn)
		if err != nil {
			return err
		}
		if len(md) == 0 {
			return errors.New("input is empty")
		}
		pdf, pages, err := report.Render(report.Document{
			Title:       renderTitle,
			Markdown:    string(md),
			GeneratedAt: time.Now(),
		})
		if err != nil {
			return err
		}
		if err := os.WriteFile(renderOut, pdf, 0o644); err != nil {
			return err
		}
		ok.Printf("wrote %s (%d pages)\n", renderOut, pages)
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderIn, "in", "", "markdown input file")
	renderCmd.Flags().StringVar(&renderOut, "out", "report.pdf", "PDF output file")
	renderCmd.Flags().StringVar(&renderTitle, "title", "Subsea market report", "report title")
	_ = renderCmd.MarkFlagRequired("in")
}
