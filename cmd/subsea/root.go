package main

import (
	"context"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"subsea_intel/pkg/app"
	"subsea_intel/pkg/config"
	"subsea_intel/pkg/logger"
)

var (
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:           "subsea",
	Short:         "Subsea market intelligence: imports, questions and reports",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.AddCommand(importCmd, askCmd, renderCmd, metricCmd)
}

var (
	heading = color.New(color.FgCyan, color.Bold)
	ok      = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
	faint   = color.New(color.Faint)
)

func newLogger() *logger.Logger {
	if !verbose {
		return logger.Nop()
	}
	log, err := logger.New("dev")
	if err != nil {
		return logger.Nop()
	}
	return log
}

func openApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, config.Load(), newLogger())
}
