package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"subsea_intel/pkg/core/forecast"
)

var metricUnit string

var metricCmd = &cobra.Command{
	Use:   "metric <text...>",
	Short: "Print the normalized forecast metric slug for a label",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		text := strings.Join(args, " ")
		fmt.Printf("%-8s %s\n", "metric", forecast.NormalizeForecastMetric(text))
		fmt.Printf("%-8s %s\n", "key", forecast.NormalizeMetricKey(text))
		if metricUnit != "" {
			fmt.Printf("%-8s %s\n", "unit", forecast.NormalizeForecastUnit(metricUnit))
		}
	},
}

func init() {
	metricCmd.Flags().StringVar(&metricUnit, "unit", "", "unit label to normalize")
}
