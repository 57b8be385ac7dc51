/*
PURPOSE:
  Defines the 'list-metrics' subcommand.
  Prints the metric names accepted by --metrics.

REQUIREMENTS:
  User-specified:
  - List available metrics.

  Implementation-discovered:
  - Descriptions come from internal/metric so they never drift.

ARCHITECTURE INTEGRATION:
  - Calls: internal/metric.Names(), internal/metric.Describe()

ERROR HANDLING:
  - None; output only.

IMPLEMENTATION RULES:
  - Simple output to stdout.
  - Never builds a judge.

USAGE:
  forest-eval list-metrics

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/metric/metric.go

MAINTENANCE:
  - None.
*/

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daryltucker/forest-eval/internal/metric"
)

var listMetricsCmd = &cobra.Command{
	Use:   "list-metrics",
	Short: "List the metrics that can be passed to --metrics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range metric.Names() {
			fmt.Fprintf(cmd.OutOrStdout(), "- %s: %s\n", name, metric.Describe(name))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listMetricsCmd)
}
