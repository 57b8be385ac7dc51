/*
PURPOSE:
  Defines the 'list-channels' subcommand.
  Shows which channels would be evaluated by the next run.

REQUIREMENTS:
  User-specified:
  - List channels with their status.

  Implementation-discovered:
  - Useful validation step before full run (finds missing context files).

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Inspect()

ERROR HANDLING:
  - Returns error if the output root cannot be listed.

IMPLEMENTATION RULES:
  - Simple output to stdout.
  - Never calls a judge.

USAGE:
  forest-eval list-channels --output-root ./output

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/engine/discover.go

MAINTENANCE:
  - None.
*/

package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/daryltucker/forest-eval/internal/engine"
)

var listChannelsCmd = &cobra.Command{
	Use:   "list-channels",
	Short: "List channels and their evaluation status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyRunOverrides(cmd, cfg)

		statuses, err := engine.Inspect(cfg.OutputRoot, cfg.ContextRoot, cfg.ResultsDir)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CHANNEL\tSTATUS\tMODELS")
		for _, st := range statuses {
			fmt.Fprintf(w, "%s\t%s\t%d\n", st.Name, st.Status, st.ModelFiles)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(listChannelsCmd)
	listChannelsCmd.Flags().StringVar(&outputRootOverride, "output-root", "", "Directory with one sub-directory of generated outputs per channel")
	listChannelsCmd.Flags().StringVar(&contextRootOverride, "context-root", "", "Directory with <channel>_extract.json context files")
	listChannelsCmd.Flags().StringVar(&resultsDirOverride, "results-dir", "", "Directory for the JSON reports")
}
