/*
PURPOSE:
  Defines the 'single' subcommand.
  Scores one generated-output file of one channel.

REQUIREMENTS:
  User-specified:
  - Evaluate a fixed channel/model pair.
  - Flags for channel, model file and label.

  Implementation-discovered:
  - Shares judge and root overrides with 'run' via addRunFlags.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Runner.RunSingle()
  - Uses: internal/config

ERROR HANDLING:
  - Returns error if config, judge setup or any input file fails.

IMPLEMENTATION RULES:
  - Logic: Load Config -> Override -> Validate -> Judge -> Metrics -> RunSingle.

USAGE:
  forest-eval single --channel justinbieber --model-file <file> --label mistral

SELF-HEALING INSTRUCTIONS:
  - Check flag names match SingleConfig yaml keys.

RELATED FILES:
  - internal/cli/run.go
  - internal/engine/single.go

MAINTENANCE:
  - Update when SingleConfig gains fields.
*/

package cli

import (
	"github.com/spf13/cobra"
)

var (
	singleChannel   string
	singleModelFile string
	singleLabel     string
)

var singleCmd = &cobra.Command{
	Use:   "single",
	Short: "Evaluate one model output of one channel",
	Long: `Scores a single generated-output file against its channel context.
The context is cut to a fixed prefix and the output keeps only its string
fields. The report <channel>_<label>_all_metrics.json is always rewritten.`,
	Example: `  forest-eval single --channel justinbieber \
    --model-file justinbieber_mistralai_mistral-small-3.1-24b-instruct_free_analysis.json \
    --label mistral`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyRunOverrides(cmd, cfg)
		if singleChannel != "" {
			cfg.Single.Channel = singleChannel
		}
		if singleModelFile != "" {
			cfg.Single.ModelFile = singleModelFile
		}
		if singleLabel != "" {
			cfg.Single.Label = singleLabel
		}

		r, err := newRunner(cfg)
		if err != nil {
			return err
		}
		return r.RunSingle(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(singleCmd)
	addRunFlags(singleCmd)
	singleCmd.Flags().StringVar(&singleChannel, "channel", "", "Channel to evaluate")
	singleCmd.Flags().StringVar(&singleModelFile, "model-file", "", "Generated-output file name inside the channel directory")
	singleCmd.Flags().StringVar(&singleLabel, "label", "", "Label used in the report file name")
}
