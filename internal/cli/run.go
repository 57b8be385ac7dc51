/*
PURPOSE:
  Defines the 'run' subcommand.
  Executes the batch evaluation over every channel.

REQUIREMENTS:
  User-specified:
  - Evaluate all channels that do not have a report yet.
  - Specific flags for overrides.

  Implementation-discovered:
  - Need to load config first.
  - Apply flag overrides to config, then validate.
  - The judge and metrics are built here and handed to the engine.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Runner.Run()
  - Uses: internal/config, internal/judge, internal/metric

ERROR HANDLING:
  - Returns error if config load, validation or judge setup fails.
  - Per-channel failures are logged by the engine and do not fail the command.

IMPLEMENTATION RULES:
  - Setup flags in init() via addRunFlags (shared with root and single).
  - Logic: Load Config -> Override -> Validate -> Judge -> Metrics -> Engine.

USAGE:
  forest-eval run --judge-backend ollama --judge-model llama3.1:8b

SELF-HEALING INSTRUCTIONS:
  - Check flag names match Config yaml keys generally.

RELATED FILES:
  - internal/cli/root.go
  - internal/cli/single.go

MAINTENANCE:
  - Update when adding new CLI overrides.
*/

package cli

import (
	"github.com/spf13/cobra"

	"github.com/daryltucker/forest-eval/internal/config"
	"github.com/daryltucker/forest-eval/internal/engine"
	"github.com/daryltucker/forest-eval/internal/judge"
	"github.com/daryltucker/forest-eval/internal/metric"
	"github.com/daryltucker/forest-eval/internal/output"
)

var (
	outputRootOverride  string
	contextRootOverride string
	resultsDirOverride  string
	metricsOverride     []string
	backendOverride     string
	judgeModelOverride  string
	summaryFileOverride string
	metricsFileOverride string
	countTokens         bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate every channel that has no report yet",
	Long: `Evaluates every channel directory under the output root.
The process follows a strict protocol:
1. Discovery: Lists channels and the reports that already exist.
2. Context: Loads and truncates <channel>_extract.json from the context root.
3. Scoring: Renders and truncates every model output and runs each metric.

One report per channel is written to <results_dir>/<channel>_all_metrics.json.
Channels that already have a report are skipped, so an interrupted run can be resumed.`,
	Example: `  # Run with defaults (uses forest_eval.yaml)
  forest-eval run

  # Use a local Ollama judge
  forest-eval run --judge-backend ollama --judge-model qwen2.5:7b

  # Only score faithfulness, and keep a CSV summary
  forest-eval run --metrics faithfulness --summary-file summary.csv`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&outputRootOverride, "output-root", "", "Directory with one sub-directory of generated outputs per channel")
	cmd.Flags().StringVar(&contextRootOverride, "context-root", "", "Directory with <channel>_extract.json context files")
	cmd.Flags().StringVar(&resultsDirOverride, "results-dir", "", "Directory for the JSON reports")
	cmd.Flags().StringSliceVar(&metricsOverride, "metrics", nil, "Comma-separated list of metrics to run")
	cmd.Flags().StringVar(&backendOverride, "judge-backend", "", "Judge backend: openai, anthropic, azure or ollama")
	cmd.Flags().StringVar(&judgeModelOverride, "judge-model", "", "Model used by the judge backend")
	cmd.Flags().StringVar(&summaryFileOverride, "summary-file", "", "Append one CSV row per score to this file")
	cmd.Flags().StringVar(&metricsFileOverride, "metrics-file", "", "Write Prometheus run metrics to this file")
	cmd.Flags().BoolVar(&countTokens, "count-tokens", false, "Log tiktoken counts next to character lengths")
}

func applyRunOverrides(cmd *cobra.Command, cfg *config.Config) {
	if outputRootOverride != "" {
		cfg.OutputRoot = outputRootOverride
	}
	if contextRootOverride != "" {
		cfg.ContextRoot = contextRootOverride
	}
	if resultsDirOverride != "" {
		cfg.ResultsDir = resultsDirOverride
	}
	if len(metricsOverride) > 0 {
		cfg.Metrics = metricsOverride
	}
	if backendOverride != "" {
		cfg.Judge.Backend = backendOverride
	}
	if judgeModelOverride != "" {
		cfg.Judge.Model = judgeModelOverride
	}
	if summaryFileOverride != "" {
		cfg.SummaryFile = summaryFileOverride
	}
	if metricsFileOverride != "" {
		cfg.MetricsFile = metricsFileOverride
	}
	if cmd.Flags().Changed("count-tokens") {
		cfg.CountTokens = countTokens
	}
}

// newRunner turns a validated config into a ready engine.
func newRunner(cfg *config.Config) (*engine.Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	j, err := judge.New(cfg.Judge)
	if err != nil {
		return nil, err
	}
	metrics, err := metric.Build(cfg.Metrics, j)
	if err != nil {
		return nil, err
	}

	r := engine.New(cfg, metrics)
	output.Logger.Info("Starting evaluation", "run_id", r.RunID(), "judge", j.Name(), "judge_model", cfg.Judge.Model, "metrics", cfg.Metrics)
	return r, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	// 1. Load Config
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// 2. Overrides
	applyRunOverrides(cmd, cfg)

	// 3. Execution
	r, err := newRunner(cfg)
	if err != nil {
		return err
	}
	return r.Run(cmd.Context())
}
