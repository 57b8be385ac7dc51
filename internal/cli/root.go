/*
PURPOSE:
  Defines the root Cobra command for the Forest Eval CLI.
  Handles global flags, environment loading and command initialization.

REQUIREMENTS:
  User-specified:
  - Provide a CLI interface.
  - Support global flags like --config and --env-file.
  - Running the binary without a subcommand evaluates every channel.

  Implementation-discovered:
  - Needs to expose an Execute() function for main.go.
  - API keys live in .env files next to the data, so the env file is loaded
    before any configuration is read.

ARCHITECTURE INTEGRATION:
  - Called by: cmd/forest-eval/main.go
  - Calls: Child commands (run, single, list-channels, list-metrics)
  - Modifies: Process environment (godotenv), output.Logger.

ERROR HANDLING:
  - Returns error to main.go for exit code handling.
  - A missing default .env is ignored; a missing explicit --env-file is an error.

IMPLEMENTATION RULES:
  - Use `PersistentFlags()` for flags available to all subcommands.
  - Keep Run logic in subcommands. Root reuses the batch command body.

USAGE:
  Called by main.go.

SELF-HEALING INSTRUCTIONS:
  - If adding new global flags, add them to init().

RELATED FILES:
  - cmd/forest-eval/main.go
  - internal/cli/run.go

MAINTENANCE:
  - Update when adding global configuration options.
*/

package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/daryltucker/forest-eval/internal/config"
	"github.com/daryltucker/forest-eval/internal/output"
)

const defaultEnvFile = ".env"

var (
	// cfgFile stores the path to the config file (if specified via flag)
	cfgFile   string
	envFile   string
	logLevel  string
	logFormat string

	rootCmd = &cobra.Command{
		Use:   "forest-eval",
		Short: "Score generated channel summaries with LLM-judged metrics",
		Long: `Evaluates the summaries that different models generated for each channel
against the channel's retrieved context, using answer relevancy, faithfulness
and hallucination metrics. Without a subcommand it behaves like 'run'.`,
		SilenceUsage:      true,
		Args:              cobra.NoArgs,
		PersistentPreRunE: loadEnv,
		RunE:              runBatch,
	}
)

// Execute executes the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./forest_eval.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", defaultEnvFile, "dotenv file with API keys")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json (overrides config)")
	addRunFlags(rootCmd)
}

func loadEnv(cmd *cobra.Command, args []string) error {
	if envFile == "" {
		return nil
	}
	err := godotenv.Load(envFile)
	if err == nil {
		output.Logger.Debug("Loaded environment file", "path", envFile)
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("env-file") {
		return nil
	}
	return fmt.Errorf("failed to load env file %s: %w", envFile, err)
}

// loadConfig reads the config file and applies the global logging flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if err := output.Configure(os.Stdout, cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, err
	}
	return cfg, nil
}
