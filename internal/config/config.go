/*
PURPOSE:
  Defines the configuration structure and loading logic for Forest Eval.
  Adheres to "Config IS Code" philosophy.

REQUIREMENTS:
  User-specified:
  - Allow configuration of the input/output directory layout.
  - Credentials for the metric evaluator come from a local .env file.

  Implementation-discovered:
  - Needs to support YAML parsing.
  - Needs to support Environment variables overrides (FOREST_EVAL_...).
  - Budgets must stay positive or the truncator degenerates to "".

ARCHITECTURE INTEGRATION:
  - Used by: internal/cli, internal/engine, internal/judge
  - Dependencies: gopkg.in/yaml.v3 (standard for Go config)

ERROR HANDLING:
  - Returns explicit error if config file is invalid.
  - Missing default config files fall back to defaults.

IMPLEMENTATION RULES:
  - Config struct tags should support yaml.
  - Defaults match the existing output/ and extracted_info/ data layout.

USAGE:
  cfg, err := config.Load("forest_eval.yaml")

SELF-HEALING INSTRUCTIONS:
  - If new fields are needed, add to Config struct and update DefaultConfig().

RELATED FILES:
  - internal/cli/root.go

MAINTENANCE:
  - Update when adding new tuning parameters.
*/

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Judge backends understood by internal/judge.
const (
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
	BackendAzure     = "azure"
	BackendOllama    = "ollama"
)

// Metric names understood by internal/metric.
var DefaultMetrics = []string{"answer_relevancy", "faithfulness", "hallucination"}

// Budget bounds a truncated text.
type Budget struct {
	MaxTokens int `yaml:"max_tokens"`
	MaxChars  int `yaml:"max_chars"`
}

// JudgeConfig selects and tunes the LLM backend that scores metrics.
type JudgeConfig struct {
	Backend     string        `yaml:"backend"`
	Model       string        `yaml:"model"`
	URL         string        `yaml:"url"` // Ollama base URL
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

// SingleConfig pins the single-case evaluation to one channel and model file.
type SingleConfig struct {
	Channel          string `yaml:"channel"`
	ModelFile        string `yaml:"model_file"`
	Label            string `yaml:"label"`
	ContextMaxTokens int    `yaml:"context_max_tokens"`
}

// Config represents the full configuration for Forest Eval.
type Config struct {
	// OutputRoot holds one directory per channel with the generated outputs.
	OutputRoot string `yaml:"output_root"`
	// ContextRoot holds <channel>_extract.json retrieved-context files.
	ContextRoot string `yaml:"context_root"`
	// ResultsDir receives <channel>_all_metrics.json reports.
	ResultsDir string `yaml:"results_dir"`

	ContextBudget Budget `yaml:"context_budget"`
	OutputBudget  Budget `yaml:"output_budget"`

	Metrics []string     `yaml:"metrics"`
	Judge   JudgeConfig  `yaml:"judge"`
	Single  SingleConfig `yaml:"single"`

	// SummaryFile, when set, receives one CSV row per scored metric.
	SummaryFile string `yaml:"summary_file"`
	// MetricsFile, when set, receives Prometheus text exposition of the run.
	MetricsFile string `yaml:"metrics_file"`
	// CountTokens logs exact tiktoken counts next to character lengths.
	CountTokens bool `yaml:"count_tokens"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		OutputRoot:    "output",
		ContextRoot:   "extracted_info",
		ResultsDir:    "eval_results",
		ContextBudget: Budget{MaxTokens: 1500, MaxChars: 6000},
		OutputBudget:  Budget{MaxTokens: 2000, MaxChars: 8000},
		Metrics:       append([]string(nil), DefaultMetrics...),
		Judge: JudgeConfig{
			Backend:    BackendOpenAI,
			Model:      "gpt-4o-mini",
			URL:        "http://localhost:11434",
			MaxTokens:  256,
			Timeout:    120 * time.Second,
			MaxRetries: 3,
			RetryDelay: 2 * time.Second,
		},
		Single: SingleConfig{
			Channel:          "justinbieber",
			ModelFile:        "justinbieber_mistralai_mistral-small-3.1-24b-instruct_free_analysis.json",
			Label:            "mistral",
			ContextMaxTokens: 2000,
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads configuration from a file.
// If path is specified, it attempts to load that file.
// If path is empty, it searches for default files in order.
// If no file found, returns default config.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	var data []byte
	var err error

	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		defaults := []string{"forest_eval.yaml", "eval.yaml"}
		for _, name := range defaults {
			data, err = os.ReadFile(name)
			if err == nil {
				path = name
				break
			}
		}
	}

	if path != "" {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides judge settings from FOREST_EVAL_* variables.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("FOREST_EVAL_JUDGE_BACKEND")); v != "" {
		c.Judge.Backend = v
	}
	if v := strings.TrimSpace(os.Getenv("FOREST_EVAL_JUDGE_MODEL")); v != "" {
		c.Judge.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("FOREST_EVAL_JUDGE_URL")); v != "" {
		c.Judge.URL = v
	}
}

// Validate rejects configurations the runner cannot work with.
func (c *Config) Validate() error {
	if c.OutputRoot == "" || c.ContextRoot == "" || c.ResultsDir == "" {
		return fmt.Errorf("output_root, context_root and results_dir must be set")
	}
	for name, b := range map[string]Budget{"context_budget": c.ContextBudget, "output_budget": c.OutputBudget} {
		if b.MaxTokens <= 0 || b.MaxChars <= 0 {
			return fmt.Errorf("%s: max_tokens and max_chars must be positive (got %d, %d)", name, b.MaxTokens, b.MaxChars)
		}
	}
	if len(c.Metrics) == 0 {
		return fmt.Errorf("at least one metric must be configured")
	}
	switch c.Judge.Backend {
	case BackendOpenAI, BackendAnthropic, BackendAzure, BackendOllama:
	default:
		return fmt.Errorf("unknown judge backend %q", c.Judge.Backend)
	}
	return nil
}
