/*
PURPOSE:
  LLM backends that answer metric prompts. Each metric in internal/metric
  renders a scoring prompt and asks a Judge for a single number.

REQUIREMENTS:
  User-specified:
  - Credentials/endpoints for the evaluator come from the environment (.env).

  Implementation-discovered:
  - Several providers are in use: OpenAI, Anthropic, Azure OpenAI and local Ollama.
  - SDK clients are hidden behind small interfaces so tests never hit the network.

ARCHITECTURE INTEGRATION:
  - Called by: internal/metric
  - Built by: internal/cli from config.JudgeConfig

ERROR HANDLING:
  - Missing credentials fail at construction, naming the variable to set.
  - Empty replies are errors (the metric records a null score).

IMPLEMENTATION RULES:
  - No timeouts or retries in callers; backends own both.

USAGE:
  j, err := judge.New(cfg.Judge)
  text, err := j.Complete(ctx, system, prompt)

SELF-HEALING INSTRUCTIONS:
  - If a provider SDK changes its request types, only its backend file changes.

RELATED FILES:
  - internal/metric/metric.go
  - internal/config/config.go

MAINTENANCE:
  - Add new providers as a new file plus a case in New().
*/

package judge

import (
	"context"
	"errors"
	"fmt"

	"github.com/daryltucker/forest-eval/internal/config"
)

var (
	errMissingAPIKey = errors.New("judge backend not configured")
	errEmptyReply    = errors.New("judge returned an empty reply")
)

// Judge completes a system + user prompt pair and returns the reply text.
type Judge interface {
	Name() string
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// New builds the backend selected by cfg.Backend.
func New(cfg config.JudgeConfig) (Judge, error) {
	switch cfg.Backend {
	case config.BackendOpenAI:
		return NewOpenAI(cfg)
	case config.BackendAnthropic:
		return NewAnthropic(cfg)
	case config.BackendAzure:
		return NewAzure(cfg)
	case config.BackendOllama:
		return NewOllama(cfg), nil
	default:
		return nil, fmt.Errorf("unknown judge backend %q", cfg.Backend)
	}
}
