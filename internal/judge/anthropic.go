/*
PURPOSE:
  Anthropic Messages API judge backend.

REQUIREMENTS:
  User-specified:
  - Use Claude models as metric judges.

  Implementation-discovered:
  - The SDK client is injected through messageClient so tests never hit the network.
  - Reply text blocks are joined.

ARCHITECTURE INTEGRATION:
  - Called by: internal/judge.New
  - Uses: anthropic-sdk-go

ERROR HANDLING:
  - Missing ANTHROPIC_API_KEY fails at construction.
  - SDK errors are wrapped; empty replies are errors.

IMPLEMENTATION RULES:
  - Retries and timeouts are delegated to the SDK options.

USAGE:
  j, err := judge.NewAnthropic(cfg.Judge)

SELF-HEALING INSTRUCTIONS:
  - If requests fail with 401, check ANTHROPIC_API_KEY in the env file.

RELATED FILES:
  - internal/judge/judge.go

MAINTENANCE:
  - Update defaultClaudeModel when it is retired.
*/

package judge

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/daryltucker/forest-eval/internal/config"
)

const (
	defaultClaudeModel     = "claude-3-5-haiku-latest"
	defaultAnthropicTokens = 256
)

type messageClient interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...anthropicoption.RequestOption) (*anthropic.Message, error)
}

// AnthropicOption configures the Anthropic judge.
type AnthropicOption func(*Anthropic)

// WithMessageClient injects a custom Messages client (primarily for tests).
func WithMessageClient(messages messageClient) AnthropicOption {
	return func(j *Anthropic) {
		if messages != nil {
			j.messages = messages
		}
	}
}

// Anthropic is a Judge backed by the Anthropic Messages API.
type Anthropic struct {
	cfg      config.JudgeConfig
	messages messageClient
}

// NewAnthropic builds an Anthropic judge from ANTHROPIC_* environment variables.
func NewAnthropic(cfg config.JudgeConfig, opts ...AnthropicOption) (*Anthropic, error) {
	j := &Anthropic{cfg: cfg}
	for _, opt := range opts {
		opt(j)
	}
	if j.messages != nil {
		return j, nil
	}

	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("%w: please set ANTHROPIC_API_KEY (and optionally ANTHROPIC_BASE_URL)", errMissingAPIKey)
	}

	reqOpts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(apiKey),
		anthropicoption.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.Timeout > 0 {
		reqOpts = append(reqOpts, anthropicoption.WithRequestTimeout(cfg.Timeout))
	}
	if baseURL := strings.TrimSpace(os.Getenv("ANTHROPIC_BASE_URL")); baseURL != "" {
		reqOpts = append(reqOpts, anthropicoption.WithBaseURL(baseURL))
	}

	client := anthropic.NewClient(reqOpts...)
	service := client.Messages
	j.messages = &service
	return j, nil
}

// Name implements Judge.
func (j *Anthropic) Name() string { return config.BackendAnthropic }

// Complete implements Judge.
func (j *Anthropic) Complete(ctx context.Context, system, prompt string) (string, error) {
	modelName := strings.TrimSpace(j.cfg.Model)
	if modelName == "" {
		modelName = defaultClaudeModel
	}
	maxTokens := j.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelName),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if strings.TrimSpace(system) != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if j.cfg.Temperature > 0 {
		params.Temperature = anthropic.Float(j.cfg.Temperature)
	}

	resp, err := j.messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type != "text" || strings.TrimSpace(block.Text) == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(block.Text)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errEmptyReply
	}
	return text, nil
}
