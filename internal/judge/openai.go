/*
PURPOSE:
  OpenAI Chat Completions judge backend.

REQUIREMENTS:
  User-specified:
  - Use OpenAI (or an OpenAI-compatible endpoint) as metric judge.

  Implementation-discovered:
  - The SDK client is injected through chatCompletionClient for tests.
  - OPENAI_BASE_URL allows compatible gateways.

ARCHITECTURE INTEGRATION:
  - Called by: internal/judge.New
  - Uses: openai-go

ERROR HANDLING:
  - Missing OPENAI_API_KEY fails at construction.
  - Empty choices and empty replies are errors.

IMPLEMENTATION RULES:
  - Retries and timeouts are delegated to the SDK options.

USAGE:
  j, err := judge.NewOpenAI(cfg.Judge)

SELF-HEALING INSTRUCTIONS:
  - If requests fail with 401, check OPENAI_API_KEY in the env file.

RELATED FILES:
  - internal/judge/judge.go

MAINTENANCE:
  - None.
*/

package judge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/daryltucker/forest-eval/internal/config"
)

type chatCompletionClient interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIOption configures the OpenAI judge.
type OpenAIOption func(*OpenAI)

// WithChatClient injects a custom Chat Completions client (primarily for tests).
func WithChatClient(chat chatCompletionClient) OpenAIOption {
	return func(j *OpenAI) {
		if chat != nil {
			j.chat = chat
		}
	}
}

// OpenAI is a Judge backed by OpenAI Chat Completions.
type OpenAI struct {
	cfg  config.JudgeConfig
	chat chatCompletionClient
}

// NewOpenAI builds an OpenAI judge from OPENAI_* environment variables.
func NewOpenAI(cfg config.JudgeConfig, opts ...OpenAIOption) (*OpenAI, error) {
	j := &OpenAI{cfg: cfg}
	for _, opt := range opts {
		opt(j)
	}
	if j.chat != nil {
		return j, nil
	}

	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("%w: please set OPENAI_API_KEY (and optionally OPENAI_BASE_URL or OPENAI_ORG_ID)", errMissingAPIKey)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(cfg.Timeout))
	}
	if baseURL := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")); baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	if orgID := strings.TrimSpace(os.Getenv("OPENAI_ORG_ID")); orgID != "" {
		reqOpts = append(reqOpts, option.WithOrganization(orgID))
	}
	if project := strings.TrimSpace(os.Getenv("OPENAI_PROJECT_ID")); project != "" {
		reqOpts = append(reqOpts, option.WithProject(project))
	}

	client := openai.NewClient(reqOpts...)
	service := client.Chat.Completions
	j.chat = &service
	return j, nil
}

// Name implements Judge.
func (j *OpenAI) Name() string { return config.BackendOpenAI }

// Complete implements Judge.
func (j *OpenAI) Complete(ctx context.Context, system, prompt string) (string, error) {
	modelName := strings.TrimSpace(j.cfg.Model)
	if modelName == "" {
		modelName = string(shared.ChatModelGPT4oMini)
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(modelName),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
	}
	if j.cfg.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(j.cfg.MaxTokens))
	}
	if j.cfg.Temperature > 0 {
		params.Temperature = openai.Float(j.cfg.Temperature)
	}

	resp, err := j.chat.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat completion returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errEmptyReply
	}
	return text, nil
}
