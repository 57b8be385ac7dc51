/*
PURPOSE:
  Azure OpenAI judge backend.

REQUIREMENTS:
  User-specified:
  - Use an Azure OpenAI deployment as metric judge.

  Implementation-discovered:
  - judge.model is the deployment name.

ARCHITECTURE INTEGRATION:
  - Called by: internal/judge.New
  - Uses: sashabaranov/go-openai

ERROR HANDLING:
  - Missing AZURE_OPENAI_API_KEY or AZURE_OPENAI_ENDPOINT fails at construction.
  - Transient errors are retried by withRetry.

IMPLEMENTATION RULES:
  - HTTP timeout comes from judge.timeout.

USAGE:
  j, err := judge.NewAzure(cfg.Judge)

SELF-HEALING INSTRUCTIONS:
  - If requests 404, check the deployment name and AZURE_OPENAI_API_VERSION.

RELATED FILES:
  - internal/judge/retry.go

MAINTENANCE:
  - None.
*/

package judge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/daryltucker/forest-eval/internal/config"
)

type azureChatClient interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

// Azure is a Judge backed by an Azure OpenAI deployment. cfg.Model is the deployment name.
type Azure struct {
	cfg    config.JudgeConfig
	client azureChatClient
}

// NewAzure builds an Azure OpenAI judge from AZURE_OPENAI_API_KEY and AZURE_OPENAI_ENDPOINT.
func NewAzure(cfg config.JudgeConfig) (*Azure, error) {
	apiKey := strings.TrimSpace(os.Getenv("AZURE_OPENAI_API_KEY"))
	endpoint := strings.TrimSpace(os.Getenv("AZURE_OPENAI_ENDPOINT"))
	if apiKey == "" || endpoint == "" {
		return nil, fmt.Errorf("%w: please set AZURE_OPENAI_API_KEY and AZURE_OPENAI_ENDPOINT", errMissingAPIKey)
	}

	clientConfig := goopenai.DefaultAzureConfig(apiKey, endpoint)
	if version := strings.TrimSpace(os.Getenv("AZURE_OPENAI_API_VERSION")); version != "" {
		clientConfig.APIVersion = version
	}
	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Azure{
		cfg:    cfg,
		client: goopenai.NewClientWithConfig(clientConfig),
	}, nil
}

// Name implements Judge.
func (j *Azure) Name() string { return config.BackendAzure }

// Complete implements Judge. go-openai does not retry, so the shared retry loop applies.
func (j *Azure) Complete(ctx context.Context, system, prompt string) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: j.cfg.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: system},
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   j.cfg.MaxTokens,
		Temperature: float32(j.cfg.Temperature),
	}

	var text string
	err := withRetry(ctx, j.Name(), j.cfg.MaxRetries, j.cfg.RetryDelay, func() error {
		resp, err := j.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return fmt.Errorf("azure chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return errors.New("azure chat completion returned no choices")
		}
		text = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", errEmptyReply
	}
	return text, nil
}
