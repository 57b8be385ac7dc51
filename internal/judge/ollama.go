/*
PURPOSE:
  Judge backend for a local Ollama server.
  Sends one non-streaming /api/chat request per metric prompt.

REQUIREMENTS:
  User-specified:
  - Score with local models when no hosted credentials are available.

  Implementation-discovered:
  - Needs http.Client with timeouts.
  - Model loading shows up as a slow response header, classify it separately.

ARCHITECTURE INTEGRATION:
  - Called by: internal/metric (through the Judge interface)
  - Uses: internal/config, internal/output

ERROR HANDLING:
  - Retries transient failures (max_retries, retry_delay).
  - API-side errors in the JSON body are returned verbatim.

IMPLEMENTATION RULES:
  - Use net/http.
  - Enforce header timeout on the transport.

USAGE:
  j := judge.NewOllama(cfg.Judge)
  text, err := j.Complete(ctx, system, prompt)

SELF-HEALING INSTRUCTIONS:
  - If Ollama API changes, update the /api/chat payload and response struct.

RELATED FILES:
  - internal/judge/judge.go
  - internal/config/config.go

MAINTENANCE:
  - Update for new Ollama API features.
*/

package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/daryltucker/forest-eval/internal/config"
	"github.com/daryltucker/forest-eval/internal/output"
)

// Ollama is a Judge backed by an Ollama server.
type Ollama struct {
	Config config.JudgeConfig
	Client *http.Client
}

// NewOllama creates a new Ollama judge.
func NewOllama(cfg config.JudgeConfig) *Ollama {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	// ResponseHeaderTimeout covers the time until we receive the first response byte.
	// This is where model loading happens.
	transport.ResponseHeaderTimeout = cfg.Timeout

	return &Ollama{
		Config: cfg,
		Client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout * 2,
		},
	}
}

// Name implements Judge.
func (o *Ollama) Name() string { return config.BackendOllama }

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Complete implements Judge.
func (o *Ollama) Complete(ctx context.Context, system, prompt string) (string, error) {
	options := map[string]interface{}{}
	if o.Config.Temperature > 0 {
		options["temperature"] = o.Config.Temperature
	}
	if o.Config.MaxTokens > 0 {
		options["num_predict"] = o.Config.MaxTokens
	}

	reqBody, err := json.Marshal(map[string]interface{}{
		"model": o.Config.Model,
		"messages": []ollamaMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		"stream":  false,
		"options": options,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode ollama request: %w", err)
	}

	baseURL := strings.TrimRight(o.Config.URL, "/")

	var text string
	err = withRetry(ctx, o.Name(), o.Config.MaxRetries, o.Config.RetryDelay, func() error {
		req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/api/chat", baseURL), bytes.NewReader(reqBody))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := o.Client.Do(req)
		if err != nil {
			if strings.Contains(err.Error(), "awaiting headers") {
				return fmt.Errorf("Ollama Header Timeout (model loading?): %w", err)
			}
			return fmt.Errorf("Network/Connection Error: %w", err)
		}
		defer resp.Body.Close()

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("Ollama Server Error (%s): %s", resp.Status, string(bodyBytes))
		}

		var data struct {
			Message ollamaMessage `json:"message"`
			Done    bool          `json:"done"`
			Error   string        `json:"error"`
		}
		if err := json.Unmarshal(bodyBytes, &data); err != nil {
			output.Logger.Warn("Ollama returned invalid JSON", "body", string(bodyBytes))
			return fmt.Errorf("Ollama returned invalid JSON: %w", err)
		}
		if data.Error != "" {
			return fmt.Errorf("Ollama API Error: %s", data.Error)
		}

		text = strings.TrimSpace(data.Message.Content)
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
