package judge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/forest-eval/internal/config"
)

type mockChatCompletions struct {
	mu       sync.Mutex
	requests []openai.ChatCompletionNewParams
	response *openai.ChatCompletion
	err      error
}

func (m *mockChatCompletions) New(ctx context.Context, params openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, params)
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func openAIReply(content string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		ID:    "test",
		Model: string(shared.ChatModelGPT4oMini),
		Choices: []openai.ChatCompletionChoice{{
			FinishReason: "stop",
			Message:      openai.ChatCompletionMessage{Content: content},
		}},
	}
}

func judgeConfig(backend string) config.JudgeConfig {
	cfg := config.DefaultConfig().Judge
	cfg.Backend = backend
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func TestOpenAI_Complete(t *testing.T) {
	mockAPI := &mockChatCompletions{response: openAIReply(" 0.85 ")}
	j, err := NewOpenAI(judgeConfig(config.BackendOpenAI), WithChatClient(mockAPI))
	require.NoError(t, err)

	text, err := j.Complete(context.Background(), "You are a strict evaluator.", "Score this.")
	require.NoError(t, err)
	assert.Equal(t, "0.85", text)

	require.Len(t, mockAPI.requests, 1)
	request := mockAPI.requests[0]
	assert.Equal(t, shared.ChatModel("gpt-4o-mini"), request.Model)
	require.Len(t, request.Messages, 2)
	require.NotNil(t, request.Messages[0].OfSystem)
	assert.Equal(t, "You are a strict evaluator.", request.Messages[0].OfSystem.Content.OfString.Value)
	require.NotNil(t, request.Messages[1].OfUser)
	assert.Equal(t, "Score this.", request.Messages[1].OfUser.Content.OfString.Value)
	assert.Equal(t, int64(256), request.MaxCompletionTokens.Value)
}

func TestOpenAI_Errors(t *testing.T) {
	cfg := judgeConfig(config.BackendOpenAI)

	j, err := NewOpenAI(cfg, WithChatClient(&mockChatCompletions{err: errors.New("rate limited")}))
	require.NoError(t, err)
	_, err = j.Complete(context.Background(), "s", "p")
	assert.ErrorContains(t, err, "rate limited")

	j, err = NewOpenAI(cfg, WithChatClient(&mockChatCompletions{response: &openai.ChatCompletion{}}))
	require.NoError(t, err)
	_, err = j.Complete(context.Background(), "s", "p")
	assert.ErrorContains(t, err, "no choices")

	j, err = NewOpenAI(cfg, WithChatClient(&mockChatCompletions{response: openAIReply("   ")}))
	require.NoError(t, err)
	_, err = j.Complete(context.Background(), "s", "p")
	assert.ErrorIs(t, err, errEmptyReply)
}

func TestOpenAI_MissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewOpenAI(judgeConfig(config.BackendOpenAI))
	assert.ErrorIs(t, err, errMissingAPIKey)
}

type mockMessages struct {
	requests []anthropic.MessageNewParams
	response *anthropic.Message
}

func (m *mockMessages) New(ctx context.Context, params anthropic.MessageNewParams, _ ...anthropicoption.RequestOption) (*anthropic.Message, error) {
	m.requests = append(m.requests, params)
	return m.response, nil
}

func TestAnthropic_Complete(t *testing.T) {
	mockAPI := &mockMessages{response: &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "thinking"},
			{Type: "text", Text: "Score: 0.4"},
		},
	}}
	cfg := judgeConfig(config.BackendAnthropic)
	cfg.Model = ""
	cfg.MaxTokens = 0

	j, err := NewAnthropic(cfg, WithMessageClient(mockAPI))
	require.NoError(t, err)

	text, err := j.Complete(context.Background(), "system prompt", "user prompt")
	require.NoError(t, err)
	assert.Equal(t, "Score: 0.4", text)

	require.Len(t, mockAPI.requests, 1)
	request := mockAPI.requests[0]
	assert.Equal(t, anthropic.Model(defaultClaudeModel), request.Model)
	assert.Equal(t, int64(defaultAnthropicTokens), request.MaxTokens)
	require.Len(t, request.System, 1)
	assert.Equal(t, "system prompt", request.System[0].Text)
	require.Len(t, request.Messages, 1)
}

func TestAnthropic_EmptyReply(t *testing.T) {
	mockAPI := &mockMessages{response: &anthropic.Message{}}
	j, err := NewAnthropic(judgeConfig(config.BackendAnthropic), WithMessageClient(mockAPI))
	require.NoError(t, err)

	_, err = j.Complete(context.Background(), "s", "p")
	assert.ErrorIs(t, err, errEmptyReply)
}

func TestAnthropic_MissingKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := NewAnthropic(judgeConfig(config.BackendAnthropic))
	assert.ErrorIs(t, err, errMissingAPIKey)
}

func TestOllama_Complete(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message": {"role": "assistant", "content": "0.75"}, "done": true}`))
	}))
	defer server.Close()

	cfg := judgeConfig(config.BackendOllama)
	cfg.URL = server.URL + "/"
	cfg.Model = "llama3.1:8b"

	text, err := NewOllama(cfg).Complete(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "0.75", text)

	assert.Equal(t, "llama3.1:8b", got["model"])
	assert.Equal(t, false, got["stream"])
	messages, ok := got["messages"].([]interface{})
	require.True(t, ok)
	assert.Len(t, messages, 2)
}

func TestOllama_RetriesThenFails(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"error": "model not found"}`))
	}))
	defer server.Close()

	cfg := judgeConfig(config.BackendOllama)
	cfg.URL = server.URL
	cfg.MaxRetries = 2

	_, err := NewOllama(cfg).Complete(context.Background(), "sys", "prompt")
	assert.ErrorContains(t, err, "model not found")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestOllama_RecoversAfterServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "loading", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"message": {"role": "assistant", "content": "1"}}`))
	}))
	defer server.Close()

	cfg := judgeConfig(config.BackendOllama)
	cfg.URL = server.URL

	text, err := NewOllama(cfg).Complete(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "1", text)
}

func TestAzure_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/chat/completions")
		assert.Equal(t, "test-key", r.Header.Get("api-key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "choices": [{"index": 0, "message": {"role": "assistant", "content": "0.6"}}]}`))
	}))
	defer server.Close()

	t.Setenv("AZURE_OPENAI_API_KEY", "test-key")
	t.Setenv("AZURE_OPENAI_ENDPOINT", server.URL)

	cfg := judgeConfig(config.BackendAzure)
	cfg.Model = "eval-deployment"

	j, err := NewAzure(cfg)
	require.NoError(t, err)

	text, err := j.Complete(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "0.6", text)
}

func TestAzure_MissingEndpoint(t *testing.T) {
	t.Setenv("AZURE_OPENAI_API_KEY", "k")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "")

	_, err := NewAzure(judgeConfig(config.BackendAzure))
	assert.ErrorIs(t, err, errMissingAPIKey)
}

func TestNew(t *testing.T) {
	j, err := New(judgeConfig(config.BackendOllama))
	require.NoError(t, err)
	assert.Equal(t, config.BackendOllama, j.Name())

	_, err = New(judgeConfig("bard"))
	assert.Error(t, err)
}

func TestWithRetry_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := withRetry(ctx, "test", 5, time.Hour, func() error {
		calls++
		cancel()
		return errors.New("boom")
	})

	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, calls)
}
