package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	})
	err := Execute(context.Background())
	return out.String(), err
}

// resetFlags restores defaults because cobra commands are package globals.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func TestListMetrics(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := execute(t, "list-metrics")
	require.NoError(t, err)
	assert.Contains(t, out, "- answer_relevancy: ")
	assert.Contains(t, out, "- faithfulness: ")
	assert.Contains(t, out, "- hallucination: ")
}

func TestListChannels(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.MkdirAll(filepath.Join("output", "alpha"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join("output", "alpha", "alpha_gpt_free_analysis.json"), []byte(`{}`), 0644))

	out, err := execute(t, "list-channels", "--output-root", "output", "--context-root", "ctx", "--results-dir", "res")
	require.NoError(t, err)
	assert.Contains(t, out, "CHANNEL")
	assert.Regexp(t, `alpha\s+missing-context\s+1`, out)
}

func TestEnvFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FOREST_EVAL_TEST_KEY", "")
	require.NoError(t, os.Unsetenv("FOREST_EVAL_TEST_KEY"))
	require.NoError(t, os.WriteFile("custom.env", []byte("FOREST_EVAL_TEST_KEY=from-file\n"), 0644))

	_, err := execute(t, "list-metrics", "--env-file", "custom.env")
	require.NoError(t, err)
	assert.Equal(t, "from-file", os.Getenv("FOREST_EVAL_TEST_KEY"))

	_, err = execute(t, "list-metrics", "--env-file", "absent.env")
	assert.Error(t, err)
}

// ollamaJudge serves /api/chat with a fixed score and counts the calls.
func ollamaJudge(t *testing.T, reply string) *atomic.Int32 {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": reply},
			"done":    true,
		})
	}))
	t.Cleanup(srv.Close)
	t.Setenv("FOREST_EVAL_JUDGE_URL", srv.URL)
	return &calls
}

// dataLayout creates output/<channel>/ and extracted_info/ in the working directory.
func dataLayout(t *testing.T, channel, model string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join("output", channel), 0755))
	require.NoError(t, os.MkdirAll("extracted_info", 0755))
	require.NoError(t, os.WriteFile(filepath.Join("extracted_info", channel+"_extract.json"),
		[]byte(`{"bio": {"description": "Singer from Canada."}}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join("output", channel, channel+"_"+model+"_free_analysis.json"),
		[]byte(`{"summary": "A Canadian singer.", "topics": ["music", "tours"]}`), 0644))
}

func readScores(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func TestBareRootRunsBatch(t *testing.T) {
	t.Chdir(t.TempDir())
	calls := ollamaJudge(t, "0.7")
	dataLayout(t, "chan", "gpt")

	_, err := execute(t, "--judge-backend", "ollama", "--judge-model", "llama3", "--log-level", "error")
	require.NoError(t, err)

	var report map[string]map[string]*float64
	readScores(t, filepath.Join("eval_results", "chan_all_metrics.json"), &report)
	require.Contains(t, report, "gpt")
	require.Len(t, report["gpt"], 3)
	for name, score := range report["gpt"] {
		require.NotNil(t, score, name)
		assert.InDelta(t, 0.7, *score, 1e-9, name)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestRunCommandOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	calls := ollamaJudge(t, "Score: 0.4")
	dataLayout(t, "chan", "gpt")

	_, err := execute(t, "run", "--judge-backend", "ollama", "--metrics", "faithfulness",
		"--results-dir", "custom_results", "--summary-file", "summary.csv", "--log-level", "error")
	require.NoError(t, err)

	var report map[string]map[string]*float64
	readScores(t, filepath.Join("custom_results", "chan_all_metrics.json"), &report)
	require.Len(t, report["gpt"], 1)
	assert.InDelta(t, 0.4, *report["gpt"]["faithfulness"], 1e-9)
	assert.Equal(t, int32(1), calls.Load())
	assert.FileExists(t, "summary.csv")
	assert.NoDirExists(t, "eval_results")
}

func TestSingleCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	ollamaJudge(t, "0.9")
	dataLayout(t, "chan", "mistral-small")

	_, err := execute(t, "single", "--judge-backend", "ollama", "--log-level", "error",
		"--channel", "chan", "--model-file", "chan_mistral-small_free_analysis.json", "--label", "mistral")
	require.NoError(t, err)

	var res map[string]*float64
	readScores(t, filepath.Join("eval_results", "chan_mistral_all_metrics.json"), &res)
	require.Len(t, res, 3)
	assert.InDelta(t, 0.9, *res["faithfulness"], 1e-9)
	assert.NoFileExists(t, filepath.Join("eval_results", "chan_all_metrics.json"))
}

func TestRunRejectsUnknownBackend(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := execute(t, "run", "--judge-backend", "watson")
	assert.ErrorContains(t, err, "unknown judge backend")
}
