package metric

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJudge struct {
	reply   string
	err     error
	systems []string
	prompts []string
}

func (f *fakeJudge) Name() string { return "fake" }

func (f *fakeJudge) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.systems = append(f.systems, system)
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func testCase() TestCase {
	return TestCase{
		Input:            "channel context",
		ActualOutput:     "summary: great channel",
		RetrievalContext: []string{"channel context"},
		Context:          []string{"channel context"},
	}
}

func TestBuild_DefaultOrder(t *testing.T) {
	metrics, err := Build(Names(), &fakeJudge{})
	require.NoError(t, err)

	require.Len(t, metrics, 3)
	assert.Equal(t, AnswerRelevancy, metrics[0].Name())
	assert.Equal(t, Faithfulness, metrics[1].Name())
	assert.Equal(t, Hallucination, metrics[2].Name())
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build([]string{"bleu"}, &fakeJudge{})
	assert.ErrorContains(t, err, "unknown metric")

	_, err = Build([]string{Faithfulness, Faithfulness}, &fakeJudge{})
	assert.ErrorContains(t, err, "twice")

	_, err = Build(Names(), nil)
	assert.Error(t, err)
}

func TestMeasure_ParsesJudgeReply(t *testing.T) {
	j := &fakeJudge{reply: "Score: 0.75"}
	metrics, err := Build([]string{Faithfulness}, j)
	require.NoError(t, err)

	score, err := metrics[0].Measure(context.Background(), testCase())
	require.NoError(t, err)

	assert.Equal(t, 0.75, score)
	require.Len(t, j.prompts, 1)
	assert.Contains(t, j.prompts[0], "[1] channel context")
	assert.Contains(t, j.prompts[0], "summary: great channel")
	assert.Contains(t, j.systems[0], "supported by the context")
}

func TestMeasure_EchoedPromptLabel(t *testing.T) {
	j := &fakeJudge{reply: "Score (0-1): 0.8"}
	metrics, err := Build([]string{Faithfulness}, j)
	require.NoError(t, err)

	score, err := metrics[0].Measure(context.Background(), testCase())
	require.NoError(t, err)
	assert.Equal(t, 0.8, score)
	assert.NotContains(t, j.prompts[0], "0-1")
}

func TestMeasure_RelevancyUsesInput(t *testing.T) {
	j := &fakeJudge{reply: "1"}
	metrics, err := Build([]string{AnswerRelevancy}, j)
	require.NoError(t, err)

	_, err = metrics[0].Measure(context.Background(), testCase())
	require.NoError(t, err)

	assert.Contains(t, j.prompts[0], "Input:\nchannel context")
}

func TestMeasure_JudgeError(t *testing.T) {
	metrics, err := Build([]string{Hallucination}, &fakeJudge{err: errors.New("timeout")})
	require.NoError(t, err)

	_, err = metrics[0].Measure(context.Background(), testCase())
	assert.EqualError(t, err, "timeout")
}

func TestMeasure_UnparseableReply(t *testing.T) {
	metrics, err := Build([]string{AnswerRelevancy}, &fakeJudge{reply: "very relevant"})
	require.NoError(t, err)

	_, err = metrics[0].Measure(context.Background(), testCase())
	assert.Error(t, err)
}

func TestMeasure_EmptyOutputSkipsJudge(t *testing.T) {
	j := &fakeJudge{reply: "0.9"}
	metrics, err := Build(Names(), j)
	require.NoError(t, err)

	tc := testCase()
	tc.ActualOutput = "  "
	for _, m := range metrics {
		score, err := m.Measure(context.Background(), tc)
		require.NoError(t, err)
		assert.Equal(t, 0.0, score, m.Name())
	}
	assert.Empty(t, j.prompts)
}

func TestDescribe(t *testing.T) {
	for _, name := range Names() {
		assert.NotEmpty(t, Describe(name), name)
	}
	assert.Empty(t, Describe("bleu"))
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr bool
	}{
		{name: "plain", input: "0.85", want: 0.85},
		{name: "with_label", input: "Score: 0.4", want: 0.4},
		{name: "echoed_scale_label", input: "Score (0-1): 0.8", want: 0.8},
		{name: "scale_before_verdict", input: "On a 0-1 scale: 0.9", want: 0.9},
		{name: "scale_after_verdict", input: "0.9 (on a 0 to 1 scale)", want: 0.9},
		{name: "trailing_period", input: "The score is 0.35.", want: 0.35},
		{name: "percent", input: "85%", want: 0.85},
		{name: "small_percent", input: "0.5%", want: 0.005},
		{name: "ratio", input: "8/10", want: 0.8},
		{name: "out_of", input: "4 out of 5", want: 0.8},
		{name: "one", input: "1", want: 1},
		{name: "scale_only", input: "Score (0-1):", wantErr: true},
		{name: "zero_denominator", input: "3/0", wantErr: true},
		{name: "out_of_range", input: "1.5", wantErr: true},
		{name: "negative", input: "-0.2", wantErr: true},
		{name: "negative_after_label", input: "Score: -0.2", wantErr: true},
		{name: "missing", input: "no score", wantErr: true},
		{name: "empty", input: "   ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScore(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}
