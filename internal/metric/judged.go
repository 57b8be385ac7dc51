/*
PURPOSE:
  LLM-judged implementations of the built-in metrics.

REQUIREMENTS:
  User-specified:
  - answer_relevancy, faithfulness and hallucination, each scored in [0, 1].

  Implementation-discovered:
  - A blank output is scored without a judge call.
  - Prompts avoid numeric scale labels that a judge might echo back.

ARCHITECTURE INTEGRATION:
  - Called by: internal/metric.Build
  - Uses: internal/judge

ERROR HANDLING:
  - Judge errors and unparseable replies are returned to the runner.

IMPLEMENTATION RULES:
  - One judge call per metric per unit.

USAGE:
  metrics, err := metric.Build(metric.Names(), j)

SELF-HEALING INSTRUCTIONS:
  - If scores look wrong, check the judge reply against ParseScore's tests.

RELATED FILES:
  - internal/metric/score.go

MAINTENANCE:
  - Add new metrics to specs and Names().
*/

package metric

import (
	"context"
	"fmt"
	"strings"

	"github.com/daryltucker/forest-eval/internal/judge"
)

const strictEvaluator = "You are a strict evaluator. Reply with a single decimal number between zero and one and nothing else. "

type spec struct {
	name        string
	description string
	system      string
	// emptyScore is returned without a judge call when the actual output is blank.
	emptyScore float64
	prompt     func(tc TestCase) string
}

var specs = map[string]spec{
	AnswerRelevancy: {
		name:        AnswerRelevancy,
		description: "how well the output addresses the input",
		system: strictEvaluator +
			"0 means the output is unrelated to the input. 1 means every statement in it is relevant.",
		prompt: func(tc TestCase) string {
			return fmt.Sprintf("Input:\n%s\n\nOutput:\n%s\n\nScore:", tc.Input, tc.ActualOutput)
		},
	},
	Faithfulness: {
		name:        Faithfulness,
		description: "how well the output is supported by the retrieval context",
		system: strictEvaluator +
			"0 means the output is not supported by the context. 1 means all claims are fully supported.",
		prompt: func(tc TestCase) string {
			return fmt.Sprintf("Context:\n%s\n\nOutput:\n%s\n\nScore:",
				joinContext(tc.RetrievalContext), tc.ActualOutput)
		},
	},
	Hallucination: {
		name:        Hallucination,
		description: "fraction of the output that contradicts the context (lower is better)",
		system: strictEvaluator +
			"0 means nothing in the output contradicts the context. 1 means the output contradicts it entirely.",
		prompt: func(tc TestCase) string {
			return fmt.Sprintf("Context:\n%s\n\nOutput:\n%s\n\nScore:",
				joinContext(tc.Context), tc.ActualOutput)
		},
	},
}

type judged struct {
	spec  spec
	judge judge.Judge
}

func (m *judged) Name() string { return m.spec.name }

func (m *judged) Measure(ctx context.Context, tc TestCase) (float64, error) {
	if strings.TrimSpace(tc.ActualOutput) == "" {
		return m.spec.emptyScore, nil
	}
	text, err := m.judge.Complete(ctx, m.spec.system, m.spec.prompt(tc))
	if err != nil {
		return 0, err
	}
	return ParseScore(text)
}

func joinContext(parts []string) string {
	var sb strings.Builder
	for i, p := range parts {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("[%d] %s", i+1, p))
	}
	return sb.String()
}
