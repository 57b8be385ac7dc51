/*
PURPOSE:
  Metric interface and construction.
  Each metric renders a scoring prompt, asks a judge.Judge for a single
  number and parses it into [0, 1].

REQUIREMENTS:
  User-specified:
  - Metrics are constructed explicitly and handed to the runner.

  Implementation-discovered:
  - No package-level instances.
  - Unknown or duplicate metric names are configuration errors.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli, internal/engine

ERROR HANDLING:
  - Build returns error for a nil judge, unknown or repeated names.

IMPLEMENTATION RULES:
  - Keep Names() order as the default report order.

USAGE:
  metrics, err := metric.Build(cfg.Metrics, j)

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/metric/judged.go

MAINTENANCE:
  - Update Names() when adding a metric.
*/

package metric

import (
	"context"
	"fmt"

	"github.com/daryltucker/forest-eval/internal/judge"
)

const (
	AnswerRelevancy = "answer_relevancy"
	Faithfulness    = "faithfulness"
	Hallucination   = "hallucination"
)

// TestCase is the unit handed to every metric.
type TestCase struct {
	Input            string
	ActualOutput     string
	RetrievalContext []string
	Context          []string
}

// Metric scores a TestCase. Implementations may fail; callers treat a failure
// as an unknown score for that metric only.
type Metric interface {
	Name() string
	Measure(ctx context.Context, tc TestCase) (float64, error)
}

// Names lists the built-in metrics in their default order.
func Names() []string {
	return []string{AnswerRelevancy, Faithfulness, Hallucination}
}

// Describe returns a one-line description of a built-in metric.
func Describe(name string) string {
	if spec, ok := specs[name]; ok {
		return spec.description
	}
	return ""
}

// Build constructs the named metrics, in order, all backed by j.
func Build(names []string, j judge.Judge) ([]Metric, error) {
	if j == nil {
		return nil, fmt.Errorf("metric judge is nil")
	}
	metrics := make([]Metric, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		spec, ok := specs[name]
		if !ok {
			return nil, fmt.Errorf("unknown metric %q", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("metric %q listed twice", name)
		}
		seen[name] = true
		metrics = append(metrics, &judged{spec: spec, judge: j})
	}
	return metrics, nil
}
