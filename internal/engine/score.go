/*
PURPOSE:
  Runs the configured metrics on one evaluation unit.

REQUIREMENTS:
  User-specified:
  - A failing metric yields a null score and never stops the others.

  Implementation-discovered:
  - Panics and non-finite scores are failures too.
  - Cancellation aborts scoring so no partial report is written.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go, internal/engine/single.go
  - Uses: internal/metric, internal/output.RunMetrics

ERROR HANDLING:
  - Logs metric errors; returns error only on context cancellation.

IMPLEMENTATION RULES:
  - Metrics run in configured order, one at a time.

USAGE:
  res, err := r.score(ctx, unit)

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/metric/metric.go

MAINTENANCE:
  - Update if metrics gain concurrency.
*/

package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/daryltucker/forest-eval/internal/metric"
	"github.com/daryltucker/forest-eval/internal/model"
)

// score runs every metric on unit. A failing metric is recorded as null and
// never stops the others. Only cancellation of ctx aborts scoring.
func (r *Runner) score(ctx context.Context, unit model.EvaluationUnit) (model.MetricResult, error) {
	tc := metric.TestCase{
		Input:            unit.Context,
		ActualOutput:     unit.Output,
		RetrievalContext: []string{unit.Context},
		Context:          []string{unit.Context},
	}

	res := make(model.MetricResult, len(r.metrics))
	for _, m := range r.metrics {
		name := m.Name()
		start := time.Now()

		score, err := measure(ctx, m, tc)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("scoring %s/%s interrupted: %w", unit.Channel, unit.Model, ctxErr)
		}
		if err != nil {
			r.log.Error("Metric evaluation failed", "channel", unit.Channel, "model", unit.Model, "metric", name, "error", err)
			res.Fail(name)
		} else {
			r.log.Info("Metric scored", "channel", unit.Channel, "model", unit.Model, "metric", name, "score", fmt.Sprintf("%.4f", score))
			res.Set(name, score)
		}
		r.stats.Observe(name, res[name], time.Since(start))
	}
	return res, nil
}

func measure(ctx context.Context, m metric.Metric, tc metric.TestCase) (score float64, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("metric panicked: %v", p)
		}
	}()

	score, err = m.Measure(ctx, tc)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, fmt.Errorf("metric returned non-finite score %v", score)
	}
	return score, nil
}
