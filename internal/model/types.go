/*
PURPOSE:
  Defines the core data structures used throughout Forest Eval.
  These models represent evaluation units and their metric results.

REQUIREMENTS:
  User-specified:
  - One score per metric per (channel, model) pair, null when the metric failed.
  - Batch reports map model id -> metric result; single-case reports are flat.

  Implementation-discovered:
  - A nil *float64 marshals to JSON null, which is exactly the failure marker.
  - encoding/json sorts map keys, so metric names come out in a stable order.

ARCHITECTURE INTEGRATION:
  - Used by: internal/engine, internal/output
  - Shared across boundaries.

ERROR HANDLING:
  - None (pure data structs).

IMPLEMENTATION RULES:
  - Keep structs simple and public.

USAGE:
  res := model.MetricResult{}
  res.Set("faithfulness", 0.8)

SELF-HEALING INSTRUCTIONS:
  - If reports need extra fields, add a wrapper type; do not change the
    MetricResult shape, existing report files depend on it.

RELATED FILES:
  - internal/model/record.go
  - internal/output/json.go

MAINTENANCE:
  - Update when adding new per-unit data to capture.
*/

package model

// EvaluationUnit pairs one truncated context with one truncated generated output.
type EvaluationUnit struct {
	Channel string
	Model   string
	Context string
	Output  string
}

// MetricResult maps metric name to score. A nil score means the metric failed.
type MetricResult map[string]*float64

// Set records a successful score.
func (r MetricResult) Set(name string, score float64) {
	r[name] = &score
}

// Fail records a failed metric.
func (r MetricResult) Fail(name string) {
	r[name] = nil
}

// Scored reports how many metrics produced a score.
func (r MetricResult) Scored() int {
	n := 0
	for _, v := range r {
		if v != nil {
			n++
		}
	}
	return n
}

// Report is the batch-mode artifact for one channel: model id -> metric result.
type Report map[string]MetricResult
