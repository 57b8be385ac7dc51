/*
PURPOSE:
  Single-case evaluation of one fixed channel/model file.

REQUIREMENTS:
  User-specified:
  - Always rewrites <channel>_<label>_all_metrics.json.
  - No skip of existing reports and no empty-output guard.

  Implementation-discovered:
  - Context is a plain prefix cut then trimmed; output keeps string fields only and is not truncated.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli/single.go
  - Uses: internal/model, internal/truncate, internal/output

ERROR HANDLING:
  - Missing or malformed input files are returned as errors.

IMPLEMENTATION RULES:
  - Report is a flat metric -> score map.

USAGE:
  err := engine.New(cfg, metrics).RunSingle(ctx)

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/engine/runner.go
  - internal/engine/discover.go

MAINTENANCE:
  - Keep separate from Run; the two modes differ on purpose.
*/

package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/daryltucker/forest-eval/internal/model"
	"github.com/daryltucker/forest-eval/internal/output"
	"github.com/daryltucker/forest-eval/internal/truncate"
)

// RunSingle scores one fixed generated-output file against its channel
// context and always writes <channel>_<label>_all_metrics.json, replacing any
// earlier report. Unlike Run, missing inputs are errors.
func (r *Runner) RunSingle(ctx context.Context) error {
	sc := r.cfg.Single
	if sc.Channel == "" || sc.ModelFile == "" || sc.Label == "" {
		return fmt.Errorf("single evaluation needs channel, model file and label")
	}

	if err := os.MkdirAll(r.cfg.ResultsDir, 0755); err != nil {
		return fmt.Errorf("failed to create results directory %s: %w", r.cfg.ResultsDir, err)
	}

	contextPath := filepath.Join(r.cfg.ContextRoot, ContextFileName(sc.Channel))
	data, err := os.ReadFile(contextPath)
	if err != nil {
		return fmt.Errorf("failed to read context file %s: %w", contextPath, err)
	}
	descs, err := model.ContextDescriptions(data)
	if err != nil {
		return fmt.Errorf("failed to parse context file %s: %w", contextPath, err)
	}
	contextText := strings.TrimSpace(truncate.Prefix(strings.Join(descs, "\n"), sc.ContextMaxTokens))
	r.log.Info("Loaded retrieved context", append([]any{"channel", sc.Channel}, r.tokens.Attrs(contextText)...)...)

	outputPath := filepath.Join(r.cfg.OutputRoot, sc.Channel, sc.ModelFile)
	data, err = os.ReadFile(outputPath)
	if err != nil {
		return fmt.Errorf("failed to read generated output %s: %w", outputPath, err)
	}
	rec, err := model.ParseOutputRecord(data)
	if err != nil {
		return fmt.Errorf("failed to parse generated output %s: %w", outputPath, err)
	}
	generated := rec.Render(model.RenderStringsOnly)

	modelID := ModelID(sc.Channel, sc.ModelFile)
	r.log.Info("Rendered generated output", append([]any{"channel", sc.Channel, "model", modelID}, r.tokens.Attrs(generated)...)...)

	unit := model.EvaluationUnit{Channel: sc.Channel, Model: modelID, Context: contextText, Output: generated}
	res, err := r.score(ctx, unit)
	if err != nil {
		return err
	}

	savePath := filepath.Join(r.cfg.ResultsDir, SingleReportFileName(sc.Channel, sc.Label))
	if err := output.WriteJSON(savePath, res); err != nil {
		return err
	}
	r.log.Info("Saved evaluation report", "channel", sc.Channel, "model", modelID, "path", savePath, "scored", res.Scored())

	summary, err := r.openSummary()
	if err != nil {
		return err
	}
	r.writeSummary(summary, sc.Channel, modelID, res)
	r.closeSummary(summary)

	r.writeMetricsFile()
	return nil
}
