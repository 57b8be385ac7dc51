/*
PURPOSE:
  High-level runner that orchestrates the batch evaluation.
  Loops through Channels -> Model outputs -> Metrics and persists reports.

REQUIREMENTS:
  User-specified:
  - Score every model output of every channel against the channel context.
  - Never re-evaluate a channel that already has a report.
  - Write a channel report only if at least one model was scored.

  Implementation-discovered:
  - Directory listings are sorted so reports are deterministic.
  - Metric instances are passed in, never created here.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli
  - Uses: internal/metric, internal/model, internal/truncate, internal/output

ERROR HANDLING:
  - Logs errors but continues (resilience).
  - Only setup failures (results dir, output root listing) and cancellation stop the run.

IMPLEMENTATION RULES:
  - Scan existing reports once, at start.
  - For each Channel: require context, build context text.
  - For each Model: render, truncate, score, collect.
  - Write the channel report after all its models are scored.

USAGE:
  r := engine.New(cfg, metrics)
  err := r.Run(ctx)

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/engine/discover.go
  - internal/engine/score.go
  - internal/engine/single.go

MAINTENANCE:
  - Update iteration logic if parallelism is introduced.
*/

package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/daryltucker/forest-eval/internal/config"
	"github.com/daryltucker/forest-eval/internal/metric"
	"github.com/daryltucker/forest-eval/internal/model"
	"github.com/daryltucker/forest-eval/internal/output"
	"github.com/daryltucker/forest-eval/internal/tokens"
	"github.com/daryltucker/forest-eval/internal/truncate"
)

// Channel outcomes recorded in the run metrics.
const (
	OutcomeEvaluated       = "evaluated"
	OutcomeSkippedExisting = "skipped_existing"
	OutcomeMissingContext  = "missing_context"
	OutcomeNoSurvivors     = "no_survivors"
	OutcomeFailed          = "failed"
)

type scoredModel struct {
	model  string
	result model.MetricResult
}

// Runner evaluates model outputs with a fixed set of metrics.
type Runner struct {
	cfg     *config.Config
	metrics []metric.Metric
	stats   *output.RunMetrics
	tokens  *tokens.Counter
	log     *slog.Logger
	runID   string
}

// New creates a Runner. metrics are called in order for every evaluation unit.
func New(cfg *config.Config, metrics []metric.Metric) *Runner {
	r := &Runner{
		cfg:     cfg,
		metrics: metrics,
		stats:   output.NewRunMetrics(),
		runID:   uuid.NewString(),
	}
	if cfg.CountTokens {
		r.tokens = tokens.NewCounter(cfg.Judge.Model)
	}
	r.log = output.Logger.With("run_id", r.runID)
	return r
}

// RunID identifies this runner's run in logs and the summary file.
func (r *Runner) RunID() string { return r.runID }

// Stats exposes the run metrics.
func (r *Runner) Stats() *output.RunMetrics { return r.stats }

// Run executes the batch evaluation over every channel under the output root.
func (r *Runner) Run(ctx context.Context) error {
	cfg := r.cfg

	if err := os.MkdirAll(cfg.ResultsDir, 0755); err != nil {
		return fmt.Errorf("failed to create results directory %s: %w", cfg.ResultsDir, err)
	}

	// 1. Discovery Phase
	done, err := ExistingReports(cfg.ResultsDir)
	if err != nil {
		return err
	}
	channels, err := ListChannels(cfg.OutputRoot)
	if err != nil {
		return err
	}
	r.log.Info("Discovered channels", "output_root", cfg.OutputRoot, "count", len(channels), "already_evaluated", len(done))

	summary, err := r.openSummary()
	if err != nil {
		return err
	}
	defer r.closeSummary(summary)

	// 2. Execution Phase
	for _, ch := range channels {
		if err := ctx.Err(); err != nil {
			return err
		}
		if done[ch] {
			r.log.Info("Report already exists, skipping channel", "channel", ch)
			r.stats.ChannelDone(OutcomeSkippedExisting)
			continue
		}

		r.log.Info("Evaluating channel", "channel", ch)
		outcome, scored, err := r.evaluateChannel(ctx, ch)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				r.log.Warn("Evaluation interrupted, channel report not written", "channel", ch)
				r.writeMetricsFile()
				return ctxErr
			}
			r.log.Error("Channel evaluation failed", "channel", ch, "error", err)
			outcome = OutcomeFailed
		}
		r.stats.ChannelDone(outcome)

		for _, s := range scored {
			r.writeSummary(summary, ch, s.model, s.result)
		}
	}

	r.writeMetricsFile()
	return nil
}

// evaluateChannel scores every model output of one channel and writes its report.
// The scored models are returned only when the report was written.
func (r *Runner) evaluateChannel(ctx context.Context, ch string) (string, []scoredModel, error) {
	cfg := r.cfg

	contextPath := filepath.Join(cfg.ContextRoot, ContextFileName(ch))
	if _, err := os.Stat(contextPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.log.Warn("Missing retrieved context file, skipping channel", "channel", ch, "path", contextPath)
			return OutcomeMissingContext, nil, nil
		}
		return "", nil, fmt.Errorf("failed to stat context file %s: %w", contextPath, err)
	}

	data, err := os.ReadFile(contextPath)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read context file %s: %w", contextPath, err)
	}
	contextText, err := model.BuildContext(data)
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse context file %s: %w", contextPath, err)
	}
	contextText = truncate.Adaptive(contextText, cfg.ContextBudget.MaxTokens, cfg.ContextBudget.MaxChars)
	r.log.Info("Loaded retrieved context", append([]any{"channel", ch}, r.tokens.Attrs(contextText)...)...)

	channelDir := filepath.Join(cfg.OutputRoot, ch)
	files, err := ListModelFiles(channelDir)
	if err != nil {
		return "", nil, err
	}

	report := model.Report{}
	var scored []scoredModel
	for _, fname := range files {
		modelID := ModelID(ch, fname)
		path := filepath.Join(channelDir, fname)

		data, err := os.ReadFile(path)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read generated output %s: %w", path, err)
		}
		rec, err := model.ParseOutputRecord(data)
		if err != nil {
			return "", nil, fmt.Errorf("failed to parse generated output %s: %w", path, err)
		}

		generated := truncate.Adaptive(rec.Render(model.RenderJoinLists), cfg.OutputBudget.MaxTokens, cfg.OutputBudget.MaxChars)
		r.log.Info("Rendered generated output", append([]any{"channel", ch, "model", modelID}, r.tokens.Attrs(generated)...)...)

		if generated == "" {
			r.log.Warn("Generated output is empty, skipping model", "channel", ch, "file", fname)
			r.stats.ModelSkipped("empty_output")
			continue
		}

		unit := model.EvaluationUnit{Channel: ch, Model: modelID, Context: contextText, Output: generated}
		res, err := r.score(ctx, unit)
		if err != nil {
			return "", nil, err
		}
		report[modelID] = res
		scored = append(scored, scoredModel{model: modelID, result: res})
	}

	if len(report) == 0 {
		r.log.Warn("All models were skipped, no report written", "channel", ch)
		return OutcomeNoSurvivors, nil, nil
	}

	savePath := filepath.Join(cfg.ResultsDir, ReportFileName(ch))
	if err := output.WriteJSON(savePath, report); err != nil {
		return "", nil, err
	}
	r.log.Info("Saved evaluation report", "channel", ch, "path", savePath, "models", len(report))
	return OutcomeEvaluated, scored, nil
}

func (r *Runner) openSummary() (*output.CSVWriter, error) {
	if r.cfg.SummaryFile == "" {
		return nil, nil
	}
	w, err := output.NewCSVWriter(r.cfg.SummaryFile, r.runID)
	if err != nil {
		return nil, fmt.Errorf("failed to open summary file %s: %w", r.cfg.SummaryFile, err)
	}
	return w, nil
}

func (r *Runner) writeSummary(w *output.CSVWriter, channel, modelID string, res model.MetricResult) {
	if w == nil {
		return
	}
	if err := w.Write(channel, modelID, res); err != nil {
		r.log.Error("Failed to write summary rows", "channel", channel, "model", modelID, "error", err)
	}
}

func (r *Runner) closeSummary(w *output.CSVWriter) {
	if w == nil {
		return
	}
	if err := w.Close(); err != nil {
		r.log.Error("Failed to close summary file", "error", err)
	}
}

func (r *Runner) writeMetricsFile() {
	if r.cfg.MetricsFile == "" {
		return
	}
	if err := r.stats.WriteTextfile(r.cfg.MetricsFile); err != nil {
		r.log.Error("Failed to write run metrics", "error", err)
	}
}
