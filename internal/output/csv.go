/*
PURPOSE:
  Appends one CSV row per scored metric to a run-spanning summary file.

REQUIREMENTS:
  User-specified:
  - Optional flat view of every score for spreadsheet analysis.

  Implementation-discovered:
  - Reruns skip already evaluated channels, so the file is appended to,
    never truncated. The header is written only when the file is new.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine
  - Consumes: internal/model.MetricResult

ERROR HANDLING:
  - Returns error on file creation or write failure.

IMPLEMENTATION RULES:
  - Use encoding/csv.
  - Flush() after every write (critical for crash resilience).

USAGE:
  w, err := output.NewCSVWriter("summary.csv", runID)
  w.Write(channel, modelID, result)
  w.Close()

SELF-HEALING INSTRUCTIONS:
  - If CSV format changes, update header and record conversion.

RELATED FILES:
  - internal/model/types.go

MAINTENANCE:
  - Update Write() mapping when MetricResult changes.
*/

package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/daryltucker/forest-eval/internal/model"
)

var csvHeader = []string{"run_id", "timestamp", "channel", "model", "metric", "score", "error"}

// CSVWriter handles writing scores to a CSV file.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	runID  string
	now    func() time.Time
}

// NewCSVWriter opens path for appending, writing the header if the file is empty.
func NewCSVWriter(path, runID string) (*CSVWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			f.Close()
			return nil, err
		}
		w.Flush()
	}

	return &CSVWriter{
		file:   f,
		writer: w,
		runID:  runID,
		now:    time.Now,
	}, nil
}

// Write writes one row per metric of res, sorted by metric name.
func (cw *CSVWriter) Write(channel, modelID string, res model.MetricResult) error {
	names := make([]string, 0, len(res))
	for name := range res {
		names = append(names, name)
	}
	sort.Strings(names)

	ts := cw.now().UTC().Format(time.RFC3339)
	for _, name := range names {
		score, errCol := "", ""
		if v := res[name]; v != nil {
			score = strconv.FormatFloat(*v, 'f', 4, 64)
		} else {
			errCol = "failed"
		}
		record := []string{cw.runID, ts, channel, modelID, name, score, errCol}
		if err := cw.writer.Write(record); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}
	cw.writer.Flush()
	return cw.writer.Error()
}

// Close closes the underlying file.
func (cw *CSVWriter) Close() error {
	cw.writer.Flush()
	return cw.file.Close()
}
