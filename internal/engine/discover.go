/*
PURPOSE:
  Filesystem discovery for the runners.
  Lists channels, model files and existing reports; owns all file naming.

REQUIREMENTS:
  User-specified:
  - Channels are the sub-directories of the output root.
  - Model files are *.json without _metrics.json.

  Implementation-discovered:
  - Listings are sorted; symlinked channel directories are followed.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go, internal/engine/single.go, internal/cli/list_channels.go

ERROR HANDLING:
  - A missing results directory means no reports yet.
  - A missing output root is an error.

IMPLEMENTATION RULES:
  - Never read file contents here.

USAGE:
  channels, err := engine.ListChannels(cfg.OutputRoot)

SELF-HEALING INSTRUCTIONS:
  - If reports are not detected, compare reportSuffix with the written file names.

RELATED FILES:
  - internal/engine/runner.go

MAINTENANCE:
  - Keep every file-name rule in this file.
*/

package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	reportSuffix  = "_all_metrics.json"
	contextSuffix = "_extract.json"
	outputSuffix  = "_free_analysis.json"
	metricsMarker = "_metrics.json"
)

// Channel statuses reported by Inspect.
const (
	StatusEvaluated      = "evaluated"
	StatusPending        = "pending"
	StatusMissingContext = "missing-context"
)

// ReportFileName is the batch report name for a channel.
func ReportFileName(channel string) string {
	return channel + reportSuffix
}

// SingleReportFileName is the single-case report name for a channel and model label.
func SingleReportFileName(channel, label string) string {
	return channel + "_" + label + reportSuffix
}

// ContextFileName is the retrieved-context file name for a channel.
func ContextFileName(channel string) string {
	return channel + contextSuffix
}

// ModelID derives the model identifier from a generated-output file name by
// stripping the "<channel>_" prefix and the "_free_analysis.json" suffix.
func ModelID(channel, fileName string) string {
	return strings.TrimSuffix(strings.TrimPrefix(fileName, channel+"_"), outputSuffix)
}

// ExistingReports returns the channels that already have a batch report in dir.
// A missing dir means nothing was evaluated yet.
func ExistingReports(dir string) (map[string]bool, error) {
	done := make(map[string]bool)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return done, nil
		}
		return nil, fmt.Errorf("failed to list results directory %s: %w", dir, err)
	}
	for _, e := range entries {
		if name := e.Name(); strings.HasSuffix(name, reportSuffix) {
			done[strings.TrimSuffix(name, reportSuffix)] = true
		}
	}
	return done, nil
}

// ListChannels returns the names of the immediate subdirectories of root, sorted.
func ListChannels(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list output root %s: %w", root, err)
	}
	var channels []string
	for _, e := range entries {
		if isDir(root, e) {
			channels = append(channels, e.Name())
		}
	}
	sort.Strings(channels)
	return channels, nil
}

// ListModelFiles returns the generated-output files of a channel directory, sorted.
// Only *.json files count, and metric files (*_metrics.json) are ignored.
func ListModelFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list channel directory %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if isDir(dir, e) || !strings.HasSuffix(name, ".json") || strings.Contains(name, metricsMarker) {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)
	return files, nil
}

// isDir follows symlinks, unlike fs.DirEntry.IsDir.
func isDir(parent string, e fs.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(parent, e.Name()))
	return err == nil && info.IsDir()
}

// ChannelStatus summarises one channel for list-channels.
type ChannelStatus struct {
	Name       string
	Status     string
	ModelFiles int
}

// Inspect reports the status of every channel under outputRoot without reading any file contents.
func Inspect(outputRoot, contextRoot, resultsDir string) ([]ChannelStatus, error) {
	done, err := ExistingReports(resultsDir)
	if err != nil {
		return nil, err
	}
	channels, err := ListChannels(outputRoot)
	if err != nil {
		return nil, err
	}

	statuses := make([]ChannelStatus, 0, len(channels))
	for _, ch := range channels {
		st := ChannelStatus{Name: ch, Status: StatusPending}
		if files, err := ListModelFiles(filepath.Join(outputRoot, ch)); err == nil {
			st.ModelFiles = len(files)
		}
		switch {
		case done[ch]:
			st.Status = StatusEvaluated
		case !fileExists(filepath.Join(contextRoot, ContextFileName(ch))):
			st.Status = StatusMissingContext
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
