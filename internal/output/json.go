/*
PURPOSE:
  Writes evaluation reports as indented JSON files.

REQUIREMENTS:
  User-specified:
  - One report per channel, written once all of its models are scored.
  - An interrupted run must not leave a partial report behind.

  Implementation-discovered:
  - Write to a temp file in the same directory, then rename; rename is
    atomic within one filesystem.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine
  - Consumes: internal/model.Report, internal/model.MetricResult

ERROR HANDLING:
  - Returns error on file creation or write failure; the temp file is removed.

IMPLEMENTATION RULES:
  - Use encoding/json with two-space indentation.

USAGE:
  err := output.WriteJSON(path, report)

SELF-HEALING INSTRUCTIONS:
  - None specific.

RELATED FILES:
  - internal/model/types.go

MAINTENANCE:
  - Keep the report file naming in internal/engine, not here.
*/

package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteJSON atomically writes v to path as indented JSON.
func WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to chmod %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move report into place at %s: %w", path, err)
	}
	return nil
}
