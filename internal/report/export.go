package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/banshee-data/rxsens/internal/berlog"
	"github.com/banshee-data/rxsens/internal/fsutil"
	"github.com/banshee-data/rxsens/internal/rssi"
	"github.com/banshee-data/rxsens/internal/sensitivity"
)

// RunInfo identifies a loaded run in exported documents.
type RunInfo struct {
	ID       string   `json:"id"`
	Dir      string   `json:"dir"`
	Label    string   `json:"label,omitempty"`
	Records  int      `json:"records"`
	Failures []string `json:"failures,omitempty"`
}

// NewRunInfo summarises a run.
func NewRunInfo(run *berlog.Run, label string) RunInfo {
	info := RunInfo{ID: run.ID, Dir: run.Dir, Label: label, Records: len(run.Records)}
	for _, f := range run.Failures {
		info.Failures = append(info.Failures, f.Error())
	}
	return info
}

// SensitivityExport is the JSON document written by show.
type SensitivityExport struct {
	Generated time.Time          `json:"generated"`
	Run       RunInfo            `json:"run"`
	Method    string             `json:"interpolation"`
	Table     *sensitivity.Table `json:"table"`
	Errors    []string           `json:"errors,omitempty"`
}

// ComparisonExport is the JSON document written by compare.
type ComparisonExport struct {
	Generated   time.Time           `json:"generated"`
	Baseline    RunInfo             `json:"baseline"`
	Candidate   RunInfo             `json:"candidate"`
	Method      string              `json:"interpolation"`
	Report      *sensitivity.Report `json:"report"`
	Regressions int                 `json:"regressions"`
}

// RSSIExport is the JSON document for an RSSI check.
type RSSIExport struct {
	Generated time.Time         `json:"generated"`
	Run       RunInfo           `json:"run"`
	Tolerance float64           `json:"tolerance"`
	Modes     []rssi.ModeChecks `json:"modes"`
}

// WriteJSON encodes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ExportJSON writes v as indented JSON to path on fsys.
func ExportJSON(fsys fsutil.FileSystem, path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	data = append(data, '\n')
	if err := fsys.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
