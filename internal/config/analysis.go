package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/rxsens/internal/berlog"
	"github.com/banshee-data/rxsens/internal/sensitivity"
)

// DefaultConfigPath is the path to the canonical analysis defaults file.
// This is the single source of truth for all default analysis values.
const DefaultConfigPath = "config/analysis.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// AnalysisConfig holds the settings shared by the show, compare and rssi
// commands. Fields left out of a config file fall back to the Get* defaults.
type AnalysisConfig struct {
	// Comparison
	ToleranceDB    *float64 `json:"tolerance_db,omitempty" yaml:"tolerance_db,omitempty"`
	BaselineLabel  *string  `json:"baseline_label,omitempty" yaml:"baseline_label,omitempty"`
	CandidateLabel *string  `json:"candidate_label,omitempty" yaml:"candidate_label,omitempty"`

	// Condition grid
	T1Times []string `json:"t1_times,omitempty" yaml:"t1_times,omitempty"`
	BLFErrs []string `json:"blf_errs,omitempty" yaml:"blf_errs,omitempty"`

	// Extraction
	Interpolation *string `json:"interpolation,omitempty" yaml:"interpolation,omitempty"` // "global" or "first_crossing"

	// RSSI check
	RSSITolerance *float64 `json:"rssi_tolerance,omitempty" yaml:"rssi_tolerance,omitempty"` // raw RSSI counts

	// Loader
	LoadWorkers *int `json:"load_workers,omitempty" yaml:"load_workers,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyAnalysisConfig returns an AnalysisConfig with all fields unset.
func EmptyAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{}
}

// DefaultAnalysisConfig returns a config with every field set to its
// default. It matches config/analysis.defaults.json.
func DefaultAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		ToleranceDB:    ptrFloat64(sensitivity.DefaultToleranceDB),
		BaselineLabel:  ptrString("baseline"),
		CandidateLabel: ptrString("candidate"),
		T1Times:        []string{"min", "nom", "max"},
		BLFErrs:        []string{"neg", "nom", "pos"},
		Interpolation:  ptrString("global"),
		RSSITolerance:  ptrFloat64(50),
		LoadWorkers:    ptrInt(4),
	}
}

// LoadAnalysisConfig loads an AnalysisConfig from a .json, .yaml or .yml
// file. Fields omitted from the file keep their defaults, so partial configs
// are safe.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := ParseAnalysisConfig(data, ext)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseAnalysisConfig decodes and validates config data. ext selects the
// format and is one of ".json", ".yaml" or ".yml".
func ParseAnalysisConfig(data []byte, ext string) (*AnalysisConfig, error) {
	cfg := EmptyAnalysisConfig()
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *AnalysisConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/ or cmd/bersens/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadAnalysisConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *AnalysisConfig) Validate() error {
	if c.ToleranceDB != nil && *c.ToleranceDB < 0 {
		return fmt.Errorf("tolerance_db must be non-negative, got %f", *c.ToleranceDB)
	}
	if c.RSSITolerance != nil && *c.RSSITolerance < 0 {
		return fmt.Errorf("rssi_tolerance must be non-negative, got %f", *c.RSSITolerance)
	}
	if c.LoadWorkers != nil && *c.LoadWorkers < 1 {
		return fmt.Errorf("load_workers must be at least 1, got %d", *c.LoadWorkers)
	}
	if c.Interpolation != nil {
		if _, err := sensitivity.ParseMethod(*c.Interpolation); err != nil {
			return fmt.Errorf("invalid interpolation: %w", err)
		}
	}
	for _, s := range c.T1Times {
		if _, err := berlog.ParseT1Time(s); err != nil {
			return fmt.Errorf("invalid t1_times: %w", err)
		}
	}
	for _, s := range c.BLFErrs {
		if _, err := berlog.ParseBLFErr(s); err != nil {
			return fmt.Errorf("invalid blf_errs: %w", err)
		}
	}
	return nil
}

// GetToleranceDB returns the tolerance_db value or the default.
func (c *AnalysisConfig) GetToleranceDB() float64 {
	if c.ToleranceDB == nil {
		return sensitivity.DefaultToleranceDB
	}
	return *c.ToleranceDB
}

// GetBaselineLabel returns the baseline_label value or the default.
func (c *AnalysisConfig) GetBaselineLabel() string {
	if c.BaselineLabel == nil || *c.BaselineLabel == "" {
		return "baseline"
	}
	return *c.BaselineLabel
}

// GetCandidateLabel returns the candidate_label value or the default.
func (c *AnalysisConfig) GetCandidateLabel() string {
	if c.CandidateLabel == nil || *c.CandidateLabel == "" {
		return "candidate"
	}
	return *c.CandidateLabel
}

// GetT1Times returns the t1_times value or all three settings.
func (c *AnalysisConfig) GetT1Times() []berlog.T1Time {
	if len(c.T1Times) == 0 {
		return append([]berlog.T1Time(nil), berlog.AllT1Times...)
	}
	out := make([]berlog.T1Time, 0, len(c.T1Times))
	for _, s := range c.T1Times {
		if v, err := berlog.ParseT1Time(s); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// GetBLFErrs returns the blf_errs value or all three settings.
func (c *AnalysisConfig) GetBLFErrs() []berlog.BLFErr {
	if len(c.BLFErrs) == 0 {
		return append([]berlog.BLFErr(nil), berlog.AllBLFErrs...)
	}
	out := make([]berlog.BLFErr, 0, len(c.BLFErrs))
	for _, s := range c.BLFErrs {
		if v, err := berlog.ParseBLFErr(s); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// GetConditions returns the T1 x BLF grid selected by the config.
func (c *AnalysisConfig) GetConditions() []berlog.ConditionKey {
	return berlog.ConditionGrid(c.GetT1Times(), c.GetBLFErrs())
}

// GetInterpolation returns the interpolation method or Global.
func (c *AnalysisConfig) GetInterpolation() sensitivity.Method {
	if c.Interpolation == nil {
		return sensitivity.Global
	}
	m, err := sensitivity.ParseMethod(*c.Interpolation)
	if err != nil {
		return sensitivity.Global // default on parse error
	}
	return m
}

// GetRSSITolerance returns the rssi_tolerance value or the default.
func (c *AnalysisConfig) GetRSSITolerance() float64 {
	if c.RSSITolerance == nil {
		return 50
	}
	return *c.RSSITolerance
}

// GetLoadWorkers returns the load_workers value or the default.
func (c *AnalysisConfig) GetLoadWorkers() int {
	if c.LoadWorkers == nil {
		return 4
	}
	return *c.LoadWorkers
}

// CompareOptions returns the comparison settings selected by the config.
func (c *AnalysisConfig) CompareOptions() sensitivity.Options {
	return sensitivity.Options{
		ToleranceDB:    c.GetToleranceDB(),
		Conditions:     c.GetConditions(),
		BaselineLabel:  c.GetBaselineLabel(),
		CandidateLabel: c.GetCandidateLabel(),
	}
}
