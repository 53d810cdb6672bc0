package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical reconstruction defaults file.
const DefaultConfigPath = "config/reco.defaults.json"

// Drift model names accepted by drift_model.
const (
	DriftModelLinear = "linear"
	DriftModelNone   = "none"
)

// RecoConfig holds the segment reconstruction parameters. Every field is
// optional; the Get* methods supply the default for anything not set, so
// partial files are safe.
type RecoConfig struct {
	// Drift model
	DriftModel    *string  `json:"drift_model,omitempty"`
	DriftVelocity *float64 `json:"drift_velocity_cm_per_ns,omitempty"`
	T0Offset      *float64 `json:"t0_offset_ns,omitempty"`
	MinDriftTime  *float64 `json:"min_drift_time_ns,omitempty"`
	MaxDriftTime  *float64 `json:"max_drift_time_ns,omitempty"`
	HitResolution *float64 `json:"hit_resolution_cm,omitempty"`

	// Schedule
	MinMeasurements *int     `json:"min_measurements,omitempty"`
	PositionPass    *bool    `json:"position_pass,omitempty"`
	MaxChi2PerDOF   *float64 `json:"max_chi2_per_dof,omitempty"`

	// Resources
	Workers            *int `json:"workers,omitempty"`
	TransformCacheSize *int `json:"transform_cache_size,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyRecoConfig returns a RecoConfig with all fields unset.
func EmptyRecoConfig() *RecoConfig {
	return &RecoConfig{}
}

// DefaultRecoConfig returns a RecoConfig with every field set to its default.
func DefaultRecoConfig() *RecoConfig {
	e := EmptyRecoConfig()
	return &RecoConfig{
		DriftModel:         ptrString(e.GetDriftModel()),
		DriftVelocity:      ptrFloat64(e.GetDriftVelocity()),
		T0Offset:           ptrFloat64(e.GetT0Offset()),
		MinDriftTime:       ptrFloat64(e.GetMinDriftTime()),
		MaxDriftTime:       ptrFloat64(e.GetMaxDriftTime()),
		HitResolution:      ptrFloat64(e.GetHitResolution()),
		MinMeasurements:    ptrInt(e.GetMinMeasurements()),
		PositionPass:       ptrBool(e.GetPositionPass()),
		MaxChi2PerDOF:      ptrFloat64(e.GetMaxChi2PerDOF()),
		Workers:            ptrInt(e.GetWorkers()),
		TransformCacheSize: ptrInt(e.GetTransformCacheSize()),
	}
}

// LoadRecoConfig loads a RecoConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadRecoConfig(path string) (*RecoConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyRecoConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory
// or one of its parents. Panics if the file cannot be loaded; intended for
// test setup.
func MustLoadDefaultConfig() *RecoConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from cmd/segfit/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadRecoConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *RecoConfig) Validate() error {
	switch m := c.GetDriftModel(); m {
	case DriftModelLinear, DriftModelNone:
	default:
		return fmt.Errorf("drift_model must be %q or %q, got %q", DriftModelLinear, DriftModelNone, m)
	}

	if v := c.GetDriftVelocity(); !(v > 0) {
		return fmt.Errorf("drift_velocity_cm_per_ns must be positive, got %f", v)
	}

	if lo, hi := c.GetMinDriftTime(), c.GetMaxDriftTime(); lo >= hi {
		return fmt.Errorf("min_drift_time_ns (%f) must be below max_drift_time_ns (%f)", lo, hi)
	}

	if r := c.GetHitResolution(); !(r > 0) {
		return fmt.Errorf("hit_resolution_cm must be positive, got %f", r)
	}

	if n := c.GetMinMeasurements(); n < 2 {
		return fmt.Errorf("min_measurements must be at least 2, got %d", n)
	}

	if m := c.GetMaxChi2PerDOF(); m < 0 || math.IsNaN(m) {
		return fmt.Errorf("max_chi2_per_dof must be non-negative, got %f", m)
	}

	if w := c.GetWorkers(); w < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", w)
	}

	if s := c.GetTransformCacheSize(); s < 0 {
		return fmt.Errorf("transform_cache_size must be non-negative, got %d", s)
	}

	return nil
}

// GetDriftModel returns the drift_model value or the default.
func (c *RecoConfig) GetDriftModel() string {
	if c.DriftModel == nil || *c.DriftModel == "" {
		return DriftModelLinear
	}
	return *c.DriftModel
}

// GetDriftVelocity returns the drift_velocity_cm_per_ns value or the default.
func (c *RecoConfig) GetDriftVelocity() float64 {
	if c.DriftVelocity == nil {
		return 0.00543 // 54.3 µm/ns
	}
	return *c.DriftVelocity
}

// GetT0Offset returns the t0_offset_ns value or the default.
func (c *RecoConfig) GetT0Offset() float64 {
	if c.T0Offset == nil {
		return 0
	}
	return *c.T0Offset
}

// GetMinDriftTime returns the min_drift_time_ns value or the default.
func (c *RecoConfig) GetMinDriftTime() float64 {
	if c.MinDriftTime == nil {
		return -3
	}
	return *c.MinDriftTime
}

// GetMaxDriftTime returns the max_drift_time_ns value or the default.
func (c *RecoConfig) GetMaxDriftTime() float64 {
	if c.MaxDriftTime == nil {
		return 415
	}
	return *c.MaxDriftTime
}

// GetHitResolution returns the hit_resolution_cm value or the default.
func (c *RecoConfig) GetHitResolution() float64 {
	if c.HitResolution == nil {
		return 0.02
	}
	return *c.HitResolution
}

// GetMinMeasurements returns the min_measurements value or the default.
func (c *RecoConfig) GetMinMeasurements() int {
	if c.MinMeasurements == nil {
		return 3
	}
	return *c.MinMeasurements
}

// GetPositionPass returns the position_pass value or the default.
func (c *RecoConfig) GetPositionPass() bool {
	if c.PositionPass == nil {
		return false
	}
	return *c.PositionPass
}

// GetMaxChi2PerDOF returns the max_chi2_per_dof value or the default
// (0: no limit).
func (c *RecoConfig) GetMaxChi2PerDOF() float64 {
	if c.MaxChi2PerDOF == nil {
		return 0
	}
	return *c.MaxChi2PerDOF
}

// GetWorkers returns the workers value or the default (0: one per CPU).
func (c *RecoConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetTransformCacheSize returns the transform_cache_size value or the default.
func (c *RecoConfig) GetTransformCacheSize() int {
	if c.TransformCacheSize == nil {
		return 1024
	}
	return *c.TransformCacheSize
}
