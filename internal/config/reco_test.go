package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultRecoConfig(t *testing.T) {
	cfg := DefaultRecoConfig()

	if cfg.DriftModel == nil || *cfg.DriftModel != DriftModelLinear {
		t.Errorf("Expected DriftModel %q, got %v", DriftModelLinear, cfg.DriftModel)
	}
	if cfg.DriftVelocity == nil || *cfg.DriftVelocity != 0.00543 {
		t.Errorf("Expected DriftVelocity 0.00543, got %v", cfg.DriftVelocity)
	}
	if cfg.PositionPass == nil || *cfg.PositionPass != false {
		t.Errorf("Expected PositionPass false, got %v", cfg.PositionPass)
	}
	if cfg.MinMeasurements == nil || *cfg.MinMeasurements != 3 {
		t.Errorf("Expected MinMeasurements 3, got %v", cfg.MinMeasurements)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestEmptyRecoConfig_Getters(t *testing.T) {
	cfg := EmptyRecoConfig()

	if got := cfg.GetDriftModel(); got != DriftModelLinear {
		t.Errorf("GetDriftModel() = %q, want %q", got, DriftModelLinear)
	}
	if got := cfg.GetHitResolution(); got != 0.02 {
		t.Errorf("GetHitResolution() = %f, want 0.02", got)
	}
	if got := cfg.GetMaxDriftTime(); got != 415 {
		t.Errorf("GetMaxDriftTime() = %f, want 415", got)
	}
	if got := cfg.GetMaxChi2PerDOF(); got != 0 {
		t.Errorf("GetMaxChi2PerDOF() = %f, want 0 (no limit)", got)
	}
	if got := cfg.GetWorkers(); got != 0 {
		t.Errorf("GetWorkers() = %d, want 0", got)
	}
	if got := cfg.GetTransformCacheSize(); got != 1024 {
		t.Errorf("GetTransformCacheSize() = %d, want 1024", got)
	}
}

func TestLoadRecoConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "reco.json")

	testJSON := `{
  "drift_model": "none",
  "drift_velocity_cm_per_ns": 0.0055,
  "position_pass": true,
  "max_chi2_per_dof": 25,
  "workers": 4
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadRecoConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetDriftModel() != DriftModelNone {
		t.Errorf("Expected drift model none, got %q", cfg.GetDriftModel())
	}
	if cfg.GetDriftVelocity() != 0.0055 {
		t.Errorf("Expected drift velocity 0.0055, got %f", cfg.GetDriftVelocity())
	}
	if !cfg.GetPositionPass() {
		t.Error("Expected position pass enabled")
	}
	if cfg.GetMaxChi2PerDOF() != 25 {
		t.Errorf("Expected max chi2/dof 25, got %f", cfg.GetMaxChi2PerDOF())
	}
	if cfg.GetWorkers() != 4 {
		t.Errorf("Expected 4 workers, got %d", cfg.GetWorkers())
	}
	// Omitted fields fall back to defaults.
	if cfg.GetMinMeasurements() != 3 {
		t.Errorf("Expected default min measurements 3, got %d", cfg.GetMinMeasurements())
	}
}

func TestLoadRecoConfig_Errors(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"wrong extension", "reco.yaml", `{}`, ".json extension"},
		{"bad json", "bad.json", `{"workers": `, "parse config JSON"},
		{"unknown model", "model.json", `{"drift_model": "parametrized"}`, "drift_model"},
		{"zero velocity", "vel.json", `{"drift_velocity_cm_per_ns": 0}`, "drift_velocity"},
		{"inverted window", "win.json", `{"min_drift_time_ns": 500}`, "min_drift_time_ns"},
		{"one hit", "hits.json", `{"min_measurements": 1}`, "min_measurements"},
		{"negative chi2 limit", "chi2.json", `{"max_chi2_per_dof": -1}`, "max_chi2_per_dof"},
		{"negative workers", "workers.json", `{"workers": -1}`, "workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadRecoConfig(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}

	if _, err := LoadRecoConfig(filepath.Join(tmpDir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults file does not validate: %v", err)
	}
	want := DefaultRecoConfig()
	if cfg.GetDriftVelocity() != want.GetDriftVelocity() {
		t.Errorf("defaults file drift velocity %f, code default %f", cfg.GetDriftVelocity(), want.GetDriftVelocity())
	}
	if cfg.GetMinMeasurements() != want.GetMinMeasurements() {
		t.Errorf("defaults file min measurements %d, code default %d", cfg.GetMinMeasurements(), want.GetMinMeasurements())
	}
}
