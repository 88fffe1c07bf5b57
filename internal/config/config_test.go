package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Integrator != "predictor_corrector" {
		t.Errorf("expected predictor_corrector integrator, got %s", cfg.Integrator)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Duration <= 0 {
		t.Error("duration should be positive")
	}
	if cfg.Finder.Eta <= 0 {
		t.Error("finder eta should be positive")
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("impact", "grazing")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if len(cfg.Bodies) != 2 {
		t.Errorf("expected 2 bodies, got %d", len(cfg.Bodies))
	}
	if cfg.Bodies[0].Eos.Kind != "tillotson" {
		t.Errorf("expected tillotson eos, got %s", cfg.Bodies[0].Eos.Kind)
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	cfg := GetPreset("impact", "nonexistent")
	if cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}

	cfg = GetPreset("nonexistent", "grazing")
	if cfg != nil {
		t.Error("expected nil for nonexistent regime")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets("impact")
	if len(presets) == 0 {
		t.Error("expected presets for impact")
	}

	presets = ListPresets("nonexistent")
	if presets != nil {
		t.Error("expected nil for nonexistent regime")
	}
}

func TestParamFallsBackToDefault(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.Param("missing", 42.0); got != 42.0 {
		t.Errorf("expected default 42.0, got %f", got)
	}
	cfg.Params["missing"] = 7.0
	if got := cfg.Param("missing", 42.0); got != 7.0 {
		t.Errorf("expected overridden 7.0, got %f", got)
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	cfg := GetPreset("granular", "bounce")
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Integrator != cfg.Integrator {
		t.Errorf("expected integrator %s, got %s", cfg.Integrator, loaded.Integrator)
	}
	if len(loaded.Bodies) != len(cfg.Bodies) {
		t.Errorf("expected %d bodies, got %d", len(cfg.Bodies), len(loaded.Bodies))
	}
	if loaded.Bodies[0].Rheology.Kind != cfg.Bodies[0].Rheology.Kind {
		t.Errorf("expected rheology %s, got %s", cfg.Bodies[0].Rheology.Kind, loaded.Bodies[0].Rheology.Kind)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file at %s: %v", path, err)
	}
}
