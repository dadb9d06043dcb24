package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig checks the documented default parameter set.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Input.TimeAxis != -1 {
		t.Errorf("Expected automatic time axis (-1), got %d", cfg.Input.TimeAxis)
	}
	if cfg.Processing.Mode != "psc" || cfg.Processing.Baseline != "firstN" {
		t.Errorf("Unexpected default mode/baseline: %s/%s", cfg.Processing.Mode, cfg.Processing.Baseline)
	}
	if cfg.Processing.BaselineN != 10 {
		t.Errorf("Expected baselineN 10, got %d", cfg.Processing.BaselineN)
	}
	if cfg.Processing.ClampLow != -5 || cfg.Processing.ClampHigh != 5 {
		t.Errorf("Expected clamp [-5,5], got [%g,%g]", cfg.Processing.ClampLow, cfg.Processing.ClampHigh)
	}
	if cfg.Processing.Downsample != 2 {
		t.Errorf("Expected downsample 2, got %d", cfg.Processing.Downsample)
	}
	if cfg.Output.Format != "mhd" {
		t.Errorf("Expected mhd format, got %s", cfg.Output.Format)
	}
}

// TestLoadConfigMissingFile verifies the defaults fallback.
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Processing.Mode != "psc" {
		t.Errorf("Expected default config, got mode %s", cfg.Processing.Mode)
	}
}

// TestConfigRoundTrip verifies save/load through YAML.
func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Processing.Mode = "raw"
	cfg.Processing.Downsample = 4
	cfg.Output.Dir = "frames_out"
	cfg.Output.Format = "vol"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Processing.Mode != "raw" || loaded.Processing.Downsample != 4 {
		t.Errorf("Processing values did not round-trip: %+v", loaded.Processing)
	}
	if loaded.Output.Dir != "frames_out" || loaded.Output.Format != "vol" {
		t.Errorf("Output values did not round-trip: %+v", loaded.Output)
	}
}

// TestLoadConfigPartialOverride verifies that unset YAML keys keep defaults.
func TestLoadConfigPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	partial := "processing:\n  downsample: 3\n"
	if err := os.WriteFile(path, []byte(partial), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Processing.Downsample != 3 {
		t.Errorf("Expected overridden downsample 3, got %d", cfg.Processing.Downsample)
	}
	if cfg.Processing.Mode != "psc" {
		t.Errorf("Expected default mode to survive, got %s", cfg.Processing.Mode)
	}
}

// TestConfigValidate verifies that the default configuration validates and
// that out-of-range YAML values are rejected before any file is touched.
func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("Default configuration must validate: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"BadTimeAxis", func(c *Config) { c.Input.TimeAxis = 7 }},
		{"BadMode", func(c *Config) { c.Processing.Mode = "linear" }},
		{"BadBaseline", func(c *Config) { c.Processing.Baseline = "median" }},
		{"BadBaselineN", func(c *Config) { c.Processing.BaselineN = 0 }},
		{"InvertedClamp", func(c *Config) { c.Processing.ClampLow = 5; c.Processing.ClampHigh = -5 }},
		{"BadDownsample", func(c *Config) { c.Processing.Downsample = 0 }},
		{"NegativeCropMargin", func(c *Config) { c.Processing.CropCenter = true; c.Processing.CropMargin = -1 }},
		{"BadCropThreshold", func(c *Config) { c.Processing.CropCenter = true; c.Processing.CropThreshold = 2 }},
		{"BadFormat", func(c *Config) { c.Output.Format = "npy" }},
		{"EmptyDir", func(c *Config) { c.Output.Dir = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected a validation error, got none")
			}
		})
	}
}
