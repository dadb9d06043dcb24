// Package config provides configuration loading and management for fmriexport.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Input parameters
	Input struct {
		// Dataset overrides 4D dataset auto-detection with an exact path
		// inside the container
		Dataset string `yaml:"dataset"`

		// TimeAxis is the explicit time-axis index (0..3), or -1 to let the
		// shape heuristic decide
		TimeAxis int `yaml:"timeAxis"`

		// TRSeconds overrides the repetition time; 0 reads it from the
		// container attributes
		TRSeconds float64 `yaml:"trSeconds"`
	} `yaml:"input"`

	// Processing parameters
	Processing struct {
		// Mode selects the normalization: "raw" or "psc"
		Mode string `yaml:"mode"`

		// Baseline selects the PSC baseline strategy: "firstN" or "mean"
		Baseline string `yaml:"baseline"`

		// BaselineN is the number of leading frames averaged when
		// baseline is "firstN"
		BaselineN int `yaml:"baselineN"`

		// ClampLow and ClampHigh bound the PSC percent window
		ClampLow  float64 `yaml:"clampLow"`
		ClampHigh float64 `yaml:"clampHigh"`

		// PercentileLow and PercentileHigh bound the raw-mode window
		PercentileLow  float64 `yaml:"percentileLow"`
		PercentileHigh float64 `yaml:"percentileHigh"`

		// Downsample is the integer spatial reduction factor (1 = none)
		Downsample int `yaml:"downsample"`

		// CropCenter enables the bounding-box crop stage
		CropCenter bool `yaml:"cropCenter"`

		// CropThreshold is the time-mean intensity cut for the crop mask
		CropThreshold float64 `yaml:"cropThreshold"`

		// CropMargin is the zero-fill padding around the cropped box
		CropMargin int `yaml:"cropMargin"`

		// NumCores specifies how many CPU cores to use for parallel frame
		// writes
		NumCores int `yaml:"numCores"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// Dir is the output directory for frames and the manifest
		Dir string `yaml:"dir"`

		// Format selects the serialization convention: "mhd" or "vol"
		Format string `yaml:"format"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default input parameters
	cfg.Input.TimeAxis = -1

	// Set default processing parameters
	cfg.Processing.Mode = "psc"
	cfg.Processing.Baseline = "firstN"
	cfg.Processing.BaselineN = 10
	cfg.Processing.ClampLow = -5
	cfg.Processing.ClampHigh = 5
	cfg.Processing.PercentileLow = 1
	cfg.Processing.PercentileHigh = 99
	cfg.Processing.Downsample = 2
	cfg.Processing.CropThreshold = 0.05
	cfg.Processing.CropMargin = 2
	cfg.Processing.NumCores = runtime.NumCPU()

	// Set default output parameters
	cfg.Output.Dir = "unity_export"
	cfg.Output.Format = "mhd"
	cfg.Output.Verbose = true

	return cfg
}

// Validate checks the statically checkable fields of a loaded configuration.
// The pipeline revalidates its own parameter record; this catches YAML typos
// before any file is opened.
func (cfg *Config) Validate() error {
	if cfg.Input.TimeAxis < -1 || cfg.Input.TimeAxis > 3 {
		return fmt.Errorf("input.timeAxis must be 0..3 (or -1 for auto), got %d", cfg.Input.TimeAxis)
	}
	switch cfg.Processing.Mode {
	case "raw", "psc":
	default:
		return fmt.Errorf("processing.mode must be \"raw\" or \"psc\", got %q", cfg.Processing.Mode)
	}
	if cfg.Processing.Mode == "psc" {
		switch cfg.Processing.Baseline {
		case "firstN", "mean":
		default:
			return fmt.Errorf("processing.baseline must be \"firstN\" or \"mean\", got %q", cfg.Processing.Baseline)
		}
		if cfg.Processing.Baseline == "firstN" && cfg.Processing.BaselineN <= 0 {
			return fmt.Errorf("processing.baselineN must be at least 1, got %d", cfg.Processing.BaselineN)
		}
		if cfg.Processing.ClampLow >= cfg.Processing.ClampHigh {
			return fmt.Errorf("processing.clampLow %g must be below clampHigh %g", cfg.Processing.ClampLow, cfg.Processing.ClampHigh)
		}
	}
	if cfg.Processing.Mode == "raw" {
		if cfg.Processing.PercentileLow < 0 || cfg.Processing.PercentileHigh > 100 ||
			cfg.Processing.PercentileLow >= cfg.Processing.PercentileHigh {
			return fmt.Errorf("processing percentiles: need 0 <= low < high <= 100, got %g..%g",
				cfg.Processing.PercentileLow, cfg.Processing.PercentileHigh)
		}
	}
	if cfg.Processing.Downsample < 1 {
		return fmt.Errorf("processing.downsample must be at least 1, got %d", cfg.Processing.Downsample)
	}
	if cfg.Processing.CropCenter {
		if cfg.Processing.CropMargin < 0 {
			return fmt.Errorf("processing.cropMargin must be non-negative, got %d", cfg.Processing.CropMargin)
		}
		if cfg.Processing.CropThreshold < 0 || cfg.Processing.CropThreshold >= 1 {
			return fmt.Errorf("processing.cropThreshold must be in [0,1), got %g", cfg.Processing.CropThreshold)
		}
	}
	switch cfg.Output.Format {
	case "mhd", "vol":
	default:
		return fmt.Errorf("output.format must be \"mhd\" or \"vol\", got %q", cfg.Output.Format)
	}
	if cfg.Output.Dir == "" {
		return fmt.Errorf("output.dir must not be empty")
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
