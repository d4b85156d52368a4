// Package config provides configuration loading and management for astrowaves.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"astrowaves/pkg/drift"
	"astrowaves/pkg/pafft"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Spatial drift correction parameters
	Correction struct {
		// Method names the correction strategy, currently only "subregion"
		Method string `yaml:"method"`

		// WindowSize is the side length of the tracked reference window in pixels
		WindowSize int `yaml:"windowSize"`

		// Margin is the border excluded from reference window selection
		Margin int `yaml:"margin"`

		// Workers specifies how many frames are corrected in parallel
		Workers int `yaml:"workers"`
	} `yaml:"correction"`

	// Histogram alignment parameters
	PAFFT struct {
		// Enabled runs histogram alignment after spatial correction
		Enabled bool `yaml:"enabled"`

		// ShiftPerc is the largest allowed drift in percent of the intensity range
		ShiftPerc float64 `yaml:"shiftPerc"`

		// SegSize is the base segment size in histogram bins
		SegSize int `yaml:"segSize"`
	} `yaml:"pafft"`

	// Input parameters
	Input struct {
		// FrameStart is the first frame kept
		FrameStart int `yaml:"frameStart"`

		// FrameEnd is the exclusive last frame, 0 keeps everything
		FrameEnd int `yaml:"frameEnd"`
	} `yaml:"input"`

	// Output parameters
	Output struct {
		// Debug renders before/after frame sequences and diagnostic plots
		Debug bool `yaml:"debug"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Correction.Method = "subregion"
	cfg.Correction.WindowSize = 100
	cfg.Correction.Margin = 50
	cfg.Correction.Workers = runtime.NumCPU() // Use all available cores by default

	cfg.PAFFT.Enabled = false
	cfg.PAFFT.ShiftPerc = 0.1
	cfg.PAFFT.SegSize = 200

	cfg.Input.FrameStart = 0
	cfg.Input.FrameEnd = 0

	cfg.Output.Debug = false
	cfg.Output.Verbose = true

	return cfg
}

// Validate checks the configuration for values the correction cannot run with
func (c *Config) Validate() error {
	if _, err := drift.ParseMethod(c.Correction.Method); err != nil {
		return err
	}
	if c.Correction.WindowSize <= 0 {
		return fmt.Errorf("windowSize must be positive, got %d", c.Correction.WindowSize)
	}
	if c.Correction.Margin < 0 {
		return fmt.Errorf("margin must be non-negative, got %d", c.Correction.Margin)
	}
	if c.PAFFT.SegSize <= 0 {
		return fmt.Errorf("segSize must be positive, got %d", c.PAFFT.SegSize)
	}
	if c.PAFFT.ShiftPerc < 0 {
		return fmt.Errorf("shiftPerc must be non-negative, got %g", c.PAFFT.ShiftPerc)
	}
	if c.Input.FrameStart < 0 {
		return fmt.Errorf("frameStart must be non-negative, got %d", c.Input.FrameStart)
	}
	if c.Input.FrameEnd != 0 && c.Input.FrameEnd <= c.Input.FrameStart {
		return fmt.Errorf("frameEnd %d must be after frameStart %d", c.Input.FrameEnd, c.Input.FrameStart)
	}
	return nil
}

// DriftOptions returns the subregion correction options
func (c *Config) DriftOptions() drift.Options {
	return drift.Options{
		WindowSize: c.Correction.WindowSize,
		Margin:     c.Correction.Margin,
		Workers:    c.Correction.Workers,
	}
}

// PAFFTOptions returns the histogram alignment options
func (c *Config) PAFFTOptions() pafft.Options {
	return pafft.Options{
		ShiftPerc: c.PAFFT.ShiftPerc,
		SegSize:   c.PAFFT.SegSize,
		Workers:   c.Correction.Workers,
	}
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
