// Package config provides configuration loading and management for amideroi.
// It handles loading configuration from YAML files, AMIDEROI_* environment
// variables and command-line flags, and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"amideroi/pkg/analysis"
	"amideroi/pkg/isocontour"
)

// Config represents the application configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	// LogFormat is text or json
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	Analysis   AnalysisConfig   `mapstructure:"analysis" yaml:"analysis"`
	Isocontour IsocontourConfig `mapstructure:"isocontour" yaml:"isocontour"`
	Output     OutputConfig     `mapstructure:"output" yaml:"output"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
}

// AnalysisConfig holds the defaults for ROI statistics.
type AnalysisConfig struct {
	// Accurate subsamples every boundary candidate instead of using the corner test
	Accurate bool `mapstructure:"accurate" yaml:"accurate"`
	// Inverse analyzes everything outside the ROI
	Inverse bool `mapstructure:"inverse" yaml:"inverse"`
	// Granularity is the number of subvoxel samples per axis
	Granularity int `mapstructure:"granularity" yaml:"granularity"`
	// Workers is the number of z-slabs analyzed in parallel
	Workers int `mapstructure:"workers" yaml:"workers"`
	// Calculation selects the voxels entering the statistics
	Calculation string `mapstructure:"calculation" yaml:"calculation"`
	// CalculationParam is the fraction, percent or threshold of the calculation
	CalculationParam float64 `mapstructure:"calculation_param" yaml:"calculation_param"`
}

// IsocontourConfig holds the defaults for isocontour fills.
type IsocontourConfig struct {
	Range string `mapstructure:"range" yaml:"range"`
}

// OutputConfig controls report and image output.
type OutputConfig struct {
	// Format is text or yaml
	Format string `mapstructure:"format" yaml:"format"`
	// Scale is the integer upscaling factor of written slice images
	Scale int `mapstructure:"scale" yaml:"scale"`
}

// MetricsConfig controls the prometheus textfile export.
type MetricsConfig struct {
	// Textfile, when set, receives the metrics after every command
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Analysis: AnalysisConfig{
			Granularity: analysis.DefaultGranularity,
			Workers:     runtime.NumCPU(),
			Calculation: analysis.AllVoxels.String(),
		},
		Isocontour: IsocontourConfig{
			Range: isocontour.AboveMin.String(),
		},
		Output: OutputConfig{
			Format: "text",
			Scale:  4,
		},
	}
}

// Validate checks every setting.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.LogFormat)
	}
	if c.Analysis.Granularity < 1 || c.Analysis.Granularity > 100 {
		return fmt.Errorf("analysis granularity must be in [1,100], got %d", c.Analysis.Granularity)
	}
	if c.Analysis.Workers < 0 {
		return fmt.Errorf("analysis workers must not be negative, got %d", c.Analysis.Workers)
	}
	if _, err := c.Analysis.Calc(); err != nil {
		return err
	}
	if _, err := isocontour.ParseRange(c.Isocontour.Range); err != nil {
		return err
	}
	switch c.Output.Format {
	case "text", "yaml":
	default:
		return fmt.Errorf("invalid output format %q", c.Output.Format)
	}
	if c.Output.Scale < 1 {
		return fmt.Errorf("output scale must be at least 1, got %d", c.Output.Scale)
	}
	return nil
}

// Options returns the iteration options.
func (a AnalysisConfig) Options() analysis.Options {
	return analysis.Options{Accurate: a.Accurate, Inverse: a.Inverse, Granularity: a.Granularity}
}

// Calc returns the configured voxel selection.
func (a AnalysisConfig) Calc() (analysis.Calculation, error) {
	return analysis.ParseCalculation(a.Calculation, a.CalculationParam)
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
