package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "amideroi"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "AMIDEROI"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader over v. A nil v uses the global viper instance,
// so that cobra flag bindings are seen.
func NewLoader(v *viper.Viper) *Loader {
	if v == nil {
		v = viper.GetViper()
	}
	return &Loader{v: v}
}

// Viper returns the underlying viper instance.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load reads configFile, or searches the standard locations when it is
// empty, then applies environment variables and validates the result. A
// missing file in the search locations is not an error.
func (l *Loader) Load(configFile string) (*Config, error) {
	l.setupEnvironmentVariables()
	l.setDefaults()

	if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			return nil, fmt.Errorf("config file %s: %w", configFile, err)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return l.Unmarshal()
}

// Unmarshal decodes and validates the current viper state, including any
// flags bound since Load.
func (l *Loader) Unmarshal() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// ConfigFileUsed returns the path of the config file read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")
	if configDir, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		l.v.AddConfigPath(filepath.Join(configDir, "amideroi"))
	} else if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "amideroi"))
	}
	l.v.AddConfigPath("/etc/amideroi")
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("log_format", d.LogFormat)

	l.v.SetDefault("analysis.accurate", d.Analysis.Accurate)
	l.v.SetDefault("analysis.inverse", d.Analysis.Inverse)
	l.v.SetDefault("analysis.granularity", d.Analysis.Granularity)
	l.v.SetDefault("analysis.workers", d.Analysis.Workers)
	l.v.SetDefault("analysis.calculation", d.Analysis.Calculation)
	l.v.SetDefault("analysis.calculation_param", d.Analysis.CalculationParam)

	l.v.SetDefault("isocontour.range", d.Isocontour.Range)

	l.v.SetDefault("output.format", d.Output.Format)
	l.v.SetDefault("output.scale", d.Output.Scale)

	l.v.SetDefault("metrics.textfile", d.Metrics.Textfile)
}
