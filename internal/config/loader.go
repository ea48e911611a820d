package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (TRIAGE_*)
// 2. Config file (.triage/config.yml or .triage/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".triage")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	// Enable environment variable overrides
	v.SetEnvPrefix("TRIAGE")
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., TRIAGE_ANALYSIS_WORKERS)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind scalar keys; list values (include, ignore, phase_sizes) come
	// from the file or defaults only.
	v.BindEnv("source.root")
	v.BindEnv("analysis.line_tolerance")
	v.BindEnv("analysis.workers")
	v.BindEnv("report.context_lines")
	v.BindEnv("report.max_cascades")
	v.BindEnv("report.snippets")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("source.root", defaults.Source.Root)
	v.SetDefault("source.include", defaults.Source.Include)
	v.SetDefault("source.ignore", defaults.Source.Ignore)

	v.SetDefault("analysis.phase_sizes", defaults.Analysis.PhaseSizes)
	v.SetDefault("analysis.line_tolerance", defaults.Analysis.LineTolerance)
	v.SetDefault("analysis.workers", defaults.Analysis.Workers)

	v.SetDefault("report.context_lines", defaults.Report.ContextLines)
	v.SetDefault("report.max_cascades", defaults.Report.MaxCascades)
	v.SetDefault("report.snippets", defaults.Report.Snippets)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
