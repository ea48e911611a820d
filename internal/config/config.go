package config

import (
	"github.com/mvp-joe/project-triage/internal/cascade"
	"github.com/mvp-joe/project-triage/internal/report"
)

// Config represents the complete triage configuration.
// It can be loaded from .triage/config.yml with environment variable overrides.
type Config struct {
	Source   SourceConfig   `yaml:"source" mapstructure:"source"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Report   ReportConfig   `yaml:"report" mapstructure:"report"`
}

// SourceConfig defines where the project lives and which files to scan
// for exported symbols.
type SourceConfig struct {
	Root    string   `yaml:"root" mapstructure:"root"`       // project root diagnostic paths are relative to
	Include []string `yaml:"include" mapstructure:"include"` // glob patterns for source files
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`   // glob patterns to skip
}

// AnalysisConfig tunes the cascade analysis.
type AnalysisConfig struct {
	PhaseSizes    []int `yaml:"phase_sizes" mapstructure:"phase_sizes"`       // cluster caps for leading plan phases
	LineTolerance int   `yaml:"line_tolerance" mapstructure:"line_tolerance"` // declaring-line match window
	Workers       int   `yaml:"workers" mapstructure:"workers"`               // resolution concurrency, 0 = GOMAXPROCS
}

// ReportConfig tunes markdown report rendering.
type ReportConfig struct {
	ContextLines int  `yaml:"context_lines" mapstructure:"context_lines"` // snippet padding around root lines
	MaxCascades  int  `yaml:"max_cascades" mapstructure:"max_cascades"`   // per-cluster cascade listing cap
	Snippets     bool `yaml:"snippets" mapstructure:"snippets"`           // include source snippets
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Root: ".",
			Include: []string{
				"**/*.ts",
				"**/*.tsx",
			},
			Ignore: []string{
				"node_modules/**",
				"dist/**",
				"build/**",
				"coverage/**",
				"**/*.test.ts",
				"**/*.spec.ts",
				"**/*.test.tsx",
				"**/*.spec.tsx",
			},
		},
		Analysis: AnalysisConfig{
			PhaseSizes:    append([]int(nil), cascade.DefaultPhaseSizes...),
			LineTolerance: cascade.DefaultLineTolerance,
			Workers:       0, // auto
		},
		Report: ReportConfig{
			ContextLines: report.DefaultContextLines,
			MaxCascades:  report.DefaultMaxCascades,
			Snippets:     true,
		},
	}
}

// SourceExtensions extracts unique file extensions from include patterns.
// Returns extensions with leading dot (e.g., []string{".ts", ".tsx"}).
func (c *Config) SourceExtensions() []string {
	extMap := make(map[string]bool)
	for _, pattern := range c.Source.Include {
		if ext := extractExtension(pattern); ext != "" {
			extMap[ext] = true
		}
	}

	extensions := make([]string, 0, len(extMap))
	for ext := range extMap {
		extensions = append(extensions, ext)
	}
	return extensions
}

// WatchIgnoreDirs extracts directory basenames from ignore patterns for
// the file watcher, which prunes by directory name rather than by glob.
// "node_modules/**" contributes "node_modules"; file patterns contribute
// nothing.
func (c *Config) WatchIgnoreDirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, pattern := range c.Source.Ignore {
		name, rest, found := cutDirPrefix(pattern)
		if !found || name == "" || name == "*" || name == "**" {
			continue
		}
		if rest != "**" && rest != "" {
			continue
		}
		if !seen[name] {
			seen[name] = true
			dirs = append(dirs, name)
		}
	}
	return dirs
}

// cutDirPrefix splits "node_modules/**" into ("node_modules", "**", true).
func cutDirPrefix(pattern string) (dir, rest string, found bool) {
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '/' {
			return pattern[:i], pattern[i+1:], true
		}
	}
	return "", "", false
}

// extractExtension extracts the file extension from a glob pattern.
// Returns empty string if the pattern doesn't end in a simple extension.
// Examples: "**/*.ts" -> ".ts", "*.tsx" -> ".tsx"
func extractExtension(pattern string) string {
	for i := len(pattern) - 1; i >= 1; i-- {
		if pattern[i] == '.' && pattern[i-1] == '*' {
			return pattern[i:]
		}
	}
	return ""
}
