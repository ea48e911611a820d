// Package cli implements the triage command line: analyze a
// type-checker log into a fix plan, search its diagnostics, or serve
// the analysis over MCP.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/project-triage/internal/config"
)

var srcDir string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Root-cause triage for type-checker diagnostics",
	Long: `Triage separates type-checker diagnostics into root causes and the
cascades they drag along, then emits a phased fix plan ordered by how
many diagnostics fixing each root eliminates.

Feed it a tsc log (file or stdin) and a project root. It parses the
diagnostics, scans the project's exported symbols, links each
diagnostic to the declarations its message implicates, and clusters
everything under the roots actually worth fixing.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&srcDir, "src", "", "project root directory (default: current directory)")
}

// loadConfig loads .triage/config.yml from the project directory and
// resolves the configured source root against it.
func loadConfig() (*config.Config, error) {
	projectDir := srcDir
	if projectDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		projectDir = wd
	}

	cfg, err := config.LoadConfigFromDir(projectDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if !filepath.IsAbs(cfg.Source.Root) {
		cfg.Source.Root = filepath.Join(projectDir, cfg.Source.Root)
	}
	return cfg, nil
}
