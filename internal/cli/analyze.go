package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/project-triage/internal/cascade"
	"github.com/mvp-joe/project-triage/internal/config"
	"github.com/mvp-joe/project-triage/internal/diagnostic"
	"github.com/mvp-joe/project-triage/internal/pipeline"
	"github.com/mvp-joe/project-triage/internal/report"
	"github.com/mvp-joe/project-triage/internal/watcher"
)

var (
	outPath     string
	formatFlag  string
	contextFlag int
	quietFlag   bool
	watchFlag   bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [logfile]",
	Short: "Analyze a type-checker log into a phased fix plan",
	Long: `Analyze parses a tsc log, scans the project for exported symbols,
classifies every diagnostic as a root cause or a cascade, and renders
a triage report with a phased fix plan.

The log comes from a file argument, or from stdin when the argument
is "-" or omitted.

Examples:
  # Pipe the checker straight in
  tsc --noEmit 2>&1 | triage analyze

  # Analyze a saved log and write the report to a file
  triage analyze tsc.log --out triage.md

  # Machine-readable output
  triage analyze tsc.log --format json

  # Re-analyze whenever the log or the sources change
  triage analyze tsc.log --watch --out triage.md
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the report to a file instead of stdout")
	analyzeCmd.Flags().StringVar(&formatFlag, "format", "md", "Report format: md or json")
	analyzeCmd.Flags().IntVar(&contextFlag, "context", 0, "Context lines around each root (overrides config)")
	analyzeCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress output")
	analyzeCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch the log and sources, re-analyzing on change")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if formatFlag != "md" && formatFlag != "json" {
		return fmt.Errorf("invalid format %q (must be md or json)", formatFlag)
	}

	logPath := "-"
	if len(args) > 0 {
		logPath = args[0]
	}
	if watchFlag && logPath == "-" {
		return fmt.Errorf("watch mode requires a log file path, not stdin")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if contextFlag > 0 {
		cfg.Report.ContextLines = contextFlag
	}

	var reader *report.ContextReader
	if formatFlag == "md" && cfg.Report.Snippets {
		reader, err = report.NewContextReader(cfg.Source.Root)
		if err != nil {
			return err
		}
		defer reader.Close()
	}

	pipe := pipeline.New(cfg, logPath, pipeline.WithScanProgress(NewScanProgressBar(quietFlag)))

	runOnce := func() error {
		result, diags, err := pipe.Run(ctx)
		if err != nil {
			return err
		}

		content, err := renderReport(cfg, reader, result, diags)
		if err != nil {
			return err
		}
		if err := writeReport(content); err != nil {
			return err
		}

		if !quietFlag {
			dest := outPath
			if dest == "" {
				dest = "stdout"
			}
			log.Printf("Analyzed %d diagnostics: %d roots, %d cascades (report: %s)",
				result.Stats.Diagnostics, result.Stats.Roots, result.Stats.Cascades, dest)
		}
		return nil
	}

	if err := runOnce(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("analysis cancelled")
		}
		return err
	}

	if !watchFlag {
		return nil
	}
	return watchAndRerun(ctx, cfg, logPath, reader, runOnce)
}

// watchAndRerun blocks, re-running the analysis whenever the log or a
// source file changes. A failed re-run keeps the previous report.
func watchAndRerun(ctx context.Context, cfg *config.Config, logPath string, reader *report.ContextReader, runOnce func() error) error {
	fw, err := watcher.NewFileWatcher(watcher.Config{
		Dirs:       []string{cfg.Source.Root, filepath.Dir(logPath)},
		Extensions: cfg.SourceExtensions(),
		Files:      []string{logPath},
		IgnoreDirs: append(cfg.WatchIgnoreDirs(), ".git", ".triage"),
	})
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Stop()

	err = fw.Start(ctx, func(files []string) {
		if !quietFlag {
			log.Printf("Detected %d changed files, re-running analysis...", len(files))
		}
		if reader != nil {
			reader.Reset()
		}
		if err := runOnce(); err != nil && ctx.Err() == nil {
			log.Printf("Warning: analysis failed, keeping previous report: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	if !quietFlag {
		log.Printf("Watching for changes (Ctrl+C to stop)...")
	}
	<-ctx.Done()
	return nil
}

// renderReport produces the report in the selected format. JSON output
// carries the parsed diagnostics alongside the result so cascade IDs
// can be resolved without the source log.
func renderReport(cfg *config.Config, reader *report.ContextReader, result *cascade.Result, diags []diagnostic.Diagnostic) (string, error) {
	if formatFlag == "json" {
		out := struct {
			*cascade.Result
			Diagnostics []diagnostic.Diagnostic `json:"diagnostics"`
		}{result, diags}

		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal result: %w", err)
		}
		return string(data) + "\n", nil
	}

	renderer := report.NewRenderer(report.Options{
		ContextLines: cfg.Report.ContextLines,
		MaxCascades:  cfg.Report.MaxCascades,
	}, reader)
	return renderer.Render(result, diags), nil
}

func writeReport(content string) error {
	if outPath == "" {
		fmt.Print(content)
		return nil
	}
	if err := os.WriteFile(outPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
