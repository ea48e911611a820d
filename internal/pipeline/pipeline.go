// Package pipeline wires log parsing, symbol scanning, and cascade
// analysis into one run. The CLI and the MCP server both go through it,
// so a run means the same thing everywhere.
package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/mvp-joe/project-triage/internal/cascade"
	"github.com/mvp-joe/project-triage/internal/config"
	"github.com/mvp-joe/project-triage/internal/diagnostic"
	"github.com/mvp-joe/project-triage/internal/symtab"
)

// Pipeline runs the full analysis for one project. It is cheap to build
// and safe to Run repeatedly; watch mode reuses one instance across
// re-runs.
type Pipeline struct {
	cfg      *config.Config
	logPath  string
	progress symtab.ScanProgress
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithScanProgress reports symbol scanning progress, e.g. to a CLI
// progress bar.
func WithScanProgress(p symtab.ScanProgress) Option {
	return func(pl *Pipeline) {
		pl.progress = p
	}
}

// New creates a pipeline for the given configuration and type-checker
// log. logPath may be "-" to read the log from stdin, though such a
// pipeline can only run once.
func New(cfg *config.Config, logPath string, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, logPath: logPath}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run parses the log, scans the source tree for exported symbols, and
// analyzes the diagnostics. It returns the analysis result together with
// the parsed diagnostics, which downstream consumers (report rendering,
// search indexing) need alongside the result.
func (p *Pipeline) Run(ctx context.Context) (*cascade.Result, []diagnostic.Diagnostic, error) {
	diags, err := p.parse()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse diagnostics: %w", err)
	}

	symbols, err := p.scan(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan symbols: %w", err)
	}

	result, err := cascade.Analyze(ctx, diags, symbols, cascade.Options{
		PhaseSizes:    p.cfg.Analysis.PhaseSizes,
		LineTolerance: p.cfg.Analysis.LineTolerance,
		Workers:       p.cfg.Analysis.Workers,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to analyze diagnostics: %w", err)
	}

	return result, diags, nil
}

func (p *Pipeline) parse() ([]diagnostic.Diagnostic, error) {
	if p.logPath == "-" {
		return diagnostic.ParseLog(os.Stdin)
	}
	return diagnostic.ParseFile(p.logPath)
}

func (p *Pipeline) scan(ctx context.Context) ([]symtab.Symbol, error) {
	var opts []symtab.ScannerOption
	if p.progress != nil {
		opts = append(opts, symtab.WithProgress(p.progress))
	}

	scanner, err := symtab.NewScanner(p.cfg.Source.Root, p.cfg.Source.Include, p.cfg.Source.Ignore, opts...)
	if err != nil {
		return nil, err
	}
	return scanner.Scan(ctx)
}
