// Package mcp exposes triage analysis over the Model Context Protocol,
// so coding assistants can ask for the fix plan, inspect clusters, and
// search diagnostics while the underlying project keeps changing.
package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/project-triage/internal/cascade"
	"github.com/mvp-joe/project-triage/internal/config"
	"github.com/mvp-joe/project-triage/internal/diagnostic"
	"github.com/mvp-joe/project-triage/internal/pipeline"
	"github.com/mvp-joe/project-triage/internal/report"
	"github.com/mvp-joe/project-triage/internal/search"
	"github.com/mvp-joe/project-triage/internal/watcher"
)

// Snapshot is one run's analysis: the result, the diagnostics it ran on,
// and a search index over them. Snapshots are immutable once published;
// a reload swaps in a whole new one.
type Snapshot struct {
	Result   *cascade.Result
	Diags    []diagnostic.Diagnostic
	Searcher search.Searcher

	byID map[string]diagnostic.Diagnostic
}

// Diagnostic looks up a diagnostic in this snapshot by ID.
func (s *Snapshot) Diagnostic(id string) (diagnostic.Diagnostic, bool) {
	d, ok := s.byID[id]
	return d, ok
}

// SnapshotProvider hands tool handlers a consistent view of the latest
// run. Handlers grab one snapshot per request and never see a half
// swapped state.
type SnapshotProvider interface {
	Snapshot() *Snapshot
}

// Server manages the MCP server lifecycle: initial analysis, tool
// registration, and watch-driven reloads.
type Server struct {
	cfg     *config.Config
	logPath string
	pipe    *pipeline.Pipeline
	reader  *report.ContextReader
	watcher watcher.FileWatcher
	mcp     *server.MCPServer

	mu   sync.RWMutex
	snap *Snapshot
}

// NewServer runs the first analysis and prepares the MCP server. The log
// must be a real file; stdio carries the protocol, so the log cannot
// come from stdin here.
func NewServer(ctx context.Context, cfg *config.Config, logPath string) (*Server, error) {
	if logPath == "-" {
		return nil, fmt.Errorf("mcp mode requires a log file path, not stdin")
	}

	reader, err := report.NewContextReader(cfg.Source.Root)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		logPath: logPath,
		pipe:    pipeline.New(cfg, logPath),
		reader:  reader,
	}

	if err := s.Reload(ctx); err != nil {
		reader.Close()
		return nil, err
	}

	mcpServer := server.NewMCPServer(
		"triage-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	AddTriagePlanTool(mcpServer, s)
	AddTriageClusterTool(mcpServer, s, s.reader)
	AddTriageSearchTool(mcpServer, s)
	s.mcp = mcpServer

	fw, err := watcher.NewFileWatcher(watcher.Config{
		Dirs:       []string{cfg.Source.Root, filepath.Dir(logPath)},
		Extensions: cfg.SourceExtensions(),
		Files:      []string{logPath},
		IgnoreDirs: append(cfg.WatchIgnoreDirs(), ".git", ".triage"),
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	s.watcher = fw

	return s, nil
}

// Snapshot returns the latest published snapshot.
func (s *Server) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Reload re-runs the pipeline and swaps in a fresh snapshot. The old
// snapshot's search index is closed after the swap; in-flight searches
// finish against it first.
func (s *Server) Reload(ctx context.Context) error {
	result, diags, err := s.pipe.Run(ctx)
	if err != nil {
		return err
	}

	searcher, err := search.NewSearcher(ctx, diags)
	if err != nil {
		return fmt.Errorf("failed to build search index: %w", err)
	}

	byID := make(map[string]diagnostic.Diagnostic, len(diags))
	for _, d := range diags {
		byID[d.ID] = d
	}

	s.mu.Lock()
	old := s.snap
	s.snap = &Snapshot{Result: result, Diags: diags, Searcher: searcher, byID: byID}
	s.mu.Unlock()

	if old != nil && old.Searcher != nil {
		if err := old.Searcher.Close(); err != nil {
			log.Printf("Warning: failed to close previous search index: %v", err)
		}
	}
	if s.reader != nil {
		s.reader.Reset()
	}

	log.Printf("Analysis loaded: %d diagnostics, %d roots, %d cascades",
		result.Stats.Diagnostics, result.Stats.Roots, result.Stats.Cascades)
	return nil
}

// Serve starts the MCP server on stdio and blocks until shutdown. File
// changes re-run the analysis in the background.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	err := s.watcher.Start(ctx, func(files []string) {
		log.Printf("Detected %d changed files, re-running analysis...", len(files))
		if err := s.Reload(ctx); err != nil {
			log.Printf("Warning: reload failed, keeping previous analysis: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer s.watcher.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting MCP server on stdio...")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	select {
	case <-sigCh:
		log.Printf("Received shutdown signal, stopping gracefully...")
		cancel()
		return nil
	case err := <-errCh:
		cancel()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases all resources.
func (s *Server) Close() error {
	if s.watcher != nil {
		s.watcher.Stop()
	}

	s.mu.Lock()
	snap := s.snap
	s.snap = nil
	s.mu.Unlock()

	var err error
	if snap != nil && snap.Searcher != nil {
		err = snap.Searcher.Close()
	}
	if s.reader != nil {
		s.reader.Close()
		s.reader = nil
	}
	return err
}
