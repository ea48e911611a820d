// Package report renders analysis results for humans: a markdown triage
// report with optional source snippets around each root cause.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/maypok86/otter"
)

const (
	// DefaultContextLines is the snippet padding around a root's line.
	DefaultContextLines = 3
	// MaxContextLines caps caller-supplied padding.
	MaxContextLines = 20

	// cachedLineBudget bounds the file cache by total cached lines, not
	// file count, so a handful of giant generated files cannot pin the
	// whole budget.
	cachedLineBudget = 200_000
)

// ContextReader reads source snippets around diagnostic locations. File
// contents are cached in a cost-bounded LRU keyed by relative path, so
// watch-mode re-renders do not reread unchanged files from disk.
type ContextReader struct {
	rootDir string
	cache   otter.Cache[string, []string]
}

// NewContextReader creates a reader rooted at the project directory that
// diagnostic file paths are relative to.
func NewContextReader(rootDir string) (*ContextReader, error) {
	cache, err := otter.MustBuilder[string, []string](cachedLineBudget).
		Cost(func(key string, lines []string) uint32 {
			return uint32(len(lines) + 1)
		}).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build file cache: %w", err)
	}
	return &ContextReader{rootDir: rootDir, cache: cache}, nil
}

// Snippet returns contextLines of padding around line, with a marker on
// the line itself. Lines are 1-indexed, matching diagnostics.
func (r *ContextReader) Snippet(file string, line, contextLines int) (string, error) {
	if contextLines <= 0 {
		contextLines = DefaultContextLines
	}
	if contextLines > MaxContextLines {
		contextLines = MaxContextLines
	}

	lines, err := r.fileLines(file)
	if err != nil {
		return "", err
	}
	if line < 1 || line > len(lines) {
		return "", fmt.Errorf("line %d out of range for %s", line, file)
	}

	from := max(0, line-contextLines-1)
	to := min(len(lines), line+contextLines)

	var b strings.Builder
	for i := from; i < to; i++ {
		marker := "  "
		if i+1 == line {
			marker = "> "
		}
		fmt.Fprintf(&b, "%s%4d | %s\n", marker, i+1, lines[i])
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// Reset drops all cached file contents. Watch mode calls this between
// runs so snippets never show pre-edit sources.
func (r *ContextReader) Reset() {
	r.cache.Clear()
}

// Close releases the cache's resources.
func (r *ContextReader) Close() {
	r.cache.Close()
}

func (r *ContextReader) fileLines(relPath string) ([]string, error) {
	if lines, ok := r.cache.Get(relPath); ok {
		return lines, nil
	}

	fullPath := filepath.Join(r.rootDir, filepath.FromSlash(relPath))
	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(string(content), "\n")
	r.cache.Set(relPath, lines)
	return lines, nil
}
