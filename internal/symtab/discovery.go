package symtab

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// Discovery walks a source tree and selects the files worth scanning,
// using include globs and ignore rules against slash-separated paths
// relative to the root.
type Discovery struct {
	rootDir        string
	includes       []compiledPattern
	ignorePatterns []compiledPattern
}

// NewDiscovery compiles the patterns up front so Discover can run
// repeatedly (watch mode rescans) without re-parsing them.
func NewDiscovery(rootDir string, includePatterns, ignorePatterns []string) (*Discovery, error) {
	d := &Discovery{rootDir: rootDir}

	for _, pattern := range includePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		d.includes = append(d.includes, compiledPattern{pattern: pattern, glob: g})
	}

	for _, pattern := range ignorePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		d.ignorePatterns = append(d.ignorePatterns, compiledPattern{pattern: pattern, glob: g})
	}

	return d, nil
}

// Discover returns the absolute paths of all matching files in walk order.
// Ignored directories are pruned without descending, so node_modules trees
// cost nothing.
func (d *Discovery) Discover() ([]string, error) {
	var files []string

	err := filepath.Walk(d.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(d.rootDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			if relPath != "." && d.shouldIgnore(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.shouldIgnore(relPath) {
			return nil
		}

		if d.matchesAnyPattern(relPath, d.includes) {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// shouldIgnore checks if a path matches any ignore pattern.
func (d *Discovery) shouldIgnore(relPath string) bool {
	// Always ignore the tool's own state directory
	if strings.HasPrefix(relPath, ".triage/") || relPath == ".triage" {
		return true
	}

	if d.matchesAnyPattern(relPath, d.ignorePatterns) {
		return true
	}

	// Also check if this is a directory that would match with /** suffix.
	// For example, "node_modules" should match pattern "node_modules/**"
	pathWithSuffix := relPath + "/**"
	return d.matchesAnyPattern(pathWithSuffix, d.ignorePatterns)
}

// matchesAnyPattern checks if a path matches any of the given patterns.
func (d *Discovery) matchesAnyPattern(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// Special handling: if path is in root (no slash), also try matching
	// against patterns with the **/ prefix removed so "**/*.ts" matches
	// "index.ts" as well as "src/index.ts".
	if !strings.Contains(path, "/") {
		for _, cp := range patterns {
			if strings.HasPrefix(cp.pattern, "**/") {
				simplified := strings.TrimPrefix(cp.pattern, "**/")
				if simplifiedGlob, err := glob.Compile(simplified, '/'); err == nil {
					if simplifiedGlob.Match(path) {
						return true
					}
				}
			}
		}
	}

	return false
}
