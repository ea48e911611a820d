package cli

// Test Plan for Analyze Command:
// - Markdown report lands in --out with the plan and cluster sections
// - JSON format carries the result plus the parsed diagnostics
// - Watch mode rejects stdin
// - Unknown formats are rejected before any work runs
// - A missing log fails with a parse error

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/project-triage/internal/cascade"
	"github.com/mvp-joe/project-triage/internal/diagnostic"
)

// resetAnalyzeFlags puts the command's package state back to defaults.
// CLI tests cannot run in parallel because of this shared state.
func resetAnalyzeFlags() {
	srcDir = ""
	outPath = ""
	formatFlag = "md"
	contextFlag = 0
	quietFlag = true
	watchFlag = false
}

func writeFixtureFile(t *testing.T, root, relPath, content string) string {
	t.Helper()
	fullPath := filepath.Join(root, filepath.FromSlash(relPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0o755))
	require.NoError(t, os.WriteFile(fullPath, []byte(content), 0o644))
	return fullPath
}

// fixtureCLIProject writes a project where a broken import at the User
// declaration drags one downstream diagnostic with it.
func fixtureCLIProject(t *testing.T) (rootDir, logPath string) {
	t.Helper()
	rootDir = t.TempDir()

	writeFixtureFile(t, rootDir, "src/models/user.ts", `import { Role } from './role';

export interface User {
  id: string;
  role: Role;
}
`)
	writeFixtureFile(t, rootDir, "src/api/handler.ts", `import { User } from '../models/user';

export function loadUser(id: string): User {
  return { id } as User;
}
`)

	logPath = writeFixtureFile(t, rootDir, "tsc.log", `src/models/user.ts(1,10): error TS2305: Module '"./role"' has no exported member 'Role'.
src/api/handler.ts(4,3): error TS2322: Type 'string' is not assignable to type 'User'.
`)
	return rootDir, logPath
}

func TestRunAnalyze_MarkdownReport(t *testing.T) {
	resetAnalyzeFlags()
	rootDir, logPath := fixtureCLIProject(t)
	srcDir = rootDir
	outPath = filepath.Join(t.TempDir(), "triage.md")

	require.NoError(t, runAnalyze(analyzeCmd, []string{logPath}))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "# Diagnostic Triage Report")
	assert.Contains(t, out, "## Fix plan")
	assert.Contains(t, out, "src/models/user.ts:1:10 `TS2305`")
	assert.Contains(t, out, "```", "snippets are on by default")
}

func TestRunAnalyze_JSONReport(t *testing.T) {
	resetAnalyzeFlags()
	rootDir, logPath := fixtureCLIProject(t)
	srcDir = rootDir
	formatFlag = "json"
	outPath = filepath.Join(t.TempDir(), "triage.json")

	require.NoError(t, runAnalyze(analyzeCmd, []string{logPath}))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var out struct {
		cascade.Result
		Diagnostics []diagnostic.Diagnostic `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, 2, out.Stats.Diagnostics)
	assert.Len(t, out.Diagnostics, 2)
	require.Len(t, out.Clusters, 1)
	assert.Equal(t, "src/models/user.ts", out.Clusters[0].Root.File)
	assert.Len(t, out.Clusters[0].CascadeIDs, 1)
}

func TestRunAnalyze_WatchRejectsStdin(t *testing.T) {
	resetAnalyzeFlags()
	watchFlag = true

	err := runAnalyze(analyzeCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not stdin")
}

func TestRunAnalyze_InvalidFormat(t *testing.T) {
	resetAnalyzeFlags()
	formatFlag = "yaml"

	err := runAnalyze(analyzeCmd, []string{"tsc.log"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be md or json")
}

func TestRunAnalyze_MissingLog(t *testing.T) {
	resetAnalyzeFlags()
	rootDir := t.TempDir()
	srcDir = rootDir

	err := runAnalyze(analyzeCmd, []string{filepath.Join(rootDir, "no-such.log")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse diagnostics")
}
