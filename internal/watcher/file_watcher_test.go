package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for FileWatcher:
// - NewFileWatcher creates watcher successfully with valid directories
// - NewFileWatcher returns error with invalid directory
// - Single file change fires callback after debounce
// - Rapid changes are batched and deduplicated into one callback
// - Exact file paths are monitored regardless of extension
// - Extension filtering (only monitored extensions trigger callback)
// - Ignored directories never trigger callbacks
// - Directory added triggers recursive watch
// - Stop() cleanup and concurrent Stop() calls are safe
// - Context cancellation stops watcher

// collectingCallback gathers batches and signals each invocation.
type collectingCallback struct {
	mu     sync.Mutex
	files  []string
	count  int
	called chan struct{}
}

func newCollectingCallback() *collectingCallback {
	return &collectingCallback{called: make(chan struct{}, 10)}
}

func (c *collectingCallback) fn(files []string) {
	c.mu.Lock()
	c.files = append(c.files, files...)
	c.count++
	c.mu.Unlock()
	c.called <- struct{}{}
}

func (c *collectingCallback) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.called:
	case <-time.After(2 * time.Second):
		t.Fatal("Callback not called after timeout")
	}
}

func (c *collectingCallback) snapshot() ([]string, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.files...), c.count
}

func startWatcher(t *testing.T, cfg Config) (FileWatcher, *collectingCallback) {
	t.Helper()
	if cfg.Debounce == 0 {
		cfg.Debounce = 100 * time.Millisecond
	}
	w, err := NewFileWatcher(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	cb := newCollectingCallback()
	require.NoError(t, w.Start(context.Background(), cb.fn))

	// Wait for watcher to initialize
	time.Sleep(100 * time.Millisecond)
	return w, cb
}

// Test: NewFileWatcher creates watcher successfully with valid directories
func TestNewFileWatcher_Success(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher(Config{
		Dirs:       []string{t.TempDir()},
		Extensions: []string{".ts", ".tsx"},
	})
	require.NoError(t, err)
	require.NotNil(t, w)
	require.NoError(t, w.Stop())
}

// Test: NewFileWatcher returns error with invalid directory
func TestNewFileWatcher_InvalidDirectory(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher(Config{
		Dirs:       []string{filepath.Join(t.TempDir(), "nonexistent")},
		Extensions: []string{".ts"},
	})
	assert.Error(t, err)
	assert.Nil(t, w)
}

// Test: Single file change fires callback after debounce
func TestFileWatcher_SingleFileChange(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	_, cb := startWatcher(t, Config{Dirs: []string{tempDir}, Extensions: []string{".ts"}})

	testFile := filepath.Join(tempDir, "user.ts")
	require.NoError(t, os.WriteFile(testFile, []byte("export const a = 1;"), 0644))

	cb.wait(t)
	files, _ := cb.snapshot()
	assert.Equal(t, []string{testFile}, files)
}

// Test: Rapid changes are batched and deduplicated into one callback
func TestFileWatcher_BatchingAndDeduplication(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	_, cb := startWatcher(t, Config{
		Dirs:       []string{tempDir},
		Extensions: []string{".ts"},
		Debounce:   200 * time.Millisecond,
	})

	file1 := filepath.Join(tempDir, "a.ts")
	file2 := filepath.Join(tempDir, "b.ts")
	require.NoError(t, os.WriteFile(file1, []byte("// v1"), 0644))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(file1, []byte("// v2"), 0644))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(file2, []byte("// v1"), 0644))

	cb.wait(t)

	// Wait a bit more to ensure no additional callbacks
	time.Sleep(400 * time.Millisecond)

	files, count := cb.snapshot()
	assert.Equal(t, 1, count, "rapid changes should coalesce into one callback")
	assert.Len(t, files, 2, "same file should appear once despite repeated writes")
	assert.Contains(t, files, file1)
	assert.Contains(t, files, file2)
}

// Test: Exact file paths are monitored regardless of extension
func TestFileWatcher_ExactFile(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	logFile := filepath.Join(tempDir, "tsc.log")
	require.NoError(t, os.WriteFile(logFile, []byte(""), 0644))

	_, cb := startWatcher(t, Config{
		Dirs:       []string{tempDir},
		Extensions: []string{".ts"},
		Files:      []string{logFile},
	})

	require.NoError(t, os.WriteFile(logFile, []byte("src/a.ts(1,1): error TS2304: x\n"), 0644))

	cb.wait(t)
	files, _ := cb.snapshot()
	assert.Contains(t, files, logFile)
}

// Test: Extension filtering (only monitored extensions trigger callback)
func TestFileWatcher_ExtensionFiltering(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	_, cb := startWatcher(t, Config{Dirs: []string{tempDir}, Extensions: []string{".ts", ".tsx"}})

	tsFile := filepath.Join(tempDir, "app.ts")
	tsxFile := filepath.Join(tempDir, "view.tsx")
	jsFile := filepath.Join(tempDir, "build.js")
	txtFile := filepath.Join(tempDir, "notes.txt")

	require.NoError(t, os.WriteFile(tsFile, []byte("a"), 0644))
	require.NoError(t, os.WriteFile(tsxFile, []byte("b"), 0644))
	require.NoError(t, os.WriteFile(jsFile, []byte("c"), 0644))
	require.NoError(t, os.WriteFile(txtFile, []byte("d"), 0644))

	cb.wait(t)
	files, _ := cb.snapshot()
	assert.Contains(t, files, tsFile)
	assert.Contains(t, files, tsxFile)
	assert.NotContains(t, files, jsFile)
	assert.NotContains(t, files, txtFile)
}

// Test: Ignored directories never trigger callbacks
func TestFileWatcher_IgnoredDirectories(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	modDir := filepath.Join(tempDir, "node_modules")
	require.NoError(t, os.Mkdir(modDir, 0755))

	_, cb := startWatcher(t, Config{
		Dirs:       []string{tempDir},
		Extensions: []string{".ts"},
		IgnoreDirs: []string{"node_modules"},
	})

	ignored := filepath.Join(modDir, "dep.ts")
	watched := filepath.Join(tempDir, "app.ts")
	require.NoError(t, os.WriteFile(ignored, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(watched, []byte("y"), 0644))

	cb.wait(t)
	files, _ := cb.snapshot()
	assert.Contains(t, files, watched)
	assert.NotContains(t, files, ignored)
}

// Test: Directory added triggers recursive watch
func TestFileWatcher_DirectoryAdded(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	_, cb := startWatcher(t, Config{Dirs: []string{tempDir}, Extensions: []string{".ts"}})

	newDir := filepath.Join(tempDir, "components")
	require.NoError(t, os.Mkdir(newDir, 0755))

	// Wait for directory to be added to watcher
	time.Sleep(300 * time.Millisecond)

	nested := filepath.Join(newDir, "button.ts")
	require.NoError(t, os.WriteFile(nested, []byte("export {}"), 0644))

	cb.wait(t)
	files, _ := cb.snapshot()
	assert.Contains(t, files, nested)
}

// Test: Stop() cleanup and concurrent Stop() calls are safe
func TestFileWatcher_Stop(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher(Config{Dirs: []string{t.TempDir()}, Extensions: []string{".ts"}})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background(), func(files []string) {}))
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	require.NoError(t, w.Stop())
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Stop()
		}()
	}
	wg.Wait()
}

// Test: Context cancellation stops watcher
func TestFileWatcher_ContextCancellation(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher(Config{Dirs: []string{t.TempDir()}, Extensions: []string{".ts"}})
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx, func(files []string) {}))
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	cancel()

	fw := w.(*fileWatcher)
	<-fw.doneCh
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
