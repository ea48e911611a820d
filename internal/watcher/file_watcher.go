// Package watcher re-triggers analysis when watched files change. Watch
// mode points it at the type-checker log and the source tree; events are
// debounced so one save burst becomes one re-run.
package watcher

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a change burst fires the
// callback.
const DefaultDebounce = 500 * time.Millisecond

// FileWatcher monitors files for changes with debouncing.
type FileWatcher interface {
	// Start begins watching, calling callback with debounced batches of
	// changed file paths.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the watcher and cleans up resources.
	Stop() error
}

// Config describes what to watch.
type Config struct {
	// Dirs are directories to watch recursively.
	Dirs []string
	// Extensions are file extensions to monitor (e.g. ".ts", ".tsx").
	Extensions []string
	// Files are exact paths to monitor regardless of extension; the
	// type-checker log usually lands here. Paths must take the same form
	// as Dirs entries so they match event paths.
	Files []string
	// IgnoreDirs are directory basenames never descended into
	// (e.g. "node_modules", ".git").
	IgnoreDirs []string
	// Debounce overrides the quiet period. Zero means DefaultDebounce.
	Debounce time.Duration
}

// fileWatcher implements FileWatcher.
type fileWatcher struct {
	watcher       *fsnotify.Watcher
	extensions    map[string]bool
	exactFiles    map[string]bool
	ignoreDirs    map[string]bool
	debounceTime  time.Duration
	callback      func(files []string)
	ctx           context.Context
	cancel        context.CancelFunc
	accumulated   map[string]bool
	accumulatedMu sync.Mutex
	debounceTimer *time.Timer
	timerMu       sync.Mutex
	stopOnce      sync.Once
	doneCh        chan struct{}
}

// NewFileWatcher creates a watcher over cfg's directories and files.
func NewFileWatcher(cfg Config) (FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	extMap := make(map[string]bool)
	for _, ext := range cfg.Extensions {
		extMap[ext] = true
	}
	fileMap := make(map[string]bool)
	for _, f := range cfg.Files {
		fileMap[filepath.Clean(f)] = true
	}
	ignoreMap := make(map[string]bool)
	for _, d := range cfg.IgnoreDirs {
		ignoreMap[d] = true
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw := &fileWatcher{
		watcher:      watcher,
		extensions:   extMap,
		exactFiles:   fileMap,
		ignoreDirs:   ignoreMap,
		debounceTime: debounce,
		accumulated:  make(map[string]bool),
		doneCh:       make(chan struct{}),
	}

	for _, dir := range cfg.Dirs {
		if err := fw.addDirectoriesRecursively(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	return fw, nil
}

// Start begins watching for file changes.
func (fw *fileWatcher) Start(ctx context.Context, callback func(files []string)) error {
	if callback == nil {
		return nil
	}

	fw.callback = callback
	fw.ctx, fw.cancel = context.WithCancel(ctx)

	go fw.watch()
	return nil
}

// Stop stops the file watcher.
func (fw *fileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		if fw.cancel != nil {
			fw.cancel()

			// Wait for goroutine to finish (only if Start() was called)
			<-fw.doneCh
		} else {
			// Never started, close doneCh manually
			close(fw.doneCh)
		}

		err = fw.watcher.Close()
	})
	return err
}

// watch is the main event loop.
func (fw *fileWatcher) watch() {
	defer close(fw.doneCh)

	rerunCh := make(chan struct{}, 1)

	for {
		select {
		case <-fw.ctx.Done():
			fw.stopDebounceTimer()
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			// New directories join the watch unless ignored.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if fw.ignoreDirs[filepath.Base(event.Name)] {
						continue
					}
					if err := fw.addDirectoriesRecursively(event.Name); err != nil {
						log.Printf("Warning: failed to watch new directory %s: %v", event.Name, err)
					}
				}
			}

			if !fw.shouldProcessEvent(event) {
				continue
			}

			fw.accumulatedMu.Lock()
			fw.accumulated[event.Name] = true
			fw.accumulatedMu.Unlock()

			fw.resetDebounceTimer(rerunCh)

		case <-rerunCh:
			fw.handleDebounceExpired()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("File watcher error: %v", err)
		}
	}
}

// handleDebounceExpired fires the callback with accumulated files.
func (fw *fileWatcher) handleDebounceExpired() {
	fw.accumulatedMu.Lock()
	if len(fw.accumulated) == 0 {
		fw.accumulatedMu.Unlock()
		return
	}

	files := make([]string, 0, len(fw.accumulated))
	for file := range fw.accumulated {
		files = append(files, file)
	}
	fw.accumulated = make(map[string]bool)
	fw.accumulatedMu.Unlock()

	if fw.callback != nil {
		fw.callback(files)
	}
}

// resetDebounceTimer resets the debounce timer, properly stopping the
// old one.
func (fw *fileWatcher) resetDebounceTimer(rerunCh chan struct{}) {
	fw.timerMu.Lock()
	defer fw.timerMu.Unlock()

	if fw.debounceTimer != nil {
		if !fw.debounceTimer.Stop() {
			// Timer already fired, drain the channel
			select {
			case <-fw.debounceTimer.C:
			default:
			}
		}
	}

	fw.debounceTimer = time.AfterFunc(fw.debounceTime, func() {
		select {
		case rerunCh <- struct{}{}:
		default:
		}
	})
}

// stopDebounceTimer stops the debounce timer if it exists.
func (fw *fileWatcher) stopDebounceTimer() {
	fw.timerMu.Lock()
	defer fw.timerMu.Unlock()

	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
		fw.debounceTimer = nil
	}
}

// shouldProcessEvent checks whether an event names a monitored file.
func (fw *fileWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) == 0 {
		return false
	}

	if fw.exactFiles[filepath.Clean(event.Name)] {
		return true
	}
	return fw.extensions[filepath.Ext(event.Name)]
}

// addDirectoriesRecursively adds the directory tree to the watcher,
// skipping ignored directory names.
func (fw *fileWatcher) addDirectoriesRecursively(rootPath string) error {
	return filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == rootPath {
				return err
			}
			log.Printf("Warning: error accessing %s: %v", path, err)
			return nil
		}

		if !info.IsDir() {
			return nil
		}
		if path != rootPath && fw.ignoreDirs[info.Name()] {
			return filepath.SkipDir
		}

		if err := fw.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to watch directory %s: %v", path, err)
			return nil
		}

		return nil
	})
}
