package daemon

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces bursts of filesystem events (a single `git
// checkout` can touch dozens of files) into one staleness signal, per the
// teacher's event-loop debouncer idiom.
const debounceWindow = 300 * time.Millisecond

// watchDocs watches docsDir for changes and calls markStale (debounced)
// whenever something under it changes, until stop is closed. Runs in its
// own goroutine; never touches the index directly so the daemon's startup
// sequencing stays linear and testable.
func watchDocs(docsDir string, markStale func(), log *slog.Logger, stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := addRecursive(watcher, docsDir); err != nil {
		_ = watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		var timer *time.Timer
		pending := make(chan struct{}, 1)

		for {
			select {
			case <-stop:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if event.Op&fsnotify.Create != 0 {
					_ = addRecursive(watcher, event.Name)
				}
				if timer == nil {
					timer = time.AfterFunc(debounceWindow, func() {
						select {
						case pending <- struct{}{}:
						default:
						}
					})
				} else {
					timer.Reset(debounceWindow)
				}
			case <-pending:
				markStale()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("docs watcher error", "error", err)
			}
		}
	}()
	return nil
}

// addRecursive registers every directory under root with watcher; fsnotify
// does not recurse on its own.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // tolerate a vanished path mid-walk
		}
		if info.IsDir() {
			_ = watcher.Add(path)
		}
		return nil
	})
}
