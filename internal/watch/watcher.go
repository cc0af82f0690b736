// Package watch submits media files dropped into a spool directory as
// transcription jobs.
package watch

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"verbatim/internal/jobs"
)

// settleDelay is how long a new file must stop growing before it is
// treated as fully written.
const settleDelay = 2 * time.Second

// Watcher monitors a spool directory and submits completed files.
type Watcher struct {
	dir     string
	manager *jobs.Manager
}

// New creates a watcher for the given directory.
func New(dir string, manager *jobs.Manager) *Watcher {
	return &Watcher{dir: dir, manager: manager}
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return err
	}
	log.Printf("[Watch] Watching spool directory %s", w.dir)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create == 0 {
				continue
			}
			if skipName(filepath.Base(event.Name)) {
				continue
			}
			go w.submitWhenSettled(ctx, event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[Watch] Watcher error: %v", err)
		}
	}
}

// submitWhenSettled waits until the file stops growing, then submits it.
func (w *Watcher) submitWhenSettled(ctx context.Context, path string) {
	var lastSize int64 = -1
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(settleDelay):
		}

		info, err := os.Stat(path)
		if err != nil {
			return // removed before it settled
		}
		if info.IsDir() {
			return
		}
		if info.Size() == lastSize {
			break
		}
		lastSize = info.Size()
	}

	id, err := w.manager.Submit(path, filepath.Base(path), "")
	if err != nil {
		log.Printf("[Watch] Failed to submit %s: %v", path, err)
		return
	}
	log.Printf("[Watch] Submitted spooled file %s as job %s", filepath.Base(path), id)
}

func skipName(name string) bool {
	return strings.HasPrefix(name, ".") ||
		strings.HasSuffix(name, ".tmp") ||
		strings.HasSuffix(name, ".part")
}
