// Package watch polls a template directory for changed .sql files so
// long-running processes can evict stale cached template text and pick up
// edits without a restart.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// TemplateWatcher polls baseDir for changed or newly created *.sql files.
type TemplateWatcher struct {
	baseDir      string
	pollInterval time.Duration
	mtimes       map[string]time.Time
	mu           sync.Mutex
	cancel       context.CancelFunc
}

// NewTemplateWatcher builds a watcher rooted at baseDir with a default
// 1-second poll interval.
func NewTemplateWatcher(baseDir string) *TemplateWatcher {
	return &TemplateWatcher{
		baseDir:      baseDir,
		pollInterval: time.Second,
		mtimes:       make(map[string]time.Time),
	}
}

// SetPollInterval sets how often the watcher rescans baseDir.
func (w *TemplateWatcher) SetPollInterval(d time.Duration) {
	w.pollInterval = d
}

// Start seeds the initial mtime snapshot and begins polling in a goroutine,
// sending the relative path of every changed or new template on changed. A
// full channel drops the notification rather than blocking the poll loop.
func (w *TemplateWatcher) Start(ctx context.Context, changed chan<- string) error {
	if err := w.scan(nil); err != nil {
		return fmt.Errorf("failed to seed template watch: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	go w.loop(ctx, changed)
	return nil
}

// Stop ends the polling goroutine.
func (w *TemplateWatcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}

func (w *TemplateWatcher) loop(ctx context.Context, changed chan<- string) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.scan(changed); err != nil {
				fmt.Fprintf(os.Stderr, "template watch: %v\n", err)
			}
		}
	}
}

// scan walks baseDir, compares mtimes against the last snapshot, and (when
// changed is non-nil) sends every new or modified path.
func (w *TemplateWatcher) scan(changed chan<- string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return filepath.WalkDir(w.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".sql") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(w.baseDir, path)
		if err != nil {
			rel = path
		}
		mtime := info.ModTime()
		if prev, ok := w.mtimes[rel]; !ok || !prev.Equal(mtime) {
			w.mtimes[rel] = mtime
			if changed != nil {
				select {
				case changed <- rel:
				default:
				}
			}
		}
		return nil
	})
}
