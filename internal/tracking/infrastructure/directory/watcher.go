package directory

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/domain"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher serves the directory file and reloads it when it changes on disk.
// Each reload swaps in a whole new ReferenceData; a file that fails to parse
// leaves the previous data in place.
type Watcher struct {
	path     string
	current  atomic.Pointer[domain.ReferenceData]
	reloads  atomic.Uint64
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewWatcher loads path and prepares a watcher for it. Call Start to begin
// watching and Close to release it.
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ref, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	w := &Watcher{
		path:     filepath.Clean(path),
		watcher:  fw,
		debounce: defaultDebounce,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	w.current.Store(&ref)
	return w, nil
}

// WithDebounce sets how long changes settle before a reload.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	if d > 0 {
		w.debounce = d
	}
	return w
}

// Reference implements domain.ReferenceProvider.
func (w *Watcher) Reference() domain.ReferenceData {
	return *w.current.Load()
}

// Reloads returns how many successful reloads happened.
func (w *Watcher) Reloads() uint64 {
	return w.reloads.Load()
}

// Start watches the directory containing the file, so editors that replace
// the file by rename are seen too.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}
	w.started.Store(true)
	go w.run(ctx)
	w.logger.Info("watching owner directory", "path", w.path)
	return nil
}

// Close stops the watcher and waits for its loop to exit.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		err = w.watcher.Close()
	})
	if w.started.Load() {
		<-w.doneCh
	}
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	var (
		timer  *time.Timer
		reload <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			reload = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("owner directory watch error", "error", err)
		case <-reload:
			reload = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	ref, err := LoadFile(w.path)
	if err != nil {
		w.logger.Warn("owner directory reload failed, keeping previous", "path", w.path, "error", err)
		return
	}
	w.current.Store(&ref)
	w.reloads.Add(1)
	w.logger.Info("owner directory reloaded",
		"path", w.path,
		"owners", ref.Owners.Len(),
		"overrides", ref.Overrides.Len(),
	)
}
