// Package watch publishes volumes automatically as their source folders
// appear. It watches the source directory with fsnotify and debounces events
// per volume, so a slow copy of several hundred page scans triggers one
// publish once the folder goes quiet.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"tanko/internal/logging"
	"tanko/internal/naming"
)

// DefaultDebounce is how long a volume folder must stay quiet before it is
// published.
const DefaultDebounce = 5 * time.Second

// PublishFunc runs the pipeline for one volume.
type PublishFunc func(ctx context.Context, volume int) error

// Watcher publishes volume folders after their writes settle.
type Watcher struct {
	sourceDir string
	debounce  time.Duration
	publish   PublishFunc
	logger    *slog.Logger

	mu     sync.Mutex
	timers map[int]*time.Timer
}

// New constructs a watcher over the source directory.
func New(sourceDir string, debounce time.Duration, publish PublishFunc, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		sourceDir: sourceDir,
		debounce:  debounce,
		publish:   publish,
		logger:    logger.With(slog.String(logging.FieldComponent, "watch")),
		timers:    make(map[int]*time.Timer),
	}
}

// Run watches until the context is cancelled. Existing volume folders are not
// republished on startup; only folders that receive writes trigger a publish.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.sourceDir); err != nil {
		return fmt.Errorf("watch %s: %w", w.sourceDir, err)
	}
	entries, err := os.ReadDir(w.sourceDir)
	if err != nil {
		return fmt.Errorf("read source dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() && naming.VolumeNumber(entry.Name()) > 0 {
			if err := watcher.Add(filepath.Join(w.sourceDir, entry.Name())); err != nil {
				w.logger.Warn("cannot watch volume folder",
					slog.String("folder", entry.Name()),
					slog.Any("error", err))
			}
		}
	}

	w.logger.Info("watching for volume folders", slog.String("dir", w.sourceDir))
	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, watcher, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}

	rel, err := filepath.Rel(w.sourceDir, event.Name)
	if err != nil || rel == "." {
		return
	}
	folder := rel
	if idx := firstSeparator(rel); idx >= 0 {
		folder = rel[:idx]
	}
	volume := naming.VolumeNumber(folder)
	if volume == 0 {
		return
	}

	// A freshly created volume folder needs its own watch so page writes
	// inside it keep resetting the debounce.
	if event.Has(fsnotify.Create) && folder == rel {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := watcher.Add(event.Name); err != nil {
				w.logger.Warn("cannot watch volume folder",
					slog.String("folder", folder),
					slog.Any("error", err))
			}
		}
	}

	w.schedule(ctx, volume)
}

func (w *Watcher) schedule(ctx context.Context, volume int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.timers[volume]; ok {
		timer.Reset(w.debounce)
		return
	}
	w.timers[volume] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, volume)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		w.logger.Info("volume folder settled, publishing", slog.Int(logging.FieldVolume, volume))
		if err := w.publish(ctx, volume); err != nil {
			w.logger.Error("publish failed",
				slog.Int(logging.FieldVolume, volume),
				slog.Any("error", err))
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for volume, timer := range w.timers {
		timer.Stop()
		delete(w.timers, volume)
	}
}

func firstSeparator(path string) int {
	for i := 0; i < len(path); i++ {
		if os.IsPathSeparator(path[i]) {
			return i
		}
	}
	return -1
}
