// Package watch reports debounced changes to a set of files.
//
// Parent directories are watched rather than the files themselves so that
// editors which save by writing a new file and renaming it over the old one
// keep triggering events.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"cutagent/internal/logging"
)

// DefaultDebounce coalesces bursts of events such as an editor's
// write-then-chmod sequence.
const DefaultDebounce = 250 * time.Millisecond

const relevantOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove

// Options tunes a Watcher.
type Options struct {
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher observes a fixed set of files.
type Watcher struct {
	watcher  *fsnotify.Watcher
	targets  map[string]bool
	debounce time.Duration
	logger   *slog.Logger
}

// New starts watching paths. Watches are in place when New returns.
func New(paths []string, opts Options) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("watch: no paths given")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fsw,
		targets:  make(map[string]bool, len(paths)),
		debounce: opts.Debounce,
		logger:   logging.NewComponentLogger(opts.Logger, "watch"),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		w.targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return w, nil
}

// Run calls onChange with the sorted set of changed files after each burst
// of events settles. It returns when ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, changed []string)) error {
	defer w.watcher.Close()

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending = make(map[string]bool)
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			name := filepath.Clean(event.Name)
			if !w.targets[name] || event.Op&relevantOps == 0 {
				continue
			}
			w.logger.Debug("file changed",
				logging.String("path", name),
				logging.String("op", event.Op.String()))
			pending[name] = true
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(w.logger, "file watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some changes may be missed"))

		case <-timerC:
			timerC = nil
			changed := make([]string, 0, len(pending))
			for name := range pending {
				changed = append(changed, name)
			}
			sort.Strings(changed)
			clear(pending)
			onChange(ctx, changed)
		}
	}
}

// Close stops watching without running.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
