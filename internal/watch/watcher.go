// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs a callback when manifest files change.
//
// A Watcher registers every directory below Dir with fsnotify, keeps events
// whose path matches one of the manifest patterns, and calls OnChange once the
// tree has been quiet for the debounce period. Callbacks never overlap: a
// change that arrives while OnChange is running is delivered on the next run.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("watch: Run called more than once")

var (
	// DefaultPatterns select the manifest formats the loader understands.
	DefaultPatterns = []string{"**/*.cue", "**/*.hcl", "**/*.toml"}

	defaultIgnores = []string{
		"**/.git/**",
		"**/*.swp",
		"**/*~",
		"**/.DS_Store",
	}
)

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Dir is the directory tree to watch, usually the root manifest's
		// directory. Empty means the working directory.
		Dir string
		// Patterns are doublestar globs relative to Dir. Empty means DefaultPatterns.
		Patterns []string
		// Ignore adds globs to the built-in ignore list.
		Ignore []string
		// Debounce is the quiet period before OnChange fires.
		Debounce time.Duration
		// OnChange receives the sorted, deduplicated changed paths relative to Dir.
		// A returned error is logged and watching continues.
		OnChange func(ctx context.Context, changed []string) error
		Logger   *slog.Logger
	}

	// Watcher watches a manifest tree. Run must be called once.
	Watcher struct {
		fsw      *fsnotify.Watcher
		dir      string
		patterns []string
		ignores  []string
		debounce time.Duration
		onChange func(ctx context.Context, changed []string) error
		logger   *slog.Logger
		started  atomic.Bool
	}

	// batch collects changed paths until the debounce timer fires.
	batch struct {
		mu      sync.Mutex
		pending map[string]struct{}
		timer   *time.Timer
	}
)

// New creates a Watcher and registers the directories below cfg.Dir.
func New(cfg Config) (*Watcher, error) {
	dir := cfg.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve directory: %w", err)
	}

	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	if err := validatePatterns(patterns, "watch"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		dir:      abs,
		patterns: slices.Clone(patterns),
		ignores:  slices.Concat(defaultIgnores, cfg.Ignore),
		debounce: debounce,
		onChange: cfg.OnChange,
		logger:   logger,
	}
	if err := w.addTree(abs); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Dir returns the absolute directory being watched.
func (w *Watcher) Dir() string { return w.dir }

// Run processes events until ctx is canceled. It returns nil on cancellation
// and an error when the underlying watcher breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	b := &batch{pending: make(map[string]struct{})}
	var busy atomic.Bool

	var fire func()
	fire = func() {
		if ctx.Err() != nil {
			return
		}
		if !busy.CompareAndSwap(false, true) {
			w.logger.Debug("change deferred, previous run still in progress")
			b.schedule(w.debounce, fire)
			return
		}
		defer busy.Store(false)

		changed := b.drain()
		if len(changed) == 0 || w.onChange == nil {
			return
		}
		w.logger.Debug("manifest files changed", "paths", changed)
		if err := w.onChange(ctx, changed); err != nil {
			w.logger.Error("change handler failed", "err", err)
		}
	}

	defer func() {
		b.stop()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("closing watcher failed", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			w.handle(evt, b, fire)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

func (w *Watcher) handle(evt fsnotify.Event, b *batch, fire func()) {
	rel, err := filepath.Rel(w.dir, evt.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	if matchAny(w.ignores, rel) {
		return
	}

	if evt.Has(fsnotify.Create) {
		if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
			if err := w.addTree(evt.Name); err != nil {
				w.logger.Warn("watching new directory failed", "dir", evt.Name, "err", err)
			}
			return
		}
	}
	if evt.Op == fsnotify.Chmod || !matchAny(w.patterns, rel) {
		return
	}

	b.add(rel)
	b.schedule(w.debounce, fire)
}

// addTree registers root and its non-ignored subdirectories. Unreadable
// directories are logged and skipped.
func (w *Watcher) addTree(root string) error {
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "err", walkErr)
			return nil //nolint:nilerr // keep watching the rest of the tree
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(w.dir, path)
		if err != nil {
			return nil //nolint:nilerr // outside the watched tree
		}
		rel = filepath.ToSlash(rel)
		if rel != "." && (matchAny(w.ignores, rel) || matchAny(w.ignores, rel+"/")) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk %s: %w", root, err)
	}
	return nil
}

func (b *batch) add(rel string) {
	b.mu.Lock()
	b.pending[rel] = struct{}{}
	b.mu.Unlock()
}

func (b *batch) schedule(d time.Duration, fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer == nil {
		b.timer = time.AfterFunc(d, fn)
		return
	}
	b.timer.Reset(d)
}

func (b *batch) drain() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	changed := slices.Sorted(maps.Keys(b.pending))
	clear(b.pending)
	return changed
}

func (b *batch) stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
	}
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid %s pattern %q: %w", label, pat, doublestar.ErrBadPattern)
		}
	}
	return nil
}
