package advconfig

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Watcher reports changes of a configuration file. It watches the parent
// directory so atomic replacements (pending file + rename) are seen, debounces
// bursts of events and limits how often the change callback runs.
type Watcher struct {
	fsWatcher     *fsnotify.Watcher
	path          string
	debounceDelay time.Duration
	limiter       *rate.Limiter
	logger        *zap.Logger

	mu     sync.Mutex
	closed bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDelay sets how long the watcher waits for events to settle.
// Default is 100ms.
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDelay = d
	}
}

// WithReloadLimit limits change callbacks to rps per second with the given
// burst. Non-positive values disable the limit.
func WithReloadLimit(rps float64, burst int) WatcherOption {
	return func(w *Watcher) {
		if rps <= 0 || burst <= 0 {
			w.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		w.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithWatcherLogger sets the watcher logger.
func WithWatcherLogger(logger *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher creates a watcher for the file at path.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsWatcher:     fsWatcher,
		path:          absPath,
		debounceDelay: 100 * time.Millisecond,
		limiter:       rate.NewLimiter(rate.Limit(1), 2),
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := fsWatcher.Add(filepath.Dir(absPath)); err != nil {
		if closeErr := fsWatcher.Close(); closeErr != nil {
			w.logger.Error("failed to close watcher after add failure", zap.Error(closeErr))
		}
		return nil, err
	}
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Watch blocks until ctx is canceled or the watcher is closed, calling
// onChange on the calling goroutine after the file was written or replaced.
// A change arriving while the reload limit is exhausted is delivered once the
// limiter allows it, never dropped.
func (w *Watcher) Watch(ctx context.Context, onChange func()) error {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return ErrWatcherClosed
	}

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		fileKey = filepath.Base(w.path)
		// readyAt is set while a rate limit reservation is pending.
		readyAt time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	arm := func(d time.Duration) {
		if timer == nil {
			timer = time.NewTimer(d)
		} else {
			timer.Reset(d)
		}
		timerC = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			if !shouldProcessEvent(event, fileKey) {
				continue
			}
			delay := w.debounceDelay
			if wait := time.Until(readyAt); wait > delay {
				delay = wait
			}
			arm(delay)

		case <-timerC:
			timerC = nil
			if readyAt.IsZero() {
				if wait := w.limiter.Reserve().Delay(); wait > 0 {
					w.logger.Debug("config reload delayed by rate limit",
						zap.String("path", w.path),
						zap.Duration("delay", wait),
					)
					readyAt = time.Now().Add(wait)
					arm(wait)
					continue
				}
			}
			readyAt = time.Time{}
			onChange()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("config watcher error", zap.Error(err))
		}
	}
}

// shouldProcessEvent keeps Write and Create events of the watched file.
// Chmod events from indexers are ignored.
func shouldProcessEvent(event fsnotify.Event, fileKey string) bool {
	if filepath.Base(event.Name) != fileKey {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	w.closed = true
	return w.fsWatcher.Close()
}
