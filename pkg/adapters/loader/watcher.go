package loader

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/formflow/internal/logging"
	"github.com/aretw0/formflow/pkg/ports"
	"github.com/aretw0/formflow/pkg/schema"
)

// ErrNotWatchable is returned by Run when the source cannot report changes.
var ErrNotWatchable = errors.New("schema source is not watchable")

// ApplyFunc installs a freshly decoded definition, e.g. formflow.Engine.Reload.
type ApplyFunc func(schema.Definition) error

// Watcher reapplies a source's definition every time it changes.
// A definition that fails to decode or apply is logged and the previous
// schema stays in service.
type Watcher struct {
	source ports.SchemaSource
	apply  ApplyFunc
	logger *slog.Logger
	// onResult observes each reload attempt; used by tests and metrics.
	onResult func(error)
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets the watcher's logger.
func WithLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithResultHook calls fn after every reload attempt with its error (nil on success).
func WithResultHook(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onResult = fn
	}
}

// NewWatcher creates a Watcher.
func NewWatcher(source ports.SchemaSource, apply ApplyFunc, opts ...WatcherOption) *Watcher {
	w := &Watcher{source: source, apply: apply, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run blocks until ctx is done or the source stops signalling.
func (w *Watcher) Run(ctx context.Context) error {
	watchable, ok := w.source.(ports.Watchable)
	if !ok {
		return ErrNotWatchable
	}
	changes, err := watchable.Watch(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			w.reload(ctx)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	err := w.load(ctx)
	if err != nil {
		w.logger.Warn("schema reload failed, keeping current schema", "err", err)
	} else {
		w.logger.Info("schema change applied")
	}
	if w.onResult != nil {
		w.onResult(err)
	}
}

func (w *Watcher) load(ctx context.Context) error {
	def, err := w.source.Definition(ctx)
	if err != nil {
		return err
	}
	return w.apply(def)
}
