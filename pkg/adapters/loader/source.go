package loader

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/formflow/internal/logging"
	"github.com/aretw0/formflow/pkg/ports"
	"github.com/aretw0/formflow/pkg/schema"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 200 * time.Millisecond

// File is a schema source backed by one file on disk.
type File struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
}

var (
	_ ports.SchemaSource = (*File)(nil)
	_ ports.Watchable    = (*File)(nil)
)

// FileOption configures a File source.
type FileOption func(*File)

// WithDebounce sets how long the file must stay quiet before a change is
// reported. Editors often write a file in several steps.
func WithDebounce(d time.Duration) FileOption {
	return func(f *File) {
		f.debounce = d
	}
}

// WithFileLogger sets the logger for watch errors.
func WithFileLogger(logger *slog.Logger) FileOption {
	return func(f *File) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFile creates a source reading path.
func NewFile(path string, opts ...FileOption) *File {
	f := &File{path: path, debounce: defaultDebounce, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the watched file path.
func (f *File) Path() string { return f.path }

// Definition decodes the file's current content.
func (f *File) Definition(ctx context.Context) (schema.Definition, error) {
	return LoadFile(f.path)
}

// Watch signals after the file changes. The parent directory is watched so
// atomic saves (write to temp, rename over) are seen too.
func (f *File) Watch(ctx context.Context) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	abs, err := filepath.Abs(f.path)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	out := make(chan struct{}, 1)
	go f.loop(ctx, w, abs, out)
	return out, nil
}

func (f *File) loop(ctx context.Context, w *fsnotify.Watcher, target string, out chan<- struct{}) {
	defer close(out)
	defer w.Close()

	timer := time.NewTimer(f.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(f.debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			f.logger.Warn("schema watch error", "path", f.path, "err", err)

		case <-timer.C:
			select {
			case out <- struct{}{}:
			default:
				// A signal is already pending.
			}
		}
	}
}
