package memory

import (
	"context"
	"sync"

	"github.com/aretw0/formflow/pkg/schema"
)

// Source is an in-memory schema source. Set replaces the definition and
// signals every active watcher.
// Safe for concurrent use.
type Source struct {
	mu       sync.Mutex
	def      schema.Definition
	watchers []chan struct{}
}

// NewSource creates a Source serving def.
func NewSource(def schema.Definition) *Source {
	return &Source{def: def}
}

// Definition returns the current definition.
func (s *Source) Definition(ctx context.Context) (schema.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.def, nil
}

// Set replaces the definition.
func (s *Source) Set(def schema.Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.def = def
	for _, ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Watch returns a channel signalled on every Set until ctx is done.
func (s *Source) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, w := range s.watchers {
			if w == ch {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}
