package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/formflow/internal/logging"
	"github.com/aretw0/formflow/internal/runtime"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/ports"
)

const defaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager runs engine operations against stored sessions, one user at a time.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	engine ports.FlowEngine
	store  ports.SessionStore

	mu    sync.Mutex            // guards locks
	locks map[string]*lockEntry // keyed by user id

	locker  ports.DistributedLocker // optional
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets how long a distributed lock survives a crashed holder.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager driving engine and persisting to store.
func NewManager(engine ports.FlowEngine, store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		engine:  engine,
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: defaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST lock entry.mu, and then call release(userID) after unlocking.
func (m *Manager) acquire(userID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[userID]
	if !exists {
		entry = &lockEntry{}
		m.locks[userID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[userID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, userID)
	}
}

// WithLock executes fn while holding the user's lock.
func (m *Manager) WithLock(ctx context.Context, userID string, fn func(context.Context) error) error {
	entry := m.acquire(userID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(userID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, userID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// The caller's ctx may already be done; the unlock still has to go out.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"user_id", userID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Begin resumes the user's active session or starts a new one. A finished or
// cancelled session is replaced, so a user can register again.
func (m *Manager) Begin(ctx context.Context, userID string, variant domain.Variant, facts domain.Facts, opts ...runtime.StartOption) (*domain.Session, error) {
	var s *domain.Session
	err := m.WithLock(ctx, userID, func(ctx context.Context) error {
		existing, err := m.store.Load(ctx, userID)
		switch {
		case err == nil && existing.Active():
			s = existing
			m.logger.Debug("session resumed", "user_id", userID, "session_id", s.ID)
			return nil
		case err != nil && !errors.Is(err, domain.ErrSessionNotFound):
			return fmt.Errorf("failed to check session existence: %w", err)
		}

		s, err = m.engine.Start(ctx, userID, variant, facts, opts...)
		if err != nil {
			return err
		}
		if err := m.store.Save(ctx, s); err != nil {
			return fmt.Errorf("failed to initialize session: %w", err)
		}
		return nil
	})
	return s, err
}

// Current returns the user's session and the question to ask, nil when none remains.
func (m *Manager) Current(ctx context.Context, userID string) (*domain.Session, *domain.Question, error) {
	s, err := m.Load(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if !s.Active() {
		return s, nil, nil
	}
	q, ok := m.engine.NextQuestion(s)
	if !ok {
		return s, nil, nil
	}
	return s, &q, nil
}

// Answer submits raw as the answer to questionID. Accepted answers are saved
// before returning; rejections leave the stored session untouched.
func (m *Manager) Answer(ctx context.Context, userID, questionID string, raw domain.RawAnswer) (runtime.Step, error) {
	var step runtime.Step
	err := m.WithLock(ctx, userID, func(ctx context.Context) error {
		s, err := m.store.Load(ctx, userID)
		if err != nil {
			return err
		}
		step, err = m.engine.Submit(ctx, s, questionID, raw)
		if err != nil {
			return err
		}
		if !step.Outcome.Accepted() {
			return nil
		}
		if err := m.store.Save(ctx, step.Session); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		return nil
	})
	return step, err
}

// Complete finishes the user's session.
func (m *Manager) Complete(ctx context.Context, userID string) (*domain.Session, error) {
	return m.update(ctx, userID, func(ctx context.Context, s *domain.Session) (*domain.Session, error) {
		return m.engine.Complete(ctx, s)
	})
}

// Cancel cancels the user's session with reason.
func (m *Manager) Cancel(ctx context.Context, userID, reason string) (*domain.Session, error) {
	return m.update(ctx, userID, func(ctx context.Context, s *domain.Session) (*domain.Session, error) {
		return m.engine.Cancel(ctx, s, reason)
	})
}

func (m *Manager) update(ctx context.Context, userID string, op func(context.Context, *domain.Session) (*domain.Session, error)) (*domain.Session, error) {
	var out *domain.Session
	err := m.WithLock(ctx, userID, func(ctx context.Context) error {
		s, err := m.store.Load(ctx, userID)
		if err != nil {
			return err
		}
		out, err = op(ctx, s)
		if err != nil {
			return err
		}
		if out == s {
			return nil
		}
		return m.store.Save(ctx, out)
	})
	return out, err
}

// Load retrieves the user's session.
func (m *Manager) Load(ctx context.Context, userID string) (*domain.Session, error) {
	var s *domain.Session
	err := m.WithLock(ctx, userID, func(ctx context.Context) error {
		var err error
		s, err = m.store.Load(ctx, userID)
		return err
	})
	return s, err
}

// Delete removes the user's session from the store.
func (m *Manager) Delete(ctx context.Context, userID string) error {
	return m.WithLock(ctx, userID, func(ctx context.Context) error {
		return m.store.Delete(ctx, userID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Engine returns the flow engine.
func (m *Manager) Engine() ports.FlowEngine {
	return m.engine
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}
