package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/formflow"
	"github.com/aretw0/formflow/internal/testutils"
	"github.com/aretw0/formflow/pkg/adapters/memory"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/ports"
	"github.com/aretw0/formflow/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	*memory.Store
}

func (s SlowStore) Save(ctx context.Context, sess *domain.Session) error {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Save(ctx, sess)
}

func (s SlowStore) Load(ctx context.Context, userID string) (*domain.Session, error) {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Load(ctx, userID)
}

func newManager(t *testing.T, opts ...session.Option) (*session.Manager, ports.SessionStore) {
	t.Helper()
	engine, err := formflow.New(testutils.Form(
		testutils.TextQuestion("q1", 1),
		testutils.TextQuestion("q2", 2),
	), formflow.WithClock(testutils.Clock(testutils.Now)))
	require.NoError(t, err)
	store := SlowStore{memory.NewStore()}
	return session.NewManager(engine, store, opts...), store
}

func TestManager_BeginResumesActive(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	first, err := mgr.Begin(ctx, "u1", domain.VariantNewUser, domain.Facts{})
	require.NoError(t, err)
	_, err = mgr.Answer(ctx, "u1", "q1", domain.Text("hello"))
	require.NoError(t, err)

	again, err := mgr.Begin(ctx, "u1", domain.VariantNewUser, domain.Facts{})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "hello", again.Answers["q1"].Text)
}

func TestManager_BeginReplacesFinished(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	first, err := mgr.Begin(ctx, "u1", domain.VariantNewUser, domain.Facts{})
	require.NoError(t, err)
	_, err = mgr.Cancel(ctx, "u1", "later")
	require.NoError(t, err)

	second, err := mgr.Begin(ctx, "u1", domain.VariantNewUser, domain.Facts{})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, domain.StatusStarted, second.Status)
}

func TestManager_BeginConcurrentCreatesOne(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	ids := make(chan string, 4)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := mgr.Begin(ctx, "atomic-init", domain.VariantNewUser, domain.Facts{})
			assert.NoError(t, err)
			ids <- s.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1, "every caller must get the same session")
}

func TestManager_AnswerFlow(t *testing.T) {
	mgr, store := newManager(t)
	ctx := context.Background()

	_, err := mgr.Begin(ctx, "u1", domain.VariantNewUser, domain.Facts{})
	require.NoError(t, err)

	_, q, err := mgr.Current(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, "q1", q.ID)

	// A rejection is not persisted.
	step, err := mgr.Answer(ctx, "u1", "q1", domain.Text("   "))
	require.NoError(t, err)
	require.NotNil(t, step.Outcome.Rejection)
	stored, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusStarted, stored.Status)

	step, err = mgr.Answer(ctx, "u1", "q1", domain.Text("a"))
	require.NoError(t, err)
	require.NotNil(t, step.Next)
	assert.Equal(t, "q2", step.Next.ID)

	step, err = mgr.Answer(ctx, "u1", "q2", domain.Text("b"))
	require.NoError(t, err)
	assert.True(t, step.Done())

	s, q, err := mgr.Current(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, q)
	assert.Equal(t, domain.StatusCompleted, s.Status)

	done, err := mgr.Complete(ctx, "u1")
	require.NoError(t, err, "completing twice is a no-op")
	assert.Equal(t, domain.StatusCompleted, done.Status)

	_, err = mgr.Answer(ctx, "u1", "q2", domain.Text("c"))
	assert.ErrorIs(t, err, domain.ErrSessionTerminated)
}

func TestManager_ConcurrentAnswersAreSerialized(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()
	_, err := mgr.Begin(ctx, "race", domain.VariantNewUser, domain.Facts{})
	require.NoError(t, err)

	var accepted, outOfSync atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.Answer(ctx, "race", "q1", domain.Text("x"))
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, domain.ErrSessionOutOfSync):
				outOfSync.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted.Load(), "exactly one submission may land")
	assert.Equal(t, int32(7), outOfSync.Load())
}

func TestManager_NotFound(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	_, _, err := mgr.Current(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = mgr.Answer(ctx, "ghost", "q1", domain.Text("x"))
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = mgr.Cancel(ctx, "ghost", "")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

// countingLocker records lock traffic.
type countingLocker struct {
	locks, unlocks atomic.Int32
	ttl            time.Duration
	fail           error
}

func (l *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if l.fail != nil {
		return nil, l.fail
	}
	l.ttl = ttl
	l.locks.Add(1)
	return func(context.Context) error {
		l.unlocks.Add(1)
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &countingLocker{}
	mgr, _ := newManager(t, session.WithLocker(locker), session.WithLockTTL(5*time.Second))
	ctx := context.Background()

	_, err := mgr.Begin(ctx, "u1", domain.VariantNewUser, domain.Facts{})
	require.NoError(t, err)
	_, err = mgr.Answer(ctx, "u1", "q1", domain.Text("x"))
	require.NoError(t, err)

	assert.Equal(t, int32(2), locker.locks.Load())
	assert.Equal(t, locker.locks.Load(), locker.unlocks.Load())
	assert.Equal(t, 5*time.Second, locker.ttl)
}

func TestManager_LockerFailure(t *testing.T) {
	boom := errors.New("redis down")
	mgr, _ := newManager(t, session.WithLocker(&countingLocker{fail: boom}))

	_, err := mgr.Begin(context.Background(), "u1", domain.VariantNewUser, domain.Facts{})
	assert.ErrorIs(t, err, boom)
}
