package ports

import (
	"context"

	"github.com/aretw0/formflow/pkg/domain"
)

// SessionStore defines the interface for persisting sessions between turns.
// Sessions are keyed by user id: a user has at most one stored session.
type SessionStore interface {
	// Save persists the session under session.UserID, replacing any previous one.
	Save(ctx context.Context, session *domain.Session) error

	// Load retrieves the session for a user.
	// Returns domain.ErrSessionNotFound if the user has no session.
	Load(ctx context.Context, userID string) (*domain.Session, error)

	// Delete removes the session for a user. Deleting a missing session is not an error.
	Delete(ctx context.Context, userID string) error

	// List returns the user ids with a stored session.
	List(ctx context.Context) ([]string, error)
}
