package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/formflow/pkg/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractSession(userID string) *domain.Session {
	at := time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC)
	return &domain.Session{
		ID:            "sess-" + userID,
		UserID:        userID,
		Variant:       domain.VariantNewUser,
		Facts:         domain.Facts{UserExists: true, EventType: "play"},
		Language:      "he",
		SchemaVersion: "1+abcdef",
		Answers: map[string]domain.Value{
			"name":   {Type: domain.TypeText, Text: "דנה"},
			"events": {Type: domain.TypeMultiSelect, Keys: []string{"cuddle", "play"}},
			"birth":  {Type: domain.TypeDate, Text: "1990-05-17"},
			"agree":  {Type: domain.TypeBoolean, Text: domain.BoolYes},
		},
		Status:    domain.StatusInProgress,
		CreatedAt: at,
		UpdatedAt: at.Add(time.Minute),
	}
}

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	userID := "contract-user-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		s := contractSession(userID)
		require.NoError(t, store.Save(ctx, s), "Save should not return error")

		loaded, err := store.Load(ctx, userID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, s.ID, loaded.ID)
		assert.Equal(t, s.Variant, loaded.Variant)
		assert.Equal(t, s.Facts, loaded.Facts)
		assert.Equal(t, s.Language, loaded.Language)
		assert.Equal(t, s.SchemaVersion, loaded.SchemaVersion)
		assert.Equal(t, s.Status, loaded.Status)
		assert.True(t, s.CreatedAt.Equal(loaded.CreatedAt), "CreatedAt must round-trip")
		assert.True(t, s.UpdatedAt.Equal(loaded.UpdatedAt), "UpdatedAt must round-trip")
		if diff := cmp.Diff(s.Answers, loaded.Answers); diff != "" {
			t.Errorf("answers mismatch (-saved +loaded):\n%s", diff)
		}
	})

	t.Run("Save Replaces", func(t *testing.T) {
		s := contractSession(userID)
		s.Status = domain.StatusCancelled
		s.CancelReason = "changed my mind"
		require.NoError(t, store.Save(ctx, s))

		loaded, err := store.Load(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCancelled, loaded.Status)
		assert.Equal(t, "changed my mind", loaded.CancelReason)
	})

	t.Run("Load Isolated From Caller", func(t *testing.T) {
		s := contractSession(userID)
		require.NoError(t, store.Save(ctx, s))
		s.Answers["name"] = domain.Value{Type: domain.TypeText, Text: "mutated"}

		loaded, err := store.Load(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "דנה", loaded.Answers["name"].Text)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+userID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, contractSession(userID)))

		require.NoError(t, store.Delete(ctx, userID), "Delete should not return error")

		_, err := store.Load(ctx, userID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, userID), "Deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := userID + "-1"
		id2 := userID + "-2"
		require.NoError(t, store.Save(ctx, contractSession(id1)))
		require.NoError(t, store.Save(ctx, contractSession(id2)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		users, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, users, id1)
		assert.Contains(t, users, id2)
	})
}
