package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/formflow/pkg/adapters/memory"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/persistence/middleware"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlyingStore := memory.NewStore()
	mw := middleware.NewPIIMiddleware([]string{"birth", "^facebook_"})
	secureStore := mw(underlyingStore)
	ctx := context.Background()

	session := &domain.Session{
		UserID: "pii-user",
		Answers: map[string]domain.Value{
			"full_name":         {Type: domain.TypeText, Text: "Dana"},
			"birth_date":        {Type: domain.TypeDate, Text: "1990-05-17"},
			"facebook_profile":  {Type: domain.TypeSocialLink, Text: "https://facebook.com/dana"},
			"facebook_optional": {Type: domain.TypeSocialLink},
			"events":            {Type: domain.TypeMultiSelect, Keys: []string{"play"}},
		},
	}

	if err := secureStore.Save(ctx, session); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if session.Answers["birth_date"].Text != "1990-05-17" {
		t.Error("Middleware modified original session in memory!")
	}

	stored, err := underlyingStore.Load(ctx, "pii-user")
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if stored.Answers["full_name"].Text != "Dana" {
		t.Error("full_name shouldn't be masked")
	}
	if stored.Answers["birth_date"].Text != middleware.Mask {
		t.Errorf("birth_date should be masked, got: %v", stored.Answers["birth_date"])
	}
	if stored.Answers["facebook_profile"].Text != middleware.Mask {
		t.Errorf("facebook_profile should be masked, got: %v", stored.Answers["facebook_profile"])
	}
	if !stored.Answers["facebook_optional"].IsEmpty() {
		t.Error("empty answers stay empty")
	}
	if got := stored.Answers["events"].Keys; len(got) != 1 || got[0] != "play" {
		t.Errorf("events shouldn't be masked, got: %v", got)
	}
}

func TestChain_Order(t *testing.T) {
	underlyingStore := memory.NewStore()
	key := make([]byte, 32)
	// Mask first, then encrypt what is left.
	store := middleware.Chain(underlyingStore,
		middleware.NewPIIMiddleware([]string{"birth"}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}),
	)
	ctx := context.Background()

	err := store.Save(ctx, &domain.Session{UserID: "u", Answers: map[string]domain.Value{
		"birth_date": {Type: domain.TypeDate, Text: "1990-05-17"},
	}})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	raw, _ := underlyingStore.Load(ctx, "u")
	if _, ok := raw.Answers[middleware.EnvelopeKey]; !ok {
		t.Fatal("innermost layer must be encryption")
	}

	loaded, err := store.Load(ctx, "u")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Answers["birth_date"].Text != middleware.Mask {
		t.Errorf("expected masked birth date, got %v", loaded.Answers["birth_date"])
	}
}
