package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/ports"
)

// Mask replaces redacted answer content.
const Mask = "***"

type piiMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks the answers of questions
// whose id matches one of the patterns. Masking is one-way: use it for
// exports and audit copies, not for the store sessions resume from.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, session *domain.Session) error {
	// The engine keeps using the caller's copy.
	masked := session.Clone()
	for id, v := range masked.Answers {
		if m.sensitive(id) {
			masked.Answers[id] = maskValue(v)
		}
	}
	return m.next.Save(ctx, masked)
}

func (m *piiMiddleware) Load(ctx context.Context, userID string) (*domain.Session, error) {
	return m.next.Load(ctx, userID)
}

func (m *piiMiddleware) Delete(ctx context.Context, userID string) error {
	return m.next.Delete(ctx, userID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) sensitive(questionID string) bool {
	for _, p := range m.patterns {
		if p.MatchString(questionID) {
			return true
		}
	}
	return false
}

func maskValue(v domain.Value) domain.Value {
	if v.IsEmpty() {
		return v
	}
	if v.Type == domain.TypeMultiSelect {
		return domain.Value{Type: v.Type, Keys: []string{Mask}}
	}
	return domain.Value{Type: v.Type, Text: Mask}
}
