package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/schema"
	"github.com/stretchr/testify/require"
)

// Languages used by every fixture form.
var Languages = []string{"he", "en"}

// L builds a LocalizedText with the same string in every fixture language.
func L(s string) domain.LocalizedText {
	return domain.LocalizedText{"he": s, "en": s}
}

// Form wraps questions in a definition with the fixture languages.
func Form(questions ...domain.Question) schema.Definition {
	return schema.Definition{
		Form: schema.FormInfo{
			Name:            "fixture",
			Version:         "1",
			Languages:       Languages,
			DefaultLanguage: "en",
		},
		Questions: questions,
	}
}

// TextQuestion builds a required free-text question.
func TextQuestion(id string, order int) domain.Question {
	return domain.Question{
		ID:       id,
		Type:     domain.TypeText,
		Order:    order,
		Required: true,
		Title:    L(id + "?"),
	}
}

// Skip returns q with the given skip condition.
func Skip(q domain.Question, c domain.Condition) domain.Question {
	q.SkipIf = c
	return q
}

// Clock returns a clock frozen at t.
func Clock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// Now is the fixed evaluation time used across tests.
var Now = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

// MustSchema loads def and fails the test on error.
func MustSchema(t testing.TB, def schema.Definition) *schema.Schema {
	t.Helper()
	s, err := schema.Load(def)
	require.NoError(t, err, "fixture schema must load")
	return s
}

// WriteFile writes content to name inside dir and returns the full path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
