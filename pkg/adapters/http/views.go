package http

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/formflow/internal/runtime"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/schema"
)

// StartRequest is the body of POST /sessions/{user}.
type StartRequest struct {
	Variant  domain.Variant `json:"variant"`
	Facts    domain.Facts   `json:"facts"`
	Language string         `json:"language,omitempty"`
}

// AnswerRequest is the body of POST /sessions/{user}/answers.
type AnswerRequest struct {
	QuestionID string    `json:"question_id"`
	Answer     RawAnswer `json:"answer"`
}

// CancelRequest is the body of POST /sessions/{user}/cancel.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// RawAnswer accepts either a JSON string or an array of strings.
type RawAnswer domain.RawAnswer

func (a *RawAnswer) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*a = RawAnswer{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("answer must be a string or an array of strings")
	}
	*a = RawAnswer(many)
	return nil
}

// OptionView is an option rendered in the session language.
type OptionView struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// QuestionView is a question rendered in the session language.
type QuestionView struct {
	ID          string              `json:"id"`
	Type        domain.QuestionType `json:"type"`
	Required    bool                `json:"required"`
	Title       string              `json:"title"`
	Placeholder string              `json:"placeholder,omitempty"`
	Options     []OptionView        `json:"options,omitempty"`
}

// RejectionView is a rejection rendered in the session language.
type RejectionView struct {
	QuestionID string               `json:"question_id"`
	Kind       domain.RejectionKind `json:"kind"`
	Message    string               `json:"message"`
}

// SessionView is returned by every session route.
type SessionView struct {
	Session   *domain.Session  `json:"session"`
	Next      *QuestionView    `json:"next,omitempty"`
	Progress  runtime.Progress `json:"progress"`
	Rejection *RejectionView   `json:"rejection,omitempty"`
}

// SchemaView is returned by GET /schema.
type SchemaView struct {
	Info      schema.FormInfo   `json:"info"`
	Version   string            `json:"version"`
	Questions []domain.Question `json:"questions"`
}

// ErrorView is the body of every error response.
type ErrorView struct {
	Error string `json:"error"`
}

func questionView(q domain.Question, lang, fallback string) *QuestionView {
	v := &QuestionView{
		ID:          q.ID,
		Type:        q.Type,
		Required:    q.Required,
		Title:       q.Title.Get(lang, fallback),
		Placeholder: q.Placeholder.Get(lang, fallback),
	}
	for _, o := range q.Options {
		v.Options = append(v.Options, OptionView{Value: o.Value, Label: o.Label.Get(lang, fallback)})
	}
	return v
}
