package domain

import (
	"slices"
	"time"
)

// DateLayout is the canonical storage layout of date answers.
const DateLayout = "2006-01-02"

// Boolean answers normalize to one of these keys.
const (
	BoolYes = "yes"
	BoolNo  = "no"
)

// RawAnswer is an answer as received from the transport: a single string for
// free-form questions, one string per selection for multi-select questions.
type RawAnswer []string

// Text builds a single-valued raw answer.
func Text(s string) RawAnswer { return RawAnswer{s} }

// Choices builds a multi-valued raw answer.
func Choices(keys ...string) RawAnswer { return RawAnswer(keys) }

// Value is a normalized answer.
//
// Scalar answers keep their canonical form in Text: the trimmed text, the
// selected option key, "yes"/"no" for booleans or a YYYY-MM-DD date.
// Multi-select answers keep the selected option keys in Keys, in option order.
type Value struct {
	Type QuestionType `json:"type"`
	Text string       `json:"text,omitempty"`
	Keys []string     `json:"keys,omitempty"`
}

// IsEmpty reports whether the answer carries no content.
func (v Value) IsEmpty() bool {
	if v.Type == TypeMultiSelect {
		return len(v.Keys) == 0
	}
	return v.Text == ""
}

// Atoms returns the comparable parts of the value.
func (v Value) Atoms() []string {
	if v.Type == TypeMultiSelect {
		return v.Keys
	}
	return []string{v.Text}
}

// Date parses a date answer.
func (v Value) Date() (time.Time, bool) {
	if v.Type != TypeDate || v.Text == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, v.Text)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Bool reports the value of a boolean answer.
func (v Value) Bool() bool {
	return v.Type == TypeBoolean && v.Text == BoolYes
}

// Clone returns an independent copy.
func (v Value) Clone() Value {
	v.Keys = slices.Clone(v.Keys)
	return v
}
