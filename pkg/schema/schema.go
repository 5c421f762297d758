package schema

import (
	"encoding/hex"
	"encoding/json"
	"iter"
	"slices"
	"sort"

	"github.com/aretw0/formflow/pkg/domain"
	"github.com/zeebo/blake3"
)

// FormInfo is form-level metadata.
type FormInfo struct {
	Name            string   `json:"name"`
	Version         string   `json:"version"`
	Languages       []string `json:"languages"`
	DefaultLanguage string   `json:"default_language"`
	// LanguageQuestion optionally names a single-select question whose answer
	// switches the session language.
	LanguageQuestion string `json:"language_question,omitempty"`
}

// Definition is the raw, unvalidated input to Load.
type Definition struct {
	Form FormInfo
	// Texts overrides engine messages (e.g. "required", "invalid_date") and
	// carries any extra localized strings a host wants to keep with the form.
	Texts     map[string]domain.LocalizedText
	Questions []domain.Question
}

// Schema is a validated, immutable form definition.
type Schema struct {
	info      FormInfo
	texts     map[string]domain.LocalizedText
	questions []domain.Question // sorted by Order
	index     map[string]int
	version   string
}

// Load validates def and builds a Schema. Every problem found is reported in
// the returned *SchemaError; no partial schema is ever returned.
func Load(def Definition) (*Schema, error) {
	if issues := check(def); len(issues) > 0 {
		return nil, &SchemaError{Issues: issues}
	}

	s := &Schema{
		info:      def.Form,
		texts:     make(map[string]domain.LocalizedText, len(def.Texts)),
		questions: make([]domain.Question, len(def.Questions)),
		index:     make(map[string]int, len(def.Questions)),
	}
	s.info.Languages = slices.Clone(def.Form.Languages)
	for k, v := range def.Texts {
		s.texts[k] = v.Clone()
	}
	for i, q := range def.Questions {
		s.questions[i] = q.Clone()
	}
	sort.SliceStable(s.questions, func(i, j int) bool {
		return s.questions[i].Order < s.questions[j].Order
	})
	for i, q := range s.questions {
		s.index[q.ID] = i
	}
	s.version = fingerprint(s)
	return s, nil
}

// MustLoad is like Load but panics on error. Intended for tests and fixtures.
func MustLoad(def Definition) *Schema {
	s, err := Load(def)
	if err != nil {
		panic(err)
	}
	return s
}

// Info returns the form metadata.
func (s *Schema) Info() FormInfo {
	info := s.info
	info.Languages = slices.Clone(s.info.Languages)
	return info
}

// Version identifies the schema content. It changes whenever any definition changes.
func (s *Schema) Version() string { return s.version }

// Len returns the number of questions.
func (s *Schema) Len() int { return len(s.questions) }

// InOrder yields the questions in ascending order.
// Yielded questions share their maps with the schema and must be treated as read-only.
func (s *Schema) InOrder() iter.Seq[domain.Question] {
	return func(yield func(domain.Question) bool) {
		for _, q := range s.questions {
			if !yield(q) {
				return
			}
		}
	}
}

// Questions returns deep copies of all questions in ascending order.
func (s *Schema) Questions() []domain.Question {
	out := make([]domain.Question, len(s.questions))
	for i, q := range s.questions {
		out[i] = q.Clone()
	}
	return out
}

// Question looks up a question by id.
func (s *Schema) Question(id string) (domain.Question, bool) {
	i, ok := s.index[id]
	if !ok {
		return domain.Question{}, false
	}
	return s.questions[i], true
}

// Text returns a form-level localized string, or nil if undefined.
func (s *Schema) Text(key string) domain.LocalizedText {
	return s.texts[key]
}

// SupportsLanguage reports whether lang is a declared language.
func (s *Schema) SupportsLanguage(lang string) bool {
	return slices.Contains(s.info.Languages, lang)
}

type canonicalQuestion struct {
	domain.Question
	SkipIf string `json:"skip_if,omitempty"`
}

func fingerprint(s *Schema) string {
	canon := struct {
		Form      FormInfo                        `json:"form"`
		Texts     map[string]domain.LocalizedText `json:"texts"`
		Questions []canonicalQuestion             `json:"questions"`
	}{Form: s.info, Texts: s.texts}
	for _, q := range s.questions {
		cq := canonicalQuestion{Question: q}
		if q.SkipIf != nil {
			cq.SkipIf = q.SkipIf.String()
		}
		canon.Questions = append(canon.Questions, cq)
	}
	// Marshalling plain structs and maps cannot fail.
	data, _ := json.Marshal(canon)
	sum := blake3.Sum256(data)
	hash := hex.EncodeToString(sum[:6])
	if s.info.Version == "" {
		return hash
	}
	return s.info.Version + "+" + hash
}
