package runtime

import (
	"github.com/aretw0/formflow/pkg/condition"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/schema"
)

// NextQuestion returns the first question, in order, that applies to the
// session's variant, has no recorded answer and is not definitely skipped.
// Indeterminate skip conditions ask the question.
func (e *Engine) NextQuestion(s *domain.Session) (domain.Question, bool) {
	q, ok := next(e.schemas.Load(), s)
	if !ok {
		return domain.Question{}, false
	}
	return q.Clone(), true
}

func next(sc *schema.Schema, s *domain.Session) (domain.Question, bool) {
	answers := effective(sc, s.Answers)
	for q := range sc.InOrder() {
		if disposition(q, s, answers) == Pending {
			return q, true
		}
	}
	return domain.Question{}, false
}

// Disposition classifies a question relative to a session.
type Disposition string

const (
	Answered     Disposition = "answered"
	Skipped      Disposition = "skipped"
	Pending      Disposition = "pending"
	Inapplicable Disposition = "inapplicable"
)

func disposition(q domain.Question, s *domain.Session, answers map[string]domain.Value) Disposition {
	if !q.Audience.Includes(s.Variant) {
		return Inapplicable
	}
	if _, ok := s.Answers[q.ID]; ok {
		return Answered
	}
	if condition.Evaluate(q.SkipIf, answers, s.Facts) == condition.True {
		return Skipped
	}
	return Pending
}

// effective drops answers the current schema can no longer interpret: ids
// that no longer exist, answers whose question changed type, and selections
// of options that were removed. Conditions see such answers as absent.
func effective(sc *schema.Schema, answers map[string]domain.Value) map[string]domain.Value {
	out := make(map[string]domain.Value, len(answers))
	for id, v := range answers {
		q, ok := sc.Question(id)
		if !ok || q.Type != v.Type {
			continue
		}
		if q.Type.HasOptions() && !knownOptions(q, v) {
			continue
		}
		out[id] = v
	}
	return out
}

func knownOptions(q domain.Question, v domain.Value) bool {
	if v.IsEmpty() {
		return true
	}
	for _, key := range v.Atoms() {
		if _, ok := q.Option(key); !ok {
			return false
		}
	}
	return true
}

// Entry is one line of a session plan.
type Entry struct {
	Question    domain.Question `json:"question"`
	Disposition Disposition     `json:"disposition"`
}

// Plan classifies every question of the schema under current knowledge.
// Pending questions after the next one may still become skipped once more
// answers arrive.
func (e *Engine) Plan(s *domain.Session) []Entry {
	sc := e.schemas.Load()
	answers := effective(sc, s.Answers)
	plan := make([]Entry, 0, sc.Len())
	for q := range sc.InOrder() {
		plan = append(plan, Entry{Question: q.Clone(), Disposition: disposition(q, s, answers)})
	}
	return plan
}

// Progress summarizes how far a session is through the form.
type Progress struct {
	Answered  int `json:"answered"`
	Remaining int `json:"remaining"`
	Total     int `json:"total"`
	Percent   int `json:"percent"`
}

// Progress estimates completion from the current plan.
func (e *Engine) Progress(s *domain.Session) Progress {
	var p Progress
	for _, entry := range e.Plan(s) {
		switch entry.Disposition {
		case Answered:
			p.Answered++
		case Pending:
			p.Remaining++
		}
	}
	p.Total = p.Answered + p.Remaining
	if p.Total == 0 {
		p.Percent = 100
	} else {
		p.Percent = p.Answered * 100 / p.Total
	}
	return p
}

// Records groups the session's answers by question destination, in
// traversal order. Answers to questions no longer in the schema are dropped.
func (e *Engine) Records(s *domain.Session) []domain.Record {
	sc := e.schemas.Load()
	var records []domain.Record
	index := make(map[string]int)
	for q := range sc.InOrder() {
		v, ok := s.Answers[q.ID]
		if !ok {
			continue
		}
		i, seen := index[q.Destination]
		if !seen {
			i = len(records)
			index[q.Destination] = i
			records = append(records, domain.Record{Destination: q.Destination, Answers: make(map[string]domain.Value)})
		}
		records[i].Answers[q.ID] = v.Clone()
		records[i].Order = append(records[i].Order, q.ID)
	}
	return records
}
