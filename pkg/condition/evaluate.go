// Package condition evaluates skip conditions with three-valued (Kleene) logic.
//
// A condition that refers to a question the user has not answered yet is
// neither true nor false: it is Indeterminate. The flow controller only skips a
// question when its condition is definitely True.
package condition

import (
	"slices"
	"sort"

	"github.com/aretw0/formflow/pkg/domain"
)

// Truth is a three-valued logic result.
type Truth int8

const (
	Indeterminate Truth = iota
	True
	False
)

func (t Truth) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "indeterminate"
	}
}

func fromBool(b bool) Truth {
	if b {
		return True
	}
	return False
}

// Evaluate computes the truth of c against the recorded answers and host facts.
// A nil condition is False (never skip).
func Evaluate(c domain.Condition, answers map[string]domain.Value, facts domain.Facts) Truth {
	switch c := c.(type) {
	case nil:
		return False
	case domain.FieldEquals:
		v, ok := answers[c.Field]
		if !ok {
			return Indeterminate
		}
		return fromBool(slices.Contains(v.Atoms(), c.Value))
	case domain.FieldIn:
		v, ok := answers[c.Field]
		if !ok {
			return Indeterminate
		}
		for _, atom := range v.Atoms() {
			if slices.Contains(c.Values, atom) {
				return True
			}
		}
		return False
	case domain.UserExists:
		return fromBool(facts.UserExists)
	case domain.EventTypeIs:
		return fromBool(facts.EventType == c.EventType)
	case domain.And:
		result := True
		for _, child := range c {
			switch Evaluate(child, answers, facts) {
			case False:
				return False
			case Indeterminate:
				result = Indeterminate
			}
		}
		return result
	case domain.Or:
		result := False
		for _, child := range c {
			switch Evaluate(child, answers, facts) {
			case True:
				return True
			case Indeterminate:
				result = Indeterminate
			}
		}
		return result
	case domain.Not:
		switch Evaluate(c.Child, answers, facts) {
		case True:
			return False
		case False:
			return True
		default:
			return Indeterminate
		}
	default:
		return Indeterminate
	}
}

// Refs returns the sorted, de-duplicated question ids referenced by c.
func Refs(c domain.Condition) []string {
	seen := make(map[string]struct{})
	collect(c, seen)
	refs := make([]string, 0, len(seen))
	for id := range seen {
		refs = append(refs, id)
	}
	sort.Strings(refs)
	return refs
}

func collect(c domain.Condition, seen map[string]struct{}) {
	switch c := c.(type) {
	case domain.FieldEquals:
		seen[c.Field] = struct{}{}
	case domain.FieldIn:
		seen[c.Field] = struct{}{}
	case domain.And:
		for _, child := range c {
			collect(child, seen)
		}
	case domain.Or:
		for _, child := range c {
			collect(child, seen)
		}
	case domain.Not:
		collect(c.Child, seen)
	}
}
