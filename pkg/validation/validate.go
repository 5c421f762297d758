// Package validation normalizes raw answers and checks them against a
// question's rules.
//
// Validation is a pure function of the question, the raw answer and the
// evaluation time. A failed validation is not an error: it yields an Outcome
// carrying a localized Rejection the user can act on.
package validation

import (
	"regexp"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/aretw0/formflow/pkg/domain"
)

// Env is the evaluation environment of a validation.
type Env struct {
	// Now is the evaluation time for relative date and age rules.
	Now time.Time
	// Texts resolves form-level message overrides by key. May be nil.
	Texts func(key string) domain.LocalizedText
}

// DefaultMessages are used for normalization failures and for required
// questions that declare no required rule, unless the form overrides them.
var DefaultMessages = map[domain.RejectionKind]domain.LocalizedText{
	domain.RejectRequired: {
		"en": "This question is required",
		"he": "זוהי שאלת חובה",
	},
	domain.RejectInvalidOption: {
		"en": "Please choose one of the listed options",
		"he": "יש לבחור אחת מהאפשרויות המוצעות",
	},
	domain.RejectInvalidBoolean: {
		"en": "Please answer yes or no",
		"he": "יש לענות כן או לא",
	},
	domain.RejectInvalidDate: {
		"en": "Please enter a date as DD/MM/YYYY",
		"he": "יש להזין תאריך בפורמט DD/MM/YYYY",
	},
	domain.RejectSingleValue: {
		"en": "Please give a single answer",
		"he": "יש לתת תשובה אחת בלבד",
	},
}

// Validate normalizes raw and runs q's rules in declared order, stopping at
// the first failure.
func Validate(q domain.Question, raw domain.RawAnswer, env Env) domain.Outcome {
	value, kind, ok := Normalize(q, raw)
	if !ok {
		return reject(q, kind, env.message(kind))
	}

	empty := value.IsEmpty()
	if empty && !q.Required {
		return domain.Outcome{Value: value}
	}

	for _, r := range q.Rules {
		if !passes(r, q, value, env) {
			return reject(q, domain.RejectionKind(r.Kind), r.Message)
		}
	}

	if empty {
		return reject(q, domain.RejectRequired, env.message(domain.RejectRequired))
	}
	return domain.Outcome{Value: value}
}

func reject(q domain.Question, kind domain.RejectionKind, msg domain.LocalizedText) domain.Outcome {
	return domain.Outcome{
		Value:     domain.Value{Type: q.Type},
		Rejection: &domain.Rejection{QuestionID: q.ID, Kind: kind, Message: msg.Clone()},
	}
}

func (e Env) message(kind domain.RejectionKind) domain.LocalizedText {
	if e.Texts != nil {
		if t := e.Texts(string(kind)); len(t) > 0 {
			return t
		}
	}
	return DefaultMessages[kind]
}

func passes(r domain.Rule, q domain.Question, v domain.Value, env Env) bool {
	p := r.Params
	switch r.Kind {
	case domain.RuleRequired:
		return !q.Required || !v.IsEmpty()
	case domain.RuleMinLength:
		return length(v) >= p.Min
	case domain.RuleMaxLength:
		return length(v) <= p.Max
	case domain.RuleRegex:
		re, err := compile(p.Pattern)
		return err == nil && re.MatchString(v.Text)
	case domain.RuleStructuredLink:
		if p.Pattern != "" {
			re, err := compile(p.Pattern)
			return err == nil && re.MatchString(v.Text)
		}
		return MatchLink(p.Link, v.Text)
	case domain.RuleDateWithinRange:
		d, ok := v.Date()
		return ok && withinRange(d, p, env.Now)
	case domain.RuleAgeRange:
		d, ok := v.Date()
		if !ok {
			return false
		}
		age := Age(d, env.Now)
		return age >= 0 && age >= p.MinAge && (p.MaxAge == 0 || age <= p.MaxAge)
	}
	return false
}

func length(v domain.Value) int {
	if v.Type == domain.TypeMultiSelect {
		return len(v.Keys)
	}
	return utf8.RuneCountInString(v.Text)
}

func withinRange(d time.Time, p domain.RuleParams, now time.Time) bool {
	if p.NotBefore != "" {
		if lo, err := time.Parse(domain.DateLayout, p.NotBefore); err != nil || d.Before(lo) {
			return false
		}
	}
	if p.NotAfter != "" {
		if hi, err := time.Parse(domain.DateLayout, p.NotAfter); err != nil || d.After(hi) {
			return false
		}
	}
	today := civil(now)
	if p.MaxDaysAgo != nil && d.Before(today.AddDate(0, 0, -*p.MaxDaysAgo)) {
		return false
	}
	if p.MaxDaysAhead != nil && d.After(today.AddDate(0, 0, *p.MaxDaysAhead)) {
		return false
	}
	return true
}

// Age returns the number of whole years between birth and now.
// It is negative when birth lies in the future.
func Age(birth, now time.Time) int {
	today := civil(now)
	age := today.Year() - birth.Year()
	if today.Month() < birth.Month() || (today.Month() == birth.Month() && today.Day() < birth.Day()) {
		age--
	}
	return age
}

// civil truncates t to its calendar date, as midnight UTC.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var patterns sync.Map // pattern -> *regexp.Regexp

func compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := patterns.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patterns.Store(pattern, re)
	return re, nil
}
