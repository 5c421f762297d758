package validation

import (
	"strings"
	"time"

	"github.com/aretw0/formflow/pkg/domain"
)

// dateLayouts are tried in order. Day-first layouts come before ISO so that
// 03/04/2026 reads as the 3rd of April.
var dateLayouts = []string{"2/1/2006", "2.1.2006", "2-1-2006", domain.DateLayout}

var (
	yesWords = map[string]bool{"yes": true, "y": true, "true": true, "1": true, "כן": true}
	noWords  = map[string]bool{"no": true, "n": true, "false": true, "0": true, "לא": true}
)

// Normalize converts a raw answer into the canonical Value for q.
// On failure it returns the rejection kind describing the problem.
func Normalize(q domain.Question, raw domain.RawAnswer) (domain.Value, domain.RejectionKind, bool) {
	v := domain.Value{Type: q.Type}

	if q.Type == domain.TypeMultiSelect {
		seen := make(map[string]bool)
		for _, item := range raw {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			key, ok := matchOption(q, item)
			if !ok {
				return v, domain.RejectInvalidOption, false
			}
			seen[key] = true
		}
		for _, o := range q.Options {
			if seen[o.Value] {
				v.Keys = append(v.Keys, o.Value)
			}
		}
		return v, "", true
	}

	text, ok := single(raw)
	if !ok {
		return v, domain.RejectSingleValue, false
	}
	if text == "" {
		return v, "", true
	}

	switch q.Type {
	case domain.TypeSingleSelect:
		key, ok := matchOption(q, text)
		if !ok {
			return v, domain.RejectInvalidOption, false
		}
		v.Text = key
	case domain.TypeBoolean:
		b, ok := parseBool(q, text)
		if !ok {
			return v, domain.RejectInvalidBoolean, false
		}
		v.Text = b
	case domain.TypeDate:
		d, ok := ParseDate(text)
		if !ok {
			return v, domain.RejectInvalidDate, false
		}
		v.Text = d.Format(domain.DateLayout)
	default:
		v.Text = text
	}
	return v, "", true
}

// single extracts one trimmed string. Extra blank entries are tolerated.
func single(raw domain.RawAnswer) (string, bool) {
	var out string
	n := 0
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = s
		n++
	}
	return out, n <= 1
}

// matchOption resolves s to an option key, trying the exact key first, then a
// case-insensitive key, then any localized label.
func matchOption(q domain.Question, s string) (string, bool) {
	for _, o := range q.Options {
		if o.Value == s {
			return o.Value, true
		}
	}
	for _, o := range q.Options {
		if strings.EqualFold(o.Value, s) {
			return o.Value, true
		}
	}
	for _, o := range q.Options {
		for _, label := range o.Label {
			if strings.EqualFold(strings.TrimSpace(label), s) {
				return o.Value, true
			}
		}
	}
	return "", false
}

func parseBool(q domain.Question, s string) (string, bool) {
	lower := strings.ToLower(s)
	switch {
	case yesWords[lower]:
		return domain.BoolYes, true
	case noWords[lower]:
		return domain.BoolNo, true
	}
	if key, ok := matchOption(q, s); ok {
		return key, true
	}
	return "", false
}

// ParseDate reads a calendar date in DD/MM/YYYY (also with '.' or '-'
// separators) or YYYY-MM-DD form. The result is midnight UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
