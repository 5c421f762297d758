package schema

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/formflow/pkg/condition"
	"github.com/aretw0/formflow/pkg/domain"
)

var knownLinks = []domain.LinkKind{domain.LinkTelegram, domain.LinkFacebook, domain.LinkInstagram, domain.LinkSocial}

type checker struct {
	def    Definition
	ids    map[string]domain.Question
	issues []Issue
}

func (c *checker) add(code IssueCode, qid, format string, args ...any) {
	c.issues = append(c.issues, Issue{Code: code, QuestionID: qid, Detail: fmt.Sprintf(format, args...)})
}

func check(def Definition) []Issue {
	c := &checker{def: def, ids: make(map[string]domain.Question, len(def.Questions))}

	c.checkForm()

	orders := make(map[int]string, len(def.Questions))
	for _, q := range def.Questions {
		if q.ID == "" {
			c.add(IssueEmptyID, "", "question at order %d has no id", q.Order)
			continue
		}
		if _, dup := c.ids[q.ID]; dup {
			c.add(IssueDuplicateID, q.ID, "id declared more than once")
		} else {
			c.ids[q.ID] = q
		}
		if other, dup := orders[q.Order]; dup {
			c.add(IssueDuplicateOrder, q.ID, "order %d already used by %q", q.Order, other)
		} else {
			orders[q.Order] = q.ID
		}
	}

	for _, q := range def.Questions {
		if q.ID == "" {
			continue
		}
		c.checkQuestion(q)
	}
	c.checkLanguageQuestion()

	keys := make([]string, 0, len(def.Texts))
	for k := range def.Texts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c.translations("", "text "+k, def.Texts[k])
	}
	return c.issues
}

func (c *checker) checkForm() {
	info := c.def.Form
	if len(info.Languages) == 0 {
		c.add(IssueInvalidLanguage, "", "no supported languages declared")
	}
	if info.DefaultLanguage == "" {
		c.add(IssueInvalidLanguage, "", "no default language declared")
	} else if !slices.Contains(info.Languages, info.DefaultLanguage) {
		c.add(IssueInvalidLanguage, "", "default language %q is not a supported language", info.DefaultLanguage)
	}
}

func (c *checker) translations(qid, field string, text domain.LocalizedText) {
	if missing := text.Missing(c.def.Form.Languages); len(missing) > 0 {
		c.add(IssueMissingTranslation, qid, "%s has no text for %s", field, strings.Join(missing, ", "))
	}
}

func (c *checker) checkQuestion(q domain.Question) {
	if !q.Type.Valid() {
		c.add(IssueUnknownType, q.ID, "unknown question type %q", q.Type)
	}
	if !q.Audience.Valid() {
		c.add(IssueUnknownAudience, q.ID, "unknown audience %q", q.Audience)
	}

	c.translations(q.ID, "title", q.Title)
	if len(q.Placeholder) > 0 {
		c.translations(q.ID, "placeholder", q.Placeholder)
	}

	c.checkOptions(q)
	for i, r := range q.Rules {
		c.checkRule(q, i, r)
	}
	if q.SkipIf != nil {
		c.checkCondition(q, q.SkipIf)
		if slices.Contains(condition.Refs(q.SkipIf), q.ID) {
			c.add(IssueInvalidCondition, q.ID, "skip condition refers to the question itself")
		}
	}
}

func (c *checker) checkOptions(q domain.Question) {
	if q.Type.HasOptions() && len(q.Options) == 0 {
		c.add(IssueMissingOptions, q.ID, "%s question declares no options", q.Type)
	}
	seen := make(map[string]bool, len(q.Options))
	for _, o := range q.Options {
		if o.Value == "" {
			c.add(IssueInvalidOption, q.ID, "option with empty value")
			continue
		}
		if seen[o.Value] {
			c.add(IssueInvalidOption, q.ID, "option %q declared more than once", o.Value)
		}
		seen[o.Value] = true
		if q.Type == domain.TypeBoolean && o.Value != domain.BoolYes && o.Value != domain.BoolNo {
			c.add(IssueInvalidOption, q.ID, "boolean option %q must be %q or %q", o.Value, domain.BoolYes, domain.BoolNo)
		}
		c.translations(q.ID, "option "+o.Value, o.Label)
	}
}

func textual(t domain.QuestionType) bool {
	switch t {
	case domain.TypeText, domain.TypeURL, domain.TypeTelegramHandle, domain.TypeSocialLink:
		return true
	}
	return false
}

func (c *checker) checkRule(q domain.Question, i int, r domain.Rule) {
	label := fmt.Sprintf("rule %d (%s)", i+1, r.Kind)
	if !r.Kind.Valid() {
		c.add(IssueInvalidRule, q.ID, "%s: unknown rule kind", label)
		return
	}
	c.translations(q.ID, label+" message", r.Message)

	p := r.Params
	switch r.Kind {
	case domain.RuleMinLength, domain.RuleMaxLength:
		if !textual(q.Type) && q.Type != domain.TypeMultiSelect {
			c.add(IssueInvalidRule, q.ID, "%s: not applicable to %s questions", label, q.Type)
		}
		if r.Kind == domain.RuleMinLength && p.Min < 0 {
			c.add(IssueInvalidRule, q.ID, "%s: min must not be negative", label)
		}
		if r.Kind == domain.RuleMaxLength && p.Max <= 0 {
			c.add(IssueInvalidRule, q.ID, "%s: max must be positive", label)
		}
	case domain.RuleRegex:
		if !textual(q.Type) {
			c.add(IssueInvalidRule, q.ID, "%s: not applicable to %s questions", label, q.Type)
		}
		if p.Pattern == "" {
			c.add(IssueInvalidRule, q.ID, "%s: pattern is required", label)
		} else if _, err := regexp.Compile(p.Pattern); err != nil {
			c.add(IssueInvalidRule, q.ID, "%s: %v", label, err)
		}
	case domain.RuleStructuredLink:
		if !textual(q.Type) {
			c.add(IssueInvalidRule, q.ID, "%s: not applicable to %s questions", label, q.Type)
		}
		switch {
		case p.Pattern != "":
			if _, err := regexp.Compile(p.Pattern); err != nil {
				c.add(IssueInvalidRule, q.ID, "%s: %v", label, err)
			}
		case !slices.Contains(knownLinks, p.Link):
			c.add(IssueInvalidRule, q.ID, "%s: unknown link kind %q", label, p.Link)
		}
	case domain.RuleDateWithinRange:
		c.requireDate(q, label)
		before, okBefore := c.isoParam(q, label, "not_before", p.NotBefore)
		after, okAfter := c.isoParam(q, label, "not_after", p.NotAfter)
		if okBefore && okAfter && after.Before(before) {
			c.add(IssueInvalidRule, q.ID, "%s: not_after precedes not_before", label)
		}
		if p.MaxDaysAgo != nil && *p.MaxDaysAgo < 0 {
			c.add(IssueInvalidRule, q.ID, "%s: max_days_ago must not be negative", label)
		}
		if p.MaxDaysAhead != nil && *p.MaxDaysAhead < 0 {
			c.add(IssueInvalidRule, q.ID, "%s: max_days_ahead must not be negative", label)
		}
	case domain.RuleAgeRange:
		c.requireDate(q, label)
		if p.MinAge < 0 || p.MaxAge < 0 {
			c.add(IssueInvalidRule, q.ID, "%s: ages must not be negative", label)
		}
		if p.MaxAge != 0 && p.MaxAge < p.MinAge {
			c.add(IssueInvalidRule, q.ID, "%s: max_age is below min_age", label)
		}
	}
}

func (c *checker) requireDate(q domain.Question, label string) {
	if q.Type != domain.TypeDate {
		c.add(IssueInvalidRule, q.ID, "%s: only applicable to date questions", label)
	}
}

func (c *checker) isoParam(q domain.Question, label, name, value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(domain.DateLayout, value)
	if err != nil {
		c.add(IssueInvalidRule, q.ID, "%s: %s %q is not a YYYY-MM-DD date", label, name, value)
		return time.Time{}, false
	}
	return t, true
}

func (c *checker) checkCondition(q domain.Question, cond domain.Condition) {
	switch cond := cond.(type) {
	case nil:
		c.add(IssueInvalidCondition, q.ID, "empty condition node")
	case domain.FieldEquals:
		c.reference(q, cond.Field)
	case domain.FieldIn:
		c.reference(q, cond.Field)
	case domain.And:
		for _, child := range cond {
			c.checkCondition(q, child)
		}
	case domain.Or:
		for _, child := range cond {
			c.checkCondition(q, child)
		}
	case domain.Not:
		c.checkCondition(q, cond.Child)
	case domain.UserExists, domain.EventTypeIs:
	default:
		c.add(IssueInvalidCondition, q.ID, "unsupported condition %T", cond)
	}
}

func (c *checker) reference(q domain.Question, field string) {
	if field == "" {
		c.add(IssueInvalidCondition, q.ID, "condition without a field")
		return
	}
	if _, ok := c.ids[field]; !ok {
		c.add(IssueDanglingReference, q.ID, "condition refers to unknown question %q", field)
	}
}

func (c *checker) checkLanguageQuestion() {
	id := c.def.Form.LanguageQuestion
	if id == "" {
		return
	}
	q, ok := c.ids[id]
	if !ok {
		c.add(IssueDanglingReference, "", "language question %q does not exist", id)
		return
	}
	if q.Type != domain.TypeSingleSelect {
		c.add(IssueInvalidLanguage, id, "language question must be %s", domain.TypeSingleSelect)
	}
	for _, o := range q.Options {
		if !slices.Contains(c.def.Form.Languages, o.Value) {
			c.add(IssueInvalidLanguage, id, "option %q is not a supported language", o.Value)
		}
	}
}
