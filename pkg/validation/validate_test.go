package validation_test

import (
	"testing"
	"time"

	"github.com/aretw0/formflow/internal/testutils"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var env = validation.Env{Now: time.Date(2024, time.June, 1, 9, 30, 0, 0, time.UTC)}

func nameQuestion() domain.Question {
	q := testutils.TextQuestion("name", 1)
	q.Rules = []domain.Rule{{
		Kind:    domain.RuleMinLength,
		Params:  domain.RuleParams{Min: 2},
		Message: domain.LocalizedText{"en": "Name is too short", "he": "שם קצר מדי"},
	}}
	return q
}

func TestValidate_RequiredMinLength(t *testing.T) {
	q := nameQuestion()

	out := validation.Validate(q, domain.Text(""), env)
	require.False(t, out.Accepted())
	assert.Equal(t, "Name is too short", out.Rejection.Text("en", "he"))

	out = validation.Validate(q, domain.Text("A"), env)
	require.False(t, out.Accepted())
	assert.Equal(t, domain.RejectionKind(domain.RuleMinLength), out.Rejection.Kind)

	out = validation.Validate(q, domain.Text("  Al  "), env)
	require.True(t, out.Accepted())
	assert.Equal(t, "Al", out.Value.Text)
}

func TestValidate_RequiredWithoutRule(t *testing.T) {
	q := testutils.TextQuestion("q", 1)
	out := validation.Validate(q, nil, env)
	require.False(t, out.Accepted())
	assert.Equal(t, domain.RejectRequired, out.Rejection.Kind)
	assert.Equal(t, "This question is required", out.Rejection.Text("en", "he"))

	overridden := env
	overridden.Texts = func(key string) domain.LocalizedText {
		if key == "required" {
			return testutils.L("Mandatory!")
		}
		return nil
	}
	out = validation.Validate(q, nil, overridden)
	assert.Equal(t, "Mandatory!", out.Rejection.Text("en", "he"))
}

func TestValidate_OptionalEmptySkipsRules(t *testing.T) {
	q := nameQuestion()
	q.Required = false

	out := validation.Validate(q, domain.Text("   "), env)
	assert.True(t, out.Accepted())
	assert.True(t, out.Value.IsEmpty())
}

func TestValidate_FailFastInDeclaredOrder(t *testing.T) {
	q := testutils.TextQuestion("q", 1)
	q.Rules = []domain.Rule{
		{Kind: domain.RuleMaxLength, Params: domain.RuleParams{Max: 3}, Message: testutils.L("too long")},
		{Kind: domain.RuleRegex, Params: domain.RuleParams{Pattern: `^\d+$`}, Message: testutils.L("digits only")},
	}

	out := validation.Validate(q, domain.Text("abcdef"), env)
	assert.Equal(t, "too long", out.Rejection.Text("en", ""))

	out = validation.Validate(q, domain.Text("ab"), env)
	assert.Equal(t, "digits only", out.Rejection.Text("en", ""))

	out = validation.Validate(q, domain.Text("12"), env)
	assert.True(t, out.Accepted())
}

func TestValidate_RegexSearchSemantics(t *testing.T) {
	q := testutils.TextQuestion("q", 1)
	q.Rules = []domain.Rule{{Kind: domain.RuleRegex, Params: domain.RuleParams{Pattern: `\d`}, Message: testutils.L("need a digit")}}
	assert.True(t, validation.Validate(q, domain.Text("room 4b"), env).Accepted())
}

func TestValidate_LengthCountsRunes(t *testing.T) {
	q := testutils.TextQuestion("q", 1)
	q.Rules = []domain.Rule{{Kind: domain.RuleMaxLength, Params: domain.RuleParams{Max: 4}, Message: testutils.L("x")}}
	assert.True(t, validation.Validate(q, domain.Text("דנה"), env).Accepted())
}

func birthQuestion() domain.Question {
	return domain.Question{
		ID: "birth", Type: domain.TypeDate, Order: 1, Required: true, Title: testutils.L("?"),
		Rules: []domain.Rule{{
			Kind:    domain.RuleAgeRange,
			Params:  domain.RuleParams{MinAge: 18, MaxAge: 100},
			Message: testutils.L("age out of range"),
		}},
	}
}

func TestValidate_AgeBoundaries(t *testing.T) {
	q := birthQuestion()
	tests := []struct {
		birth string
		ok    bool
	}{
		{"01/06/2006", true},  // 18th birthday today
		{"02/06/2006", false}, // 18 tomorrow
		{"02/06/1923", true},  // 100, turns 101 tomorrow
		{"01/06/1923", false}, // 101 today
		{"1990-01-15", true},
		{"01/01/2030", false}, // future
	}
	for _, tt := range tests {
		t.Run(tt.birth, func(t *testing.T) {
			out := validation.Validate(q, domain.Text(tt.birth), env)
			assert.Equal(t, tt.ok, out.Accepted(), "birth %s", tt.birth)
		})
	}
}

func TestValidate_MalformedDate(t *testing.T) {
	q := birthQuestion()
	for _, in := range []string{"31/02/2000", "tomorrow", "2000/13/01"} {
		out := validation.Validate(q, domain.Text(in), env)
		require.False(t, out.Accepted(), in)
		assert.Equal(t, domain.RejectInvalidDate, out.Rejection.Kind)
	}
}

func TestValidate_DateWithinRange(t *testing.T) {
	ninety, zero := 90, 0
	q := domain.Question{
		ID: "sti", Type: domain.TypeDate, Order: 1, Required: true, Title: testutils.L("?"),
		Rules: []domain.Rule{{
			Kind:    domain.RuleDateWithinRange,
			Params:  domain.RuleParams{MaxDaysAgo: &ninety, MaxDaysAhead: &zero, NotBefore: "2024-01-01"},
			Message: testutils.L("out of range"),
		}},
	}

	assert.True(t, validation.Validate(q, domain.Text("01/06/2024"), env).Accepted())
	assert.True(t, validation.Validate(q, domain.Text("03/03/2024"), env).Accepted())
	assert.False(t, validation.Validate(q, domain.Text("02/03/2024"), env).Accepted())
	assert.False(t, validation.Validate(q, domain.Text("02/06/2024"), env).Accepted())
}

func TestNormalize_Select(t *testing.T) {
	q := domain.Question{
		ID: "events", Type: domain.TypeMultiSelect, Order: 1, Title: testutils.L("?"),
		Options: []domain.Option{
			{Value: "cuddle", Label: domain.LocalizedText{"en": "Cuddle party", "he": "כרבולייה"}},
			{Value: "play", Label: domain.LocalizedText{"en": "Play party", "he": "מסיבת משחק"}},
		},
	}

	v, _, ok := validation.Normalize(q, domain.Choices("play", " Cuddle party ", "PLAY"))
	require.True(t, ok)
	assert.Equal(t, []string{"cuddle", "play"}, v.Keys)

	_, kind, ok := validation.Normalize(q, domain.Choices("rave"))
	assert.False(t, ok)
	assert.Equal(t, domain.RejectInvalidOption, kind)

	q.Type = domain.TypeSingleSelect
	v, _, ok = validation.Normalize(q, domain.Text("כרבולייה"))
	require.True(t, ok)
	assert.Equal(t, "cuddle", v.Text)

	_, kind, ok = validation.Normalize(q, domain.Choices("cuddle", "play"))
	assert.False(t, ok)
	assert.Equal(t, domain.RejectSingleValue, kind)
}

func TestNormalize_Boolean(t *testing.T) {
	q := domain.Question{ID: "agree", Type: domain.TypeBoolean, Order: 1, Title: testutils.L("?")}
	for in, want := range map[string]string{"Yes": "yes", "y": "yes", "TRUE": "yes", "כן": "yes", "no": "no", "0": "no"} {
		v, _, ok := validation.Normalize(q, domain.Text(in))
		require.True(t, ok, in)
		assert.Equal(t, want, v.Text, in)
	}
	_, kind, ok := validation.Normalize(q, domain.Text("maybe"))
	assert.False(t, ok)
	assert.Equal(t, domain.RejectInvalidBoolean, kind)
}

// Normalizing an already-normalized value is a no-op.
func TestNormalize_Idempotent(t *testing.T) {
	def := testutils.Registration()
	inputs := map[string]domain.RawAnswer{
		"language":          domain.Text("English"),
		"full_name":         domain.Text("  Dana Levi "),
		"partner_or_single": domain.Text("With partner"),
		"last_sti_test":     domain.Text("7/5/2024"),
		"agree_to_rules":    domain.Text("Y"),
	}
	for _, q := range def.Questions {
		raw, ok := inputs[q.ID]
		if !ok {
			continue
		}
		once, _, ok := validation.Normalize(q, raw)
		require.True(t, ok, q.ID)
		twice, _, ok := validation.Normalize(q, once.Atoms())
		require.True(t, ok, q.ID)
		assert.Equal(t, once, twice, q.ID)
	}
}

func TestValidate_TelegramType(t *testing.T) {
	q := domain.Question{
		ID: "tg", Type: domain.TypeTelegramHandle, Order: 1, Required: true, Title: testutils.L("?"),
		Rules: []domain.Rule{{Kind: domain.RuleStructuredLink, Params: domain.RuleParams{Link: domain.LinkTelegram}, Message: testutils.L("bad link")}},
	}
	assert.True(t, validation.Validate(q, domain.Text("@dana_l"), env).Accepted())
	assert.True(t, validation.Validate(q, domain.Text("https://t.me/dana_l"), env).Accepted())

	out := validation.Validate(q, domain.Text("dana at telegram"), env)
	require.False(t, out.Accepted())
	assert.Equal(t, "bad link", out.Rejection.Text("he", "en"))
}
