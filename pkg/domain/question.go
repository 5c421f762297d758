package domain

// QuestionType determines how a raw answer is normalized.
type QuestionType string

const (
	TypeText           QuestionType = "text"
	TypeSingleSelect   QuestionType = "single_select"
	TypeMultiSelect    QuestionType = "multi_select"
	TypeBoolean        QuestionType = "boolean"
	TypeDate           QuestionType = "date"
	TypeURL            QuestionType = "url"
	TypeTelegramHandle QuestionType = "telegram_handle"
	TypeSocialLink     QuestionType = "social_link"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case TypeText, TypeSingleSelect, TypeMultiSelect, TypeBoolean, TypeDate,
		TypeURL, TypeTelegramHandle, TypeSocialLink:
		return true
	}
	return false
}

// HasOptions reports whether answers are chosen from a declared option list.
func (t QuestionType) HasOptions() bool {
	return t == TypeSingleSelect || t == TypeMultiSelect
}

// Variant selects which flavour of the form a session runs.
// It is fixed at session start.
type Variant string

const (
	VariantNewUser       Variant = "new_user"
	VariantReturningUser Variant = "returning_user"
)

// Audience tags a question with the variants it applies to.
type Audience string

const (
	AudienceBoth          Audience = ""
	AudienceNewUser       Audience = "new_user"
	AudienceReturningUser Audience = "returning_user"
)

// Valid reports whether a is a known audience tag.
func (a Audience) Valid() bool {
	return a == AudienceBoth || a == AudienceNewUser || a == AudienceReturningUser
}

// Includes reports whether a question with this audience is asked in variant v.
func (a Audience) Includes(v Variant) bool {
	switch a {
	case AudienceNewUser:
		return v == VariantNewUser
	case AudienceReturningUser:
		return v == VariantReturningUser
	default:
		return true
	}
}

// Option is one selectable choice. Answers store the Value key, never the label.
type Option struct {
	Value string        `json:"value"`
	Label LocalizedText `json:"label"`
}

// Question is a single prompt of a form schema.
type Question struct {
	ID          string        `json:"id"`
	Type        QuestionType  `json:"type"`
	Order       int           `json:"order"`
	Required    bool          `json:"required"`
	Destination string        `json:"destination,omitempty"`
	Audience    Audience      `json:"audience,omitempty"`
	Options     []Option      `json:"options,omitempty"`
	Rules       []Rule        `json:"rules,omitempty"`
	SkipIf      Condition     `json:"-"`
	Title       LocalizedText `json:"title"`
	Placeholder LocalizedText `json:"placeholder,omitempty"`
}

// Option returns the option with the given key.
func (q Question) Option(key string) (Option, bool) {
	for _, o := range q.Options {
		if o.Value == key {
			return o, true
		}
	}
	return Option{}, false
}

// Clone returns a deep copy of the question.
func (q Question) Clone() Question {
	out := q
	out.Title = q.Title.Clone()
	out.Placeholder = q.Placeholder.Clone()
	if q.Options != nil {
		out.Options = make([]Option, len(q.Options))
		for i, o := range q.Options {
			out.Options[i] = Option{Value: o.Value, Label: o.Label.Clone()}
		}
	}
	if q.Rules != nil {
		out.Rules = make([]Rule, len(q.Rules))
		for i, r := range q.Rules {
			out.Rules[i] = r
			out.Rules[i].Message = r.Message.Clone()
		}
	}
	return out
}
