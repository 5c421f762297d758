package domain

// RuleKind identifies a validation rule.
type RuleKind string

const (
	RuleRequired        RuleKind = "required"
	RuleMinLength       RuleKind = "min_length"
	RuleMaxLength       RuleKind = "max_length"
	RuleRegex           RuleKind = "regex"
	RuleStructuredLink  RuleKind = "structured_link"
	RuleDateWithinRange RuleKind = "date_within_range"
	RuleAgeRange        RuleKind = "age_range"
)

// Valid reports whether k is a known rule kind.
func (k RuleKind) Valid() bool {
	switch k {
	case RuleRequired, RuleMinLength, RuleMaxLength, RuleRegex,
		RuleStructuredLink, RuleDateWithinRange, RuleAgeRange:
		return true
	}
	return false
}

// LinkKind names a family of structured link patterns.
type LinkKind string

const (
	LinkTelegram  LinkKind = "telegram"
	LinkFacebook  LinkKind = "facebook"
	LinkInstagram LinkKind = "instagram"
	// LinkSocial accepts either a Facebook or an Instagram profile.
	LinkSocial LinkKind = "social"
)

// RuleParams carries the parameters of every rule kind.
// Only the fields relevant to the rule's Kind are read.
type RuleParams struct {
	Min     int      `json:"min,omitempty"`
	Max     int      `json:"max,omitempty"`
	Pattern string   `json:"pattern,omitempty"`
	Link    LinkKind `json:"link,omitempty"`

	// Absolute bounds as ISO dates (YYYY-MM-DD), inclusive.
	NotBefore string `json:"not_before,omitempty"`
	NotAfter  string `json:"not_after,omitempty"`
	// Relative bounds in days from the evaluation time, inclusive.
	MaxDaysAgo   *int `json:"max_days_ago,omitempty"`
	MaxDaysAhead *int `json:"max_days_ahead,omitempty"`

	// MaxAge of zero means no upper bound.
	MinAge int `json:"min_age,omitempty"`
	MaxAge int `json:"max_age,omitempty"`
}

// Rule is one validation step applied to a normalized answer.
type Rule struct {
	Kind    RuleKind      `json:"kind"`
	Params  RuleParams    `json:"params"`
	Message LocalizedText `json:"message"`
}
