package loader

// File DTOs. Keys follow the native layout; the second tag of each pair
// accepts the older registration-bot layout (question_id, save_to,
// validation_rules, error_message...).

type documentDTO struct {
	Form         formDTO                      `mapstructure:"form"`
	FormMetadata formDTO                      `mapstructure:"form_metadata"`
	Texts        map[string]map[string]string `mapstructure:"texts"`
	ExtraTexts   map[string]map[string]string `mapstructure:"extra_texts"`
	// Questions is a list, or a map keyed by question id.
	Questions any `mapstructure:"questions"`
}

type formDTO struct {
	Name             string   `mapstructure:"name"`
	Version          string   `mapstructure:"version"`
	Languages        []string `mapstructure:"languages"`
	DefaultLanguage  string   `mapstructure:"default_language"`
	LanguageQuestion string   `mapstructure:"language_question"`
}

type questionDTO struct {
	ID              string            `mapstructure:"id"`
	QuestionID      string            `mapstructure:"question_id"`
	Type            string            `mapstructure:"type"`
	QuestionType    string            `mapstructure:"question_type"`
	Order           int               `mapstructure:"order"`
	Required        bool              `mapstructure:"required"`
	Destination     string            `mapstructure:"destination"`
	SaveTo          string            `mapstructure:"save_to"`
	Audience        string            `mapstructure:"audience"`
	Title           map[string]string `mapstructure:"title"`
	Placeholder     map[string]string `mapstructure:"placeholder"`
	Options         []optionDTO       `mapstructure:"options"`
	Rules           []ruleDTO         `mapstructure:"rules"`
	ValidationRules []ruleDTO         `mapstructure:"validation_rules"`
	SkipIf          any               `mapstructure:"skip_if"`
	SkipCondition   *legacySkipDTO    `mapstructure:"skip_condition"`
	// DependsOn is accepted for compatibility; skip conditions carry the dependency.
	DependsOn []string `mapstructure:"depends_on"`
}

type optionDTO struct {
	Value string            `mapstructure:"value"`
	Label map[string]string `mapstructure:"label"`
	Text  map[string]string `mapstructure:"text"`
}

type ruleDTO struct {
	Kind         string            `mapstructure:"kind"`
	RuleType     string            `mapstructure:"rule_type"`
	Params       paramsDTO         `mapstructure:"params"`
	Message      map[string]string `mapstructure:"message"`
	ErrorMessage map[string]string `mapstructure:"error_message"`
}

type paramsDTO struct {
	Min          int    `mapstructure:"min"`
	Max          int    `mapstructure:"max"`
	Pattern      string `mapstructure:"pattern"`
	Regex        string `mapstructure:"regex"`
	Link         string `mapstructure:"link"`
	NotBefore    string `mapstructure:"not_before"`
	NotAfter     string `mapstructure:"not_after"`
	MaxDaysAgo   *int   `mapstructure:"max_days_ago"`
	MaxDaysAhead *int   `mapstructure:"max_days_ahead"`
	MinAge       *int   `mapstructure:"min_age"`
	MaxAge       *int   `mapstructure:"max_age"`
}

type legacySkipDTO struct {
	Operator   string          `mapstructure:"operator"`
	Conditions []legacyItemDTO `mapstructure:"conditions"`
}

type legacyItemDTO struct {
	Type     string `mapstructure:"type"`
	Operator string `mapstructure:"operator"`
	Field    string `mapstructure:"field"`
	Value    any    `mapstructure:"value"`
}

// pick returns the first non-empty value.
func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
