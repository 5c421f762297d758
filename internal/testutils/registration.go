package testutils

import (
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/schema"
)

// Registration returns a realistic event registration form covering every
// question type, audience filtering and skip conditions.
func Registration() schema.Definition {
	zero := 0
	def := Form(
		domain.Question{
			ID: "language", Type: domain.TypeSingleSelect, Order: 1, Required: true,
			Destination: "users",
			Title:       domain.LocalizedText{"he": "באיזו שפה?", "en": "Which language?"},
			Options: []domain.Option{
				{Value: "he", Label: domain.LocalizedText{"he": "עברית", "en": "Hebrew"}},
				{Value: "en", Label: domain.LocalizedText{"he": "אנגלית", "en": "English"}},
			},
		},
		domain.Question{
			ID: "full_name", Type: domain.TypeText, Order: 2, Required: true,
			Destination: "users", Audience: domain.AudienceNewUser,
			Title: domain.LocalizedText{"he": "שם מלא?", "en": "Full name?"},
			Rules: []domain.Rule{{
				Kind:    domain.RuleMinLength,
				Params:  domain.RuleParams{Min: 2},
				Message: domain.LocalizedText{"he": "שם קצר מדי", "en": "Name is too short"},
			}},
		},
		domain.Question{
			ID: "partner_or_single", Type: domain.TypeSingleSelect, Order: 3, Required: true,
			Destination: "registrations",
			Title:       L("Coming with a partner?"),
			Options: []domain.Option{
				{Value: "single", Label: domain.LocalizedText{"he": "לבד", "en": "Single"}},
				{Value: "partner", Label: domain.LocalizedText{"he": "עם פרטנר", "en": "With partner"}},
			},
		},
		domain.Question{
			ID: "partner_telegram_link", Type: domain.TypeTelegramHandle, Order: 4, Required: true,
			Destination: "registrations",
			Title:       L("Partner telegram?"),
			SkipIf:      domain.FieldEquals{Field: "partner_or_single", Value: "single"},
			Rules: []domain.Rule{{
				Kind:    domain.RuleStructuredLink,
				Params:  domain.RuleParams{Link: domain.LinkTelegram},
				Message: L("Not a telegram link"),
			}},
		},
		domain.Question{
			ID: "last_sti_test", Type: domain.TypeDate, Order: 5, Required: true,
			Destination: "registrations",
			Title:       L("Last STI test?"),
			SkipIf:      domain.EventTypeIs{EventType: "cuddle"},
			Rules: []domain.Rule{{
				Kind:    domain.RuleDateWithinRange,
				Params:  domain.RuleParams{MaxDaysAhead: &zero},
				Message: L("Date cannot be in the future"),
			}},
		},
		domain.Question{
			ID: "facebook_profile", Type: domain.TypeSocialLink, Order: 6,
			Destination: "users", Audience: domain.AudienceNewUser,
			Title: L("Facebook or Instagram profile?"),
			Rules: []domain.Rule{{
				Kind:    domain.RuleStructuredLink,
				Params:  domain.RuleParams{Link: domain.LinkSocial},
				Message: L("Not a profile link"),
			}},
		},
		domain.Question{
			ID: "birth_date", Type: domain.TypeDate, Order: 7, Required: true,
			Destination: "users", Audience: domain.AudienceNewUser,
			Title: L("Birth date?"),
			Rules: []domain.Rule{{
				Kind:    domain.RuleAgeRange,
				Params:  domain.RuleParams{MinAge: 18, MaxAge: 100},
				Message: L("Age must be between 18 and 100"),
			}},
		},
		domain.Question{
			ID: "returning_update", Type: domain.TypeText, Order: 8,
			Destination: "users", Audience: domain.AudienceReturningUser,
			Title: L("Anything changed since last time?"),
		},
		domain.Question{
			ID: "agree_to_rules", Type: domain.TypeBoolean, Order: 9, Required: true,
			Destination: "registrations",
			Title:       L("Do you agree to the rules?"),
		},
	)
	def.Form.Name = "registration"
	def.Form.DefaultLanguage = "he"
	def.Form.LanguageQuestion = "language"
	return def
}
