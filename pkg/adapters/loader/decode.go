// Package loader reads form definitions from YAML, JSON or JSONC files and
// watches them for changes.
package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/schema"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Format is a schema file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	// FormatJSON also accepts JSONC comments and trailing commas.
	FormatJSON Format = "json"
)

// ErrUnsupportedFormat is returned for file extensions with no decoder.
var ErrUnsupportedFormat = errors.New("unsupported schema format")

// FormatOf picks the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json", ".jsonc":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// LoadFile reads and decodes the definition at path. The result still has to
// go through schema.Load.
func LoadFile(path string) (schema.Definition, error) {
	format, err := FormatOf(path)
	if err != nil {
		return schema.Definition{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.Definition{}, fmt.Errorf("failed to read schema file: %w", err)
	}
	def, err := Decode(data, format)
	if err != nil {
		return schema.Definition{}, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Decode parses data in the given format into a Definition.
func Decode(data []byte, format Format) (schema.Definition, error) {
	raw := map[string]any{}
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return schema.Definition{}, fmt.Errorf("invalid yaml: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
			return schema.Definition{}, fmt.Errorf("invalid json: %w", err)
		}
	default:
		return schema.Definition{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	var doc documentDTO
	if err := decodeStrict(raw, &doc); err != nil {
		return schema.Definition{}, err
	}
	return doc.definition()
}

func (d documentDTO) definition() (schema.Definition, error) {
	form := d.Form
	if form.Name == "" && len(form.Languages) == 0 {
		form = d.FormMetadata
	}
	def := schema.Definition{
		Form: schema.FormInfo{
			Name:             form.Name,
			Version:          form.Version,
			Languages:        form.Languages,
			DefaultLanguage:  form.DefaultLanguage,
			LanguageQuestion: form.LanguageQuestion,
		},
		Texts: map[string]domain.LocalizedText{},
	}
	for k, v := range d.ExtraTexts {
		def.Texts[k] = domain.LocalizedText(v)
	}
	for k, v := range d.Texts {
		def.Texts[k] = domain.LocalizedText(v)
	}

	items, err := questionItems(d.Questions)
	if err != nil {
		return schema.Definition{}, err
	}
	for i, item := range items {
		var dto questionDTO
		if err := decodeStrict(item.raw, &dto); err != nil {
			return schema.Definition{}, fmt.Errorf("questions[%s]: %w", item.label(i), err)
		}
		if dto.ID == "" && dto.QuestionID == "" {
			dto.ID = item.key
		}
		q, err := dto.question()
		if err != nil {
			return schema.Definition{}, fmt.Errorf("questions[%s]: %w", item.label(i), err)
		}
		def.Questions = append(def.Questions, q)
	}
	return def, nil
}

type questionItem struct {
	key string
	raw any
}

func (q questionItem) label(i int) string {
	if q.key != "" {
		return q.key
	}
	return fmt.Sprint(i)
}

func questionItems(raw any) ([]questionItem, error) {
	switch t := raw.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]questionItem, len(t))
		for i, v := range t {
			out[i] = questionItem{raw: v}
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]questionItem, len(keys))
		for i, k := range keys {
			out[i] = questionItem{key: k, raw: t[k]}
		}
		return out, nil
	}
	return nil, fmt.Errorf("questions must be a list or a map, got %T", raw)
}

// Older files name types and rules after the bot's own link helpers.
var typeAliases = map[string]domain.QuestionType{
	"select":        domain.TypeSingleSelect,
	"telegram_link": domain.TypeTelegramHandle,
	"facebook_link": domain.TypeSocialLink,
}

func (dto questionDTO) question() (domain.Question, error) {
	typ := domain.QuestionType(strings.ToLower(pick(dto.Type, dto.QuestionType)))
	if alias, ok := typeAliases[string(typ)]; ok {
		typ = alias
	}

	q := domain.Question{
		ID:          pick(dto.ID, dto.QuestionID),
		Type:        typ,
		Order:       dto.Order,
		Required:    dto.Required,
		Destination: pick(dto.Destination, dto.SaveTo),
		Audience:    domain.Audience(dto.Audience),
		Title:       domain.LocalizedText(dto.Title),
		Placeholder: domain.LocalizedText(dto.Placeholder),
	}
	if q.Audience == "both" {
		q.Audience = domain.AudienceBoth
	}

	for _, o := range dto.Options {
		label := o.Label
		if label == nil {
			label = o.Text
		}
		q.Options = append(q.Options, domain.Option{Value: o.Value, Label: domain.LocalizedText(label)})
	}

	for _, r := range append(dto.Rules, dto.ValidationRules...) {
		q.Rules = append(q.Rules, r.rule())
	}

	switch {
	case dto.SkipIf != nil && dto.SkipCondition != nil:
		return domain.Question{}, fmt.Errorf("skip_if and skip_condition are mutually exclusive")
	case dto.SkipIf != nil:
		c, err := decodeSkipIf(dto.SkipIf)
		if err != nil {
			return domain.Question{}, fmt.Errorf("skip_if: %w", err)
		}
		q.SkipIf = c
	case dto.SkipCondition != nil:
		c, err := decodeLegacy(dto.SkipCondition)
		if err != nil {
			return domain.Question{}, fmt.Errorf("skip_condition: %w", err)
		}
		q.SkipIf = c
	}
	return q, nil
}

func (dto ruleDTO) rule() domain.Rule {
	kind := domain.RuleKind(strings.ToLower(pick(dto.Kind, dto.RuleType)))
	p := dto.Params
	params := domain.RuleParams{
		Min:          p.Min,
		Max:          p.Max,
		Pattern:      pick(p.Pattern, p.Regex),
		Link:         domain.LinkKind(p.Link),
		NotBefore:    p.NotBefore,
		NotAfter:     p.NotAfter,
		MaxDaysAgo:   p.MaxDaysAgo,
		MaxDaysAhead: p.MaxDaysAhead,
	}

	switch kind {
	case "telegram_link":
		kind, params.Link = domain.RuleStructuredLink, domain.LinkTelegram
	case "facebook_link":
		kind, params.Link = domain.RuleStructuredLink, domain.LinkFacebook
	case "date_range":
		kind = domain.RuleDateWithinRange
	case "sti_test_date":
		// A test date cannot lie in the future.
		kind = domain.RuleDateWithinRange
		if params.MaxDaysAhead == nil {
			zero := 0
			params.MaxDaysAhead = &zero
		}
	case domain.RuleAgeRange:
		params.MinAge, params.MaxAge = 18, 100
	}
	if p.MinAge != nil {
		params.MinAge = *p.MinAge
	}
	if p.MaxAge != nil {
		params.MaxAge = *p.MaxAge
	}

	return domain.Rule{Kind: kind, Params: params, Message: domain.LocalizedText(firstText(dto.Message, dto.ErrorMessage))}
}

func firstText(a, b map[string]string) map[string]string {
	if a != nil {
		return a
	}
	return b
}
