package loader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/formflow/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// decodeSkipIf decodes the native condition form. Each node is a map with
// exactly one key:
//
//	field_equals: {field: partner, value: single}
//	field_in:     {field: events, values: [cuddle, play]}
//	user_exists:  true
//	event_type:   cuddle
//	and: [...] / or: [...]
//	not: {...}
func decodeSkipIf(raw any) (domain.Condition, error) {
	node, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("condition must be a map, got %T", raw)
	}
	if len(node) != 1 {
		keys := make([]string, 0, len(node))
		for k := range node {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("condition must have exactly one key, got %v", keys)
	}

	for key, val := range node {
		switch key {
		case "field_equals":
			var leaf struct {
				Field string `mapstructure:"field"`
				Value string `mapstructure:"value"`
			}
			if err := decodeStrict(val, &leaf); err != nil {
				return nil, fmt.Errorf("field_equals: %w", err)
			}
			return domain.FieldEquals{Field: leaf.Field, Value: leaf.Value}, nil

		case "field_in":
			var leaf struct {
				Field  string   `mapstructure:"field"`
				Values []string `mapstructure:"values"`
			}
			if err := decodeStrict(val, &leaf); err != nil {
				return nil, fmt.Errorf("field_in: %w", err)
			}
			return domain.FieldIn{Field: leaf.Field, Values: leaf.Values}, nil

		case "user_exists":
			exists, ok := val.(bool)
			if !ok {
				return nil, fmt.Errorf("user_exists must be a boolean, got %T", val)
			}
			if !exists {
				return domain.Not{Child: domain.UserExists{}}, nil
			}
			return domain.UserExists{}, nil

		case "event_type":
			eventType, ok := val.(string)
			if !ok {
				return nil, fmt.Errorf("event_type must be a string, got %T", val)
			}
			return domain.EventTypeIs{EventType: eventType}, nil

		case "and", "or":
			items, ok := val.([]any)
			if !ok {
				return nil, fmt.Errorf("%s must be a list, got %T", key, val)
			}
			children := make([]domain.Condition, 0, len(items))
			for i, item := range items {
				child, err := decodeSkipIf(item)
				if err != nil {
					return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
				}
				children = append(children, child)
			}
			if key == "and" {
				return domain.And(children), nil
			}
			return domain.Or(children), nil

		case "not":
			child, err := decodeSkipIf(val)
			if err != nil {
				return nil, fmt.Errorf("not: %w", err)
			}
			return domain.Not{Child: child}, nil

		default:
			return nil, fmt.Errorf("unknown condition %q", key)
		}
	}
	panic("unreachable")
}

// decodeLegacy decodes the flat {operator, conditions} form. NOT negates its
// first condition only.
func decodeLegacy(skip *legacySkipDTO) (domain.Condition, error) {
	children := make([]domain.Condition, 0, len(skip.Conditions))
	for i, item := range skip.Conditions {
		c, err := decodeLegacyItem(item)
		if err != nil {
			return nil, fmt.Errorf("conditions[%d]: %w", i, err)
		}
		children = append(children, c)
	}

	switch strings.ToUpper(pick(skip.Operator, "OR")) {
	case "OR":
		return domain.Or(children), nil
	case "AND":
		return domain.And(children), nil
	case "NOT":
		if len(children) == 0 {
			return nil, fmt.Errorf("NOT needs a condition")
		}
		return domain.Not{Child: children[0]}, nil
	default:
		return nil, fmt.Errorf("unknown operator %q", skip.Operator)
	}
}

func decodeLegacyItem(item legacyItemDTO) (domain.Condition, error) {
	op := pick(strings.ToLower(item.Operator), "equals")

	var positive domain.Condition
	switch item.Type {
	case "field_value":
		switch op {
		case "equals", "not_equals":
			v, err := scalar(item.Value)
			if err != nil {
				return nil, err
			}
			positive = domain.FieldEquals{Field: item.Field, Value: v}
		case "in", "not_in":
			values, err := list(item.Value)
			if err != nil {
				return nil, err
			}
			positive = domain.FieldIn{Field: item.Field, Values: values}
		default:
			return nil, fmt.Errorf("unknown operator %q", item.Operator)
		}
	case "user_exists":
		positive = domain.UserExists{}
		if b, ok := item.Value.(bool); ok && !b {
			positive = domain.Not{Child: positive}
		}
	case "user_type":
		// returning users are the ones that already exist.
		v, err := scalar(item.Value)
		if err != nil {
			return nil, err
		}
		positive = domain.UserExists{}
		if v == "new" || v == string(domain.VariantNewUser) {
			positive = domain.Not{Child: positive}
		}
	case "event_type":
		switch op {
		case "equals", "not_equals":
			v, err := scalar(item.Value)
			if err != nil {
				return nil, err
			}
			positive = domain.EventTypeIs{EventType: v}
		case "in", "not_in":
			values, err := list(item.Value)
			if err != nil {
				return nil, err
			}
			or := make(domain.Or, 0, len(values))
			for _, v := range values {
				or = append(or, domain.EventTypeIs{EventType: v})
			}
			positive = or
		default:
			return nil, fmt.Errorf("unknown operator %q", item.Operator)
		}
	default:
		return nil, fmt.Errorf("unknown condition type %q", item.Type)
	}

	if op == "not_equals" || op == "not_in" {
		return domain.Not{Child: positive}, nil
	}
	return positive, nil
}

func scalar(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case bool:
		if t {
			return domain.BoolYes, nil
		}
		return domain.BoolNo, nil
	case int, int64, float64:
		return fmt.Sprint(t), nil
	case nil:
		return "", fmt.Errorf("condition value is missing")
	}
	return "", fmt.Errorf("condition value must be a scalar, got %T", v)
}

// list accepts a list of scalars, or a single scalar as a one-element list.
func list(v any) ([]string, error) {
	items, ok := v.([]any)
	if !ok {
		s, err := scalar(v)
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, err := scalar(item)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func decodeStrict(input, output any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           output,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
