package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/microcosm-cc/bluemonday"
)

// ErrSchema marks malformed or inconsistent schema documents. Parse failures
// wrap it so callers can branch with errors.Is.
var ErrSchema = errors.New("model: invalid schema")

// UnmarshalJSON accepts both the canonical {value, label} object shape and the
// bare-string shorthand some schema documents use for options.
func (o *Option) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		o.Value = bare
		o.Label = bare
		return nil
	}

	var obj struct {
		Value any    `json:"value"`
		Label string `json:"label"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("model: decode option: %w", err)
	}

	o.Value = scalarString(obj.Value)
	o.Label = obj.Label
	if o.Label == "" {
		o.Label = o.Value
	}
	return nil
}

func scalarString(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case int:
		return strconv.Itoa(typed)
	default:
		return fmt.Sprint(typed)
	}
}

// ParseFormSchema decodes and normalizes a single schema document.
func ParseFormSchema(data []byte) (FormSchema, error) {
	var schema FormSchema
	if len(data) == 0 {
		return FormSchema{}, fmt.Errorf("%w: empty document", ErrSchema)
	}
	if err := json.Unmarshal(data, &schema); err != nil {
		return FormSchema{}, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if err := NormalizeFormSchema(&schema); err != nil {
		return FormSchema{}, err
	}
	return schema, nil
}

// ParseFormSchemas decodes a list payload, normalizing every entry. The portal
// schema endpoint returns all known forms in one array.
func ParseFormSchemas(data []byte) ([]FormSchema, error) {
	var schemas []FormSchema
	if err := json.Unmarshal(data, &schemas); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	for i := range schemas {
		if err := NormalizeFormSchema(&schemas[i]); err != nil {
			return nil, fmt.Errorf("form %q: %w", schemas[i].FormID, err)
		}
	}
	return schemas, nil
}

// NormalizeFormSchema sanitizes display strings and enforces the structural
// invariants: non-empty form id, at least one field, unique leaf/group ids,
// and children only under group fields.
func NormalizeFormSchema(schema *FormSchema) error {
	if schema == nil {
		return fmt.Errorf("%w: nil schema", ErrSchema)
	}
	if strings.TrimSpace(schema.FormID) == "" {
		return fmt.Errorf("%w: missing formId", ErrSchema)
	}
	if len(schema.Fields) == 0 {
		return fmt.Errorf("%w: form %q has no fields", ErrSchema, schema.FormID)
	}
	schema.Title = sanitizeText(schema.Title)

	seen := make(map[string]struct{})
	return normalizeFields(schema.Fields, seen)
}

func normalizeFields(fields []FieldSchema, seen map[string]struct{}) error {
	for i := range fields {
		field := &fields[i]
		field.ID = strings.TrimSpace(field.ID)
		if field.ID == "" {
			return fmt.Errorf("%w: field with empty id", ErrSchema)
		}
		if _, dup := seen[field.ID]; dup {
			return fmt.Errorf("%w: duplicate field id %q", ErrSchema, field.ID)
		}
		seen[field.ID] = struct{}{}

		field.Label = sanitizeText(field.Label)
		field.Placeholder = sanitizeText(field.Placeholder)
		for j := range field.Options {
			field.Options[j].Label = sanitizeText(field.Options[j].Label)
		}

		if len(field.Children) > 0 && !field.IsGroup() {
			return fmt.Errorf("%w: field %q carries children but is not a group", ErrSchema, field.ID)
		}
		if err := normalizeFields(field.Children, seen); err != nil {
			return err
		}
	}
	return nil
}

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// sanitizeText strips markup from schema-provided display strings. Schemas are
// fetched from a remote endpoint, so labels are treated as untrusted input.
func sanitizeText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(textPolicy.Sanitize(trimmed))
}
