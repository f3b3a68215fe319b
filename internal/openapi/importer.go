// Package openapi imports OpenAPI 3 documents as form schemas. Each POST
// operation with a JSON object request body becomes one form; its properties
// become fields.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/devotel/go-insurance-forms/pkg/model"
)

// Options tune the importer.
type Options struct {
	// ResolveReferences validates the document and follows $ref targets.
	ResolveReferences bool

	// AllowPartial tolerates documents where no operation yields a form.
	AllowPartial bool
}

// Import converts an OpenAPI 3 document into normalized form schemas.
func Import(ctx context.Context, data []byte, opts Options) ([]model.FormSchema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("openapi import: document payload is empty")
	}

	loader := &openapi3.Loader{
		Context:               ctx,
		IsExternalRefsAllowed: opts.ResolveReferences,
	}
	spec, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi import: load document: %w", err)
	}
	if opts.ResolveReferences {
		if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("openapi import: validate: %w", err)
		}
	}

	var schemas []model.FormSchema
	if spec.Paths != nil {
		paths := make([]string, 0, spec.Paths.Len())
		for path := range spec.Paths.Map() {
			paths = append(paths, path)
		}
		sort.Strings(paths)

		for _, path := range paths {
			item := spec.Paths.Map()[path]
			if item == nil || item.Post == nil {
				continue
			}
			schema, ok := formFromOperation(path, item.Post)
			if !ok {
				continue
			}
			if err := model.NormalizeFormSchema(&schema); err != nil {
				return nil, fmt.Errorf("openapi import: %s: %w", path, err)
			}
			schemas = append(schemas, schema)
		}
	}

	if len(schemas) == 0 && !opts.AllowPartial {
		return nil, errors.New("openapi import: no operation with an object request body")
	}
	return schemas, nil
}

func formFromOperation(path string, op *openapi3.Operation) (model.FormSchema, bool) {
	body := requestBodySchema(op.RequestBody)
	if body == nil || !typeIs(body.Type, "object") || len(body.Properties) == 0 {
		return model.FormSchema{}, false
	}

	formID := op.OperationID
	if formID == "" {
		formID = slugify(path)
	}
	title := op.Summary
	if title == "" {
		title = body.Title
	}
	if title == "" {
		title = humanize(formID)
	}

	return model.FormSchema{
		FormID: formID,
		Title:  title,
		Fields: fieldsFromObject(body),
	}, true
}

func requestBodySchema(ref *openapi3.RequestBodyRef) *openapi3.Schema {
	if ref == nil || ref.Value == nil {
		return nil
	}
	content := ref.Value.Content
	if mt, ok := content["application/json"]; ok && mt.Schema != nil && mt.Schema.Value != nil {
		return mt.Schema.Value
	}
	for _, mt := range content {
		if mt.Schema != nil && mt.Schema.Value != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

// fieldsFromObject maps object properties to fields. Property iteration is
// sorted by name so imports are deterministic.
func fieldsFromObject(src *openapi3.Schema) []model.FieldSchema {
	required := make(map[string]bool, len(src.Required))
	for _, name := range src.Required {
		required[name] = true
	}

	names := make([]string, 0, len(src.Properties))
	for name := range src.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]model.FieldSchema, 0, len(names))
	for _, name := range names {
		ref := src.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		fields = append(fields, fieldFromProperty(name, ref.Value, required[name]))
	}
	return fields
}

func fieldFromProperty(name string, src *openapi3.Schema, required bool) model.FieldSchema {
	field := model.FieldSchema{
		ID:       name,
		Label:    labelFor(name, src),
		Required: required,
	}

	switch {
	case typeIs(src.Type, "object"):
		field.Kind = model.FieldKindGroup
		field.Children = fieldsFromObject(src)
		return field

	case typeIs(src.Type, "array"):
		field.Kind = model.FieldKindCheckbox
		if src.Items != nil && src.Items.Value != nil {
			field.Options = optionsFromEnum(src.Items.Value.Enum)
		}
		return field

	case typeIs(src.Type, "boolean"):
		field.Kind = model.FieldKindRadio
		field.Options = []model.Option{{Value: "yes", Label: "Yes"}, {Value: "no", Label: "No"}}
		return field

	case typeIs(src.Type, "number"), typeIs(src.Type, "integer"):
		field.Kind = model.FieldKindNumber
		field.Validation = numberValidation(src)
		return field
	}

	// Strings and untyped properties.
	if len(src.Enum) > 0 {
		field.Kind = model.FieldKindSelect
		field.Options = optionsFromEnum(src.Enum)
		return field
	}
	switch src.Format {
	case "date", "date-time":
		field.Kind = model.FieldKindDate
	case "email":
		field.Kind = model.FieldKindEmail
	default:
		field.Kind = model.FieldKindText
		field.Validation = textValidation(src)
	}
	return field
}

func numberValidation(src *openapi3.Schema) *model.Validation {
	if src.Min == nil && src.Max == nil {
		return nil
	}
	v := &model.Validation{}
	if src.Min != nil {
		value := *src.Min
		v.Min = &value
	}
	if src.Max != nil {
		value := *src.Max
		v.Max = &value
	}
	return v
}

func textValidation(src *openapi3.Schema) *model.Validation {
	if src.Pattern == "" && src.MinLength == 0 && src.MaxLength == nil {
		return nil
	}
	v := &model.Validation{Pattern: src.Pattern}
	if src.MinLength != 0 {
		value := float64(src.MinLength)
		v.Min = &value
	}
	if src.MaxLength != nil {
		value := float64(*src.MaxLength)
		v.Max = &value
	}
	return v
}

func optionsFromEnum(enum []any) []model.Option {
	out := make([]model.Option, 0, len(enum))
	for _, raw := range enum {
		value := fmt.Sprint(raw)
		out = append(out, model.Option{Value: value, Label: value})
	}
	return out
}

func labelFor(name string, src *openapi3.Schema) string {
	if src.Title != "" {
		return src.Title
	}
	return humanize(name)
}

func typeIs(types *openapi3.Types, want string) bool {
	return types != nil && types.Is(want)
}

func humanize(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func slugify(path string) string {
	replaced := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, strings.Trim(path, "/"))
	return strings.Trim(replaced, "_")
}
