package model

import internalmodel "github.com/devotel/go-insurance-forms/internal/model"

// FieldKind re-exports the internal field kind enumeration.
type FieldKind = internalmodel.FieldKind

const (
	FieldKindText     = internalmodel.FieldKindText
	FieldKindNumber   = internalmodel.FieldKindNumber
	FieldKindDate     = internalmodel.FieldKindDate
	FieldKindSelect   = internalmodel.FieldKindSelect
	FieldKindRadio    = internalmodel.FieldKindRadio
	FieldKindCheckbox = internalmodel.FieldKindCheckbox
	FieldKindGroup    = internalmodel.FieldKindGroup
	FieldKindEmail    = internalmodel.FieldKindEmail
)

// Condition re-exports the visibility condition enumeration.
type Condition = internalmodel.Condition

const (
	ConditionEquals      = internalmodel.ConditionEquals
	ConditionNotEquals   = internalmodel.ConditionNotEquals
	ConditionContains    = internalmodel.ConditionContains
	ConditionGreaterThan = internalmodel.ConditionGreaterThan
	ConditionLessThan    = internalmodel.ConditionLessThan
)

type Option = internalmodel.Option
type Visibility = internalmodel.Visibility
type Validation = internalmodel.Validation
type FieldSchema = internalmodel.FieldSchema
type FormSchema = internalmodel.FormSchema
type FormValues = internalmodel.FormValues

// ErrSchema marks malformed schema documents.
var ErrSchema = internalmodel.ErrSchema

// ParseFormSchema decodes and normalizes a single schema document.
func ParseFormSchema(data []byte) (FormSchema, error) {
	return internalmodel.ParseFormSchema(data)
}

// ParseFormSchemas decodes the portal's list payload of schema documents.
func ParseFormSchemas(data []byte) ([]FormSchema, error) {
	return internalmodel.ParseFormSchemas(data)
}

// NormalizeFormSchema sanitizes display strings and checks schema invariants
// on an already-decoded value.
func NormalizeFormSchema(schema *FormSchema) error {
	return internalmodel.NormalizeFormSchema(schema)
}

// Flatten returns the render-order field list with group header markers.
func Flatten(fields []FieldSchema) []FieldSchema {
	return internalmodel.Flatten(fields)
}

// Leaves returns the flattened list without group headers.
func Leaves(fields []FieldSchema) []FieldSchema {
	return internalmodel.Leaves(fields)
}

// IsEmptyValue reports whether a value counts as not provided.
func IsEmptyValue(value any) bool {
	return internalmodel.IsEmptyValue(value)
}

// AsNumber coerces a scalar into a float64 where lossless.
func AsNumber(raw any) (float64, bool) { return internalmodel.AsNumber(raw) }

// AsStrings coerces a sequence value into []string.
func AsStrings(raw any) ([]string, bool) { return internalmodel.AsStrings(raw) }
