package model

// FieldKind is the enum of input kinds understood by the form engine.
type FieldKind string

const (
	FieldKindText     FieldKind = "text"
	FieldKindNumber   FieldKind = "number"
	FieldKindDate     FieldKind = "date"
	FieldKindSelect   FieldKind = "select"
	FieldKindRadio    FieldKind = "radio"
	FieldKindCheckbox FieldKind = "checkbox"
	FieldKindGroup    FieldKind = "group"
	FieldKindEmail    FieldKind = "email"
)

// Condition names a visibility comparison between a controlling field's
// current value and a comparand.
type Condition string

const (
	ConditionEquals      Condition = "equals"
	ConditionNotEquals   Condition = "notEquals"
	ConditionContains    Condition = "contains"
	ConditionGreaterThan Condition = "greaterThan"
	ConditionLessThan    Condition = "lessThan"
)

// Option is the canonical {value, label} pair for choice fields. Schema
// documents may carry options as bare strings; decoding normalizes those into
// this shape once, so downstream code never re-inspects the raw form.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Visibility gates a field on another field's current value. The comparand is
// either a scalar (string, number, bool) or an ordered sequence of scalars;
// sequence comparands turn equals/notEquals into membership tests.
type Visibility struct {
	DependsOn string    `json:"dependsOn"`
	Condition Condition `json:"condition"`
	Comparand any       `json:"value"`
}

// Validation carries the optional per-field constraint block. Min and Max are
// numeric bounds for number fields and length bounds for text fields. Message
// overrides the default localized text for pattern failures.
type Validation struct {
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Pattern string   `json:"pattern,omitempty"`
	Message string   `json:"message,omitempty"`
}

// FieldSchema describes one form field. Group fields are pure containers:
// they carry Children and never hold a value of their own.
type FieldSchema struct {
	ID          string        `json:"id"`
	Label       string        `json:"label"`
	Kind        FieldKind     `json:"type"`
	Required    bool          `json:"required,omitempty"`
	Placeholder string        `json:"placeholder,omitempty"`
	Options     []Option      `json:"options,omitempty"`
	Validation  *Validation   `json:"validation,omitempty"`
	Visibility  *Visibility   `json:"visibility,omitempty"`
	Children    []FieldSchema `json:"fields,omitempty"`

	// Role hints mark the controlling/dependent half of a coupled-options
	// relationship. When absent, detection falls back to id substrings.
	IsCountryRole bool `json:"isCountryField,omitempty"`
	IsStateRole   bool `json:"isStateField,omitempty"`
}

// IsGroup reports whether the field is a container for child fields.
func (f FieldSchema) IsGroup() bool { return f.Kind == FieldKindGroup }

// FormSchema is the immutable description of one form. A new schema selection
// replaces the value wholesale; nothing patches it in place.
type FormSchema struct {
	FormID string        `json:"formId"`
	Title  string        `json:"title"`
	Fields []FieldSchema `json:"fields"`
}
