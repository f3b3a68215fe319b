// Package validation derives a per-field ruleset from a form schema and
// evaluates current values against it. Failures carry an error code plus a
// localizable message key and params; no user-facing text is hardcoded here.
package validation

import (
	"github.com/devotel/go-insurance-forms/pkg/i18n"
)

// ErrorCode classifies a field validation failure.
type ErrorCode string

const (
	CodeRequired     ErrorCode = "required"
	CodeTypeMismatch ErrorCode = "type_mismatch"
	CodePattern      ErrorCode = "pattern_mismatch"
	CodeRange        ErrorCode = "range_violation"
	CodeMinSelection ErrorCode = "min_selection"
)

// FieldError is one validation failure for one field.
type FieldError struct {
	FieldID    string            `json:"fieldId"`
	Code       ErrorCode         `json:"code"`
	MessageKey string            `json:"messageKey"`
	Params     map[string]string `json:"params,omitempty"`

	// Message carries the schema author's custom text verbatim when the
	// validation block supplies one; it wins over MessageKey resolution.
	Message string `json:"message,omitempty"`
}

// Localize resolves the error into display text via the translator.
func (e FieldError) Localize(tr i18n.Translator) string {
	if e.Message != "" {
		return e.Message
	}
	if tr == nil {
		return e.MessageKey
	}
	return tr.Message(e.MessageKey, e.Params)
}

// Errors is an ordered list of field failures, schema order preserved.
type Errors []FieldError

// ByField groups the failures by field id.
func (errs Errors) ByField() map[string][]FieldError {
	if len(errs) == 0 {
		return nil
	}
	out := make(map[string][]FieldError)
	for _, err := range errs {
		out[err.FieldID] = append(out[err.FieldID], err)
	}
	return out
}

// First returns the first failure in schema order, or nil. The presentation
// layer scrolls to this field after a rejected submit.
func (errs Errors) First() *FieldError {
	if len(errs) == 0 {
		return nil
	}
	return &errs[0]
}

// Has reports whether any failure targets the field.
func (errs Errors) Has(fieldID string) bool {
	for _, err := range errs {
		if err.FieldID == fieldID {
			return true
		}
	}
	return false
}
