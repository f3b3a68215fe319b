// Package visibility decides whether a field is shown given the current form
// values. Evaluation is pure: it has no memory of prior calls and is re-run on
// every value change.
package visibility

import (
	"github.com/devotel/go-insurance-forms/pkg/model"
)

// IsVisible reports whether the field should be shown. Fields without a
// visibility clause are always visible. Every ambiguous case fails closed:
// absent controlling values, unknown conditions, and type mismatches all hide
// the field.
func IsVisible(field model.FieldSchema, values model.FormValues) bool {
	if field.Visibility == nil {
		return true
	}
	return Evaluate(*field.Visibility, values)
}

// Evaluate applies a single visibility rule against the current values.
func Evaluate(rule model.Visibility, values model.FormValues) bool {
	actual, ok := values[rule.DependsOn]
	if !ok || actual == nil {
		return false
	}

	switch rule.Condition {
	case model.ConditionEquals:
		if seq, isSeq := asSequence(rule.Comparand); isSeq {
			return sequenceContains(seq, actual)
		}
		return scalarEqual(actual, rule.Comparand)
	case model.ConditionNotEquals:
		if seq, isSeq := asSequence(rule.Comparand); isSeq {
			return !sequenceContains(seq, actual)
		}
		return !scalarEqual(actual, rule.Comparand)
	case model.ConditionContains:
		seq, isSeq := asSequence(actual)
		if !isSeq {
			return false
		}
		return sequenceContainsTyped(seq, rule.Comparand)
	case model.ConditionGreaterThan:
		a, aOK := strictNumber(actual)
		b, bOK := strictNumber(rule.Comparand)
		return aOK && bOK && a > b
	case model.ConditionLessThan:
		a, aOK := strictNumber(actual)
		b, bOK := strictNumber(rule.Comparand)
		return aOK && bOK && a < b
	default:
		return false
	}
}

func asSequence(value any) ([]any, bool) {
	switch typed := value.(type) {
	case []any:
		return typed, true
	case []string:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = item
		}
		return out, true
	default:
		return nil, false
	}
}

func sequenceContains(seq []any, target any) bool {
	for _, item := range seq {
		if scalarEqual(item, target) {
			return true
		}
	}
	return false
}

// sequenceContainsTyped is the `contains` membership test: the comparand's
// type must match the sequence's element type, otherwise the rule is false.
func sequenceContainsTyped(seq []any, comparand any) bool {
	for _, item := range seq {
		if !sameScalarKind(item, comparand) {
			return false
		}
		if scalarEqual(item, comparand) {
			return true
		}
	}
	return false
}

func sameScalarKind(a, b any) bool {
	switch a.(type) {
	case string:
		_, ok := b.(string)
		return ok
	case bool:
		_, ok := b.(bool)
		return ok
	default:
		_, aNum := strictNumber(a)
		_, bNum := strictNumber(b)
		return aNum && bNum
	}
}

func scalarEqual(a, b any) bool {
	if aNum, ok := strictNumber(a); ok {
		bNum, ok := strictNumber(b)
		return ok && aNum == bNum
	}
	switch typedA := a.(type) {
	case string:
		typedB, ok := b.(string)
		return ok && typedA == typedB
	case bool:
		typedB, ok := b.(bool)
		return ok && typedA == typedB
	default:
		return false
	}
}

// strictNumber accepts numeric Go types only. Numeric strings deliberately do
// not count; ordering comparisons against text input fail closed.
func strictNumber(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	default:
		return 0, false
	}
}
