package validation

import (
	"regexp"
	"strconv"
	"time"

	"github.com/devotel/go-insurance-forms/pkg/model"
)

var dateLayouts = []string{"2006-01-02", time.RFC3339}

// Validate evaluates every rule against the current values, in schema order.
func (rs RuleSet) Validate(values model.FormValues) Errors {
	return rs.ValidateVisible(values, nil)
}

// ValidateVisible evaluates rules for the fields the filter admits. A nil
// filter admits everything. Hidden fields are skipped entirely so a field
// that disappears cannot block submission.
func (rs RuleSet) ValidateVisible(values model.FormValues, visible func(fieldID string) bool) Errors {
	var out Errors
	for _, fieldID := range rs.order {
		if visible != nil && !visible(fieldID) {
			continue
		}
		out = append(out, rs.validateField(rs.rules[fieldID], values)...)
	}
	return out
}

// ValidateField evaluates the single field's rule.
func (rs RuleSet) ValidateField(fieldID string, values model.FormValues) Errors {
	rule, ok := rs.rules[fieldID]
	if !ok {
		return nil
	}
	return rs.validateField(rule, values)
}

func (rs RuleSet) validateField(rule Rule, values model.FormValues) Errors {
	raw, present := values[rule.FieldID]
	empty := !present || model.IsEmptyValue(raw)

	if empty {
		if !rule.Required {
			return nil
		}
		if rule.Kind == model.FieldKindCheckbox {
			return Errors{minSelectionError(rule)}
		}
		return Errors{requiredError(rule)}
	}

	switch rule.Kind {
	case model.FieldKindText, model.FieldKindEmail:
		return rs.validateText(rule, raw)
	case model.FieldKindNumber:
		return rs.validateNumber(rule, raw)
	case model.FieldKindDate:
		return rs.validateDate(rule, raw)
	case model.FieldKindCheckbox:
		return rs.validateCheckbox(rule, raw)
	case model.FieldKindSelect, model.FieldKindRadio:
		if _, ok := raw.(string); !ok {
			return Errors{typeError(rule, "validation.type")}
		}
		return nil
	default:
		// Generic rule: presence satisfied everything above.
		return nil
	}
}

func (rs RuleSet) validateText(rule Rule, raw any) Errors {
	text, ok := raw.(string)
	if !ok {
		return Errors{typeError(rule, "validation.type")}
	}

	var out Errors
	length := len([]rune(text))
	if rule.Min != nil && float64(length) < *rule.Min {
		out = append(out, FieldError{
			FieldID:    rule.FieldID,
			Code:       CodeRange,
			MessageKey: "validation.minLength",
			Params:     map[string]string{"min": formatBound(*rule.Min)},
		})
	}
	if rule.Max != nil && float64(length) > *rule.Max {
		out = append(out, FieldError{
			FieldID:    rule.FieldID,
			Code:       CodeRange,
			MessageKey: "validation.maxLength",
			Params:     map[string]string{"max": formatBound(*rule.Max)},
		})
	}
	if rule.Pattern != nil && !rule.Pattern.MatchString(text) {
		out = append(out, FieldError{
			FieldID:    rule.FieldID,
			Code:       CodePattern,
			MessageKey: "validation.pattern",
			Message:    rule.Message,
		})
	}
	if rule.Email && !emailPattern.MatchString(text) {
		out = append(out, FieldError{
			FieldID:    rule.FieldID,
			Code:       CodePattern,
			MessageKey: "validation.email",
		})
	}
	return out
}

func (rs RuleSet) validateNumber(rule Rule, raw any) Errors {
	number, ok := model.AsNumber(raw)
	if !ok {
		// Non-numeric input is a type error, not a required-ness error.
		return Errors{typeError(rule, "validation.type")}
	}

	var out Errors
	if rule.Min != nil && number < *rule.Min {
		out = append(out, FieldError{
			FieldID:    rule.FieldID,
			Code:       CodeRange,
			MessageKey: "validation.min",
			Params:     map[string]string{"min": formatBound(*rule.Min)},
		})
	}
	if rule.Max != nil && number > *rule.Max {
		out = append(out, FieldError{
			FieldID:    rule.FieldID,
			Code:       CodeRange,
			MessageKey: "validation.max",
			Params:     map[string]string{"max": formatBound(*rule.Max)},
		})
	}
	return out
}

func (rs RuleSet) validateDate(rule Rule, raw any) Errors {
	text, ok := raw.(string)
	if !ok {
		return Errors{typeError(rule, "validation.date")}
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, text); err == nil {
			return nil
		}
	}
	return Errors{typeError(rule, "validation.date")}
}

func (rs RuleSet) validateCheckbox(rule Rule, raw any) Errors {
	selected, ok := model.AsStrings(raw)
	if !ok {
		return Errors{typeError(rule, "validation.type")}
	}
	if rule.MinSelected > 0 && len(selected) < rule.MinSelected {
		return Errors{minSelectionError(rule)}
	}
	return nil
}

func requiredError(rule Rule) FieldError {
	return FieldError{
		FieldID:    rule.FieldID,
		Code:       CodeRequired,
		MessageKey: "validation.required",
	}
}

func minSelectionError(rule Rule) FieldError {
	min := rule.MinSelected
	if min < 1 {
		min = 1
	}
	return FieldError{
		FieldID:    rule.FieldID,
		Code:       CodeMinSelection,
		MessageKey: "validation.minSelection",
		Params:     map[string]string{"min": strconv.Itoa(min)},
	}
}

func typeError(rule Rule, key string) FieldError {
	return FieldError{
		FieldID:    rule.FieldID,
		Code:       CodeTypeMismatch,
		MessageKey: key,
	}
}

// emailPattern mirrors the permissive check browsers apply to input[type=email].
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
