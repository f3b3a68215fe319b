package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/devotel/go-insurance-forms/pkg/model"
)

// Rule is the derived constraint set for one leaf field.
type Rule struct {
	FieldID     string
	Kind        model.FieldKind
	Required    bool
	Email       bool
	Pattern     *regexp.Regexp
	Message     string
	Min         *float64
	Max         *float64
	MinSelected int
}

// RuleSet maps leaf field ids to rules, preserving schema order. It is
// rebuilt whenever the schema changes and never edited by hand.
type RuleSet struct {
	rules map[string]Rule
	order []string
}

// Option customises rule derivation.
type Option func(*builderOptions)

type builderOptions struct {
	defaultMin *float64
}

// WithDefaultMin applies an implicit minimum to number fields whose schema
// carries no validation block. Off by default; some legacy portal schemas
// assumed min 0.
func WithDefaultMin(min float64) Option {
	return func(o *builderOptions) {
		o.defaultMin = &min
	}
}

// Build derives the ruleset from a schema, recursing into group children.
// Groups themselves never receive a rule. An invalid regex pattern is a
// schema defect and fails the build.
func Build(schema model.FormSchema, opts ...Option) (RuleSet, error) {
	var options builderOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	rs := RuleSet{rules: make(map[string]Rule)}
	if err := buildFields(schema.Fields, options, &rs); err != nil {
		return RuleSet{}, err
	}
	return rs, nil
}

func buildFields(fields []model.FieldSchema, options builderOptions, rs *RuleSet) error {
	for _, field := range fields {
		if field.IsGroup() {
			if err := buildFields(field.Children, options, rs); err != nil {
				return err
			}
			continue
		}

		rule, err := buildRule(field, options)
		if err != nil {
			return err
		}
		rs.rules[field.ID] = rule
		rs.order = append(rs.order, field.ID)
	}
	return nil
}

func buildRule(field model.FieldSchema, options builderOptions) (Rule, error) {
	rule := Rule{
		FieldID:  field.ID,
		Kind:     field.Kind,
		Required: field.Required,
	}

	switch field.Kind {
	case model.FieldKindText, model.FieldKindEmail:
		rule.Email = field.Kind == model.FieldKindEmail ||
			strings.Contains(strings.ToLower(field.ID), "email")
		if v := field.Validation; v != nil {
			if v.Pattern != "" {
				compiled, err := regexp.Compile(v.Pattern)
				if err != nil {
					return Rule{}, fmt.Errorf("%w: field %q pattern: %v", model.ErrSchema, field.ID, err)
				}
				rule.Pattern = compiled
				rule.Message = v.Message
			}
			rule.Min = v.Min
			rule.Max = v.Max
		}
	case model.FieldKindNumber:
		if v := field.Validation; v != nil {
			rule.Min = v.Min
			rule.Max = v.Max
		} else if options.defaultMin != nil {
			min := *options.defaultMin
			rule.Min = &min
		}
	case model.FieldKindCheckbox:
		if field.Required {
			rule.MinSelected = 1
		}
	case model.FieldKindDate, model.FieldKindSelect, model.FieldKindRadio:
		// Required-ness and type checks only.
	default:
		// Unrecognized kinds fall back to a generic rule; required still
		// applies, nothing else does.
	}

	return rule, nil
}

// Rule returns the rule for a field id.
func (rs RuleSet) Rule(fieldID string) (Rule, bool) {
	rule, ok := rs.rules[fieldID]
	return rule, ok
}

// FieldIDs returns the rule ids in schema order.
func (rs RuleSet) FieldIDs() []string {
	return append([]string(nil), rs.order...)
}

// Len reports the number of leaf rules.
func (rs RuleSet) Len() int { return len(rs.order) }

func formatBound(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
