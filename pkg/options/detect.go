// Package options resolves coupled-field option lists: when a controlling
// field's value changes (the country half of a country/state pair), the
// dependent field's options are refetched, debounced, and applied only when
// still current.
package options

import (
	"strings"

	"github.com/devotel/go-insurance-forms/pkg/model"
)

// Pair identifies the controlling and dependent fields of a coupled-options
// relationship.
type Pair struct {
	ControllingID string
	DependentID   string
}

// Detect scans the flattened field list for a country/state pair. Explicit
// role hints win; id-substring matching ("country", "state", "province") is
// the documented best-effort fallback. First match wins on both sides, and at
// most one pair is tracked per form; additional candidates are ignored.
func Detect(schema model.FormSchema) (Pair, bool) {
	selects := selectFields(schema.Fields)

	controlling := firstMatch(selects,
		func(f model.FieldSchema) bool { return f.IsCountryRole },
		func(f model.FieldSchema) bool { return containsFold(f.ID, "country") },
	)
	dependent := firstMatch(selects,
		func(f model.FieldSchema) bool { return f.IsStateRole },
		func(f model.FieldSchema) bool {
			return containsFold(f.ID, "state") || containsFold(f.ID, "province")
		},
	)

	if controlling == "" || dependent == "" || controlling == dependent {
		return Pair{}, false
	}
	return Pair{ControllingID: controlling, DependentID: dependent}, true
}

func selectFields(fields []model.FieldSchema) []model.FieldSchema {
	var out []model.FieldSchema
	for _, field := range model.Leaves(fields) {
		if field.Kind == model.FieldKindSelect {
			out = append(out, field)
		}
	}
	return out
}

func firstMatch(fields []model.FieldSchema, predicates ...func(model.FieldSchema) bool) string {
	for _, predicate := range predicates {
		for _, field := range fields {
			if predicate(field) {
				return field.ID
			}
		}
	}
	return ""
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}
