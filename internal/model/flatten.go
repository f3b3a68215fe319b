package model

// Flatten produces the ordered field list used for rendering and visibility
// iteration. Each group is replaced by a header marker (the group field with
// Children stripped) immediately followed by its recursively flattened
// children. Validation does not use this; it walks the nested tree directly.
func Flatten(fields []FieldSchema) []FieldSchema {
	out := make([]FieldSchema, 0, len(fields))
	for _, field := range fields {
		if field.IsGroup() {
			header := field
			header.Children = nil
			out = append(out, header)
			out = append(out, Flatten(field.Children)...)
			continue
		}
		out = append(out, field)
	}
	return out
}

// Leaves returns the flattened list without group header markers. Useful when
// only value-bearing fields matter.
func Leaves(fields []FieldSchema) []FieldSchema {
	flat := Flatten(fields)
	out := make([]FieldSchema, 0, len(flat))
	for _, field := range flat {
		if field.IsGroup() {
			continue
		}
		out = append(out, field)
	}
	return out
}
