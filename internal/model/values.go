package model

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// FormValues maps field ids to their current values. Value types are the JSON
// scalars (string, float64, bool), ordered []string sequences for multi-select
// fields, or nested FormValues. Each mutation replaces one key wholesale.
type FormValues map[string]any

// Clone returns a deep copy. Mutating the copy never observes or affects the
// source, which matters because snapshots escape to the presentation layer.
func (v FormValues) Clone() FormValues {
	if v == nil {
		return FormValues{}
	}
	out := make(FormValues, len(v))
	for key, value := range v {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case []string:
		return append([]string(nil), typed...)
	case []any:
		cloned := make([]any, len(typed))
		for i, item := range typed {
			cloned[i] = cloneValue(item)
		}
		return cloned
	case FormValues:
		return typed.Clone()
	case map[string]any:
		return FormValues(typed).Clone()
	default:
		return typed
	}
}

// Equal compares two value maps by their canonical JSON encoding, which keeps
// the draft-dirty check insensitive to int-vs-float64 drift after a storage
// round trip.
func (v FormValues) Equal(other FormValues) bool {
	left, err := json.Marshal(canonical(v))
	if err != nil {
		return false
	}
	right, err := json.Marshal(canonical(other))
	if err != nil {
		return false
	}
	return string(left) == string(right)
}

func canonical(v FormValues) FormValues {
	if v == nil {
		return FormValues{}
	}
	out := make(FormValues, len(v))
	for key, value := range v {
		if IsEmptyValue(value) {
			continue
		}
		out[key] = value
	}
	return out
}

// IsEmptyValue reports whether a value counts as "not provided" for
// required-ness and dirty tracking.
func IsEmptyValue(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	case []string:
		return len(typed) == 0
	case []any:
		return len(typed) == 0
	default:
		return false
	}
}

// String extracts a string value; non-strings report false.
func (v FormValues) String(id string) (string, bool) {
	raw, ok := v[id]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}

// Number extracts a numeric value, accepting the float64 JSON decoding, native
// ints, and numeric strings (form inputs arrive as text).
func (v FormValues) Number(id string) (float64, bool) {
	raw, ok := v[id]
	if !ok {
		return 0, false
	}
	return AsNumber(raw)
}

// Strings extracts a string sequence, tolerating []any decodings from storage.
func (v FormValues) Strings(id string) ([]string, bool) {
	raw, ok := v[id]
	if !ok {
		return nil, false
	}
	return AsStrings(raw)
}

// AsNumber coerces a scalar into a float64 where that is lossless.
func AsNumber(raw any) (float64, bool) {
	switch typed := raw.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// AsStrings coerces a sequence value into []string. Mixed-type sequences
// report false.
func AsStrings(raw any) ([]string, bool) {
	switch typed := raw.(type) {
	case []string:
		return typed, true
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
