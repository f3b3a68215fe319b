// Package schemaload reads form schema documents from JSON or YAML files.
// Every loaded schema is normalized and validated on the way in.
package schemaload

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/devotel/go-insurance-forms/pkg/model"
)

// FromBytes decodes one document, which may hold a single schema or a list.
// YAML documents are converted to JSON before decoding so both formats share
// one normalization path.
func FromBytes(data []byte, format string) ([]model.FormSchema, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "yaml", "yml":
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, err
		}
		data = converted
	case "json", "":
	default:
		return nil, fmt.Errorf("schemaload: unsupported format %q", format)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("schemaload: empty document")
	}
	if trimmed[0] == '[' {
		return model.ParseFormSchemas(trimmed)
	}
	schema, err := model.ParseFormSchema(trimmed)
	if err != nil {
		return nil, err
	}
	return []model.FormSchema{schema}, nil
}

// FromFile loads one schema document; the format follows the extension.
func FromFile(path string) ([]model.FormSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schemaload: read %s: %w", path, err)
	}
	schemas, err := FromBytes(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("schemaload: %s: %w", path, err)
	}
	return schemas, nil
}

// FromDir loads every schema document in a directory, sorted by file name.
// Non-schema files are skipped. Duplicate form ids across files are an error.
func FromDir(dir string) ([]model.FormSchema, error) {
	return FromFS(os.DirFS(dir), ".")
}

// FromFS is FromDir over any fs.FS, for embedded schema sets.
func FromFS(fsys fs.FS, root string) ([]model.FormSchema, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("schemaload: read dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var (
		out  []model.FormSchema
		seen = map[string]string{}
	)
	for _, name := range names {
		data, err := fs.ReadFile(fsys, path(root, name))
		if err != nil {
			return nil, fmt.Errorf("schemaload: read %s: %w", name, err)
		}
		schemas, err := FromBytes(data, filepath.Ext(name))
		if err != nil {
			return nil, fmt.Errorf("schemaload: %s: %w", name, err)
		}
		for _, schema := range schemas {
			if prev, ok := seen[schema.FormID]; ok {
				return nil, fmt.Errorf("schemaload: form %q defined in both %s and %s", schema.FormID, prev, name)
			}
			seen[schema.FormID] = name
			out = append(out, schema)
		}
	}
	return out, nil
}

func path(root, name string) string {
	if root == "." || root == "" {
		return name
	}
	return root + "/" + name
}

// yamlToJSON re-encodes a YAML document as JSON.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("schemaload: decode yaml: %w", err)
	}
	doc = stringifyKeys(doc)
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("schemaload: convert yaml: %w", err)
	}
	return out, nil
}

// stringifyKeys rewrites map[any]any trees into map[string]any so they can
// be JSON encoded.
func stringifyKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = stringifyKeys(e)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = stringifyKeys(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = stringifyKeys(e)
		}
		return t
	default:
		return v
	}
}
