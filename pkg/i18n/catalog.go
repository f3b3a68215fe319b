package i18n

import (
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"
)

// Catalog holds message templates keyed by locale then code. Catalog files are
// YAML documents shaped as:
//
//	en:
//	  validation.required: "This field is required"
//	es:
//	  validation.required: "Este campo es obligatorio"
type Catalog map[string]map[string]string

// LoadCatalog decodes a YAML catalog document.
func LoadCatalog(data []byte) (Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("i18n: decode catalog: %w", err)
	}
	return catalog, nil
}

// LoadCatalogFS decodes a YAML catalog from a filesystem path.
func LoadCatalogFS(fsys fs.FS, name string) (Catalog, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("i18n: read catalog %q: %w", name, err)
	}
	return LoadCatalog(data)
}

// Translator binds the catalog to a locale. Codes missing from the locale fall
// back to the built-in dictionary so partial catalogs stay usable.
func (c Catalog) Translator(locale string) Translator {
	fallback := NewDictionary(locale)
	table := c[locale]
	if len(table) == 0 {
		return fallback
	}
	return TranslatorFunc(func(code string, params map[string]string) string {
		if template, ok := table[code]; ok {
			return Interpolate(template, params)
		}
		return fallback.Message(code, params)
	})
}
