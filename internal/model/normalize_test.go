package model

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseFormSchemaNormalizesOptions(t *testing.T) {
	t.Parallel()

	payload := []byte(`{
		"formId": "home_insurance_application",
		"title": "Home Insurance Application",
		"fields": [
			{
				"id": "home_type",
				"label": "Home Type",
				"type": "select",
				"required": true,
				"options": ["House", {"value": "apt", "label": "Apartment"}, {"value": 2}]
			}
		]
	}`)

	schema, err := ParseFormSchema(payload)
	if err != nil {
		t.Fatalf("ParseFormSchema returned error: %v", err)
	}

	want := []Option{
		{Value: "House", Label: "House"},
		{Value: "apt", Label: "Apartment"},
		{Value: "2", Label: "2"},
	}
	if diff := cmp.Diff(want, schema.Fields[0].Options); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFormSchemaSanitizesLabels(t *testing.T) {
	t.Parallel()

	payload := []byte(`{
		"formId": "f1",
		"title": "<script>alert(1)</script>Quote",
		"fields": [
			{"id": "name", "label": "  <b>Name</b> ", "type": "text"}
		]
	}`)

	schema, err := ParseFormSchema(payload)
	if err != nil {
		t.Fatalf("ParseFormSchema returned error: %v", err)
	}
	if schema.Title != "Quote" {
		t.Fatalf("title = %q, want %q", schema.Title, "Quote")
	}
	if schema.Fields[0].Label != "Name" {
		t.Fatalf("label = %q, want %q", schema.Fields[0].Label, "Name")
	}
}

func TestParseFormSchemaRejectsDuplicateIDs(t *testing.T) {
	t.Parallel()

	payload := []byte(`{
		"formId": "f1",
		"title": "t",
		"fields": [
			{"id": "address", "type": "group", "label": "Address", "fields": [
				{"id": "city", "type": "text", "label": "City"}
			]},
			{"id": "city", "type": "text", "label": "City Again"}
		]
	}`)

	_, err := ParseFormSchema(payload)
	if !errors.Is(err, ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
}

func TestParseFormSchemaRejectsChildrenOutsideGroups(t *testing.T) {
	t.Parallel()

	payload := []byte(`{
		"formId": "f1",
		"title": "t",
		"fields": [
			{"id": "name", "type": "text", "label": "Name", "fields": [
				{"id": "inner", "type": "text", "label": "Inner"}
			]}
		]
	}`)

	_, err := ParseFormSchema(payload)
	if !errors.Is(err, ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
}

func TestParseFormSchemasDecodesListPayload(t *testing.T) {
	t.Parallel()

	payload := []byte(`[
		{"formId": "a", "title": "A", "fields": [{"id": "x", "type": "text", "label": "X"}]},
		{"formId": "b", "title": "B", "fields": [{"id": "y", "type": "text", "label": "Y"}]}
	]`)

	schemas, err := ParseFormSchemas(payload)
	if err != nil {
		t.Fatalf("ParseFormSchemas returned error: %v", err)
	}
	if len(schemas) != 2 || schemas[1].FormID != "b" {
		t.Fatalf("unexpected schemas: %+v", schemas)
	}
}

func TestParseFormSchemaEmptyDocument(t *testing.T) {
	t.Parallel()

	if _, err := ParseFormSchema(nil); !errors.Is(err, ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
}
