package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/devotel/go-insurance-forms/pkg/i18n"
	"github.com/devotel/go-insurance-forms/pkg/model"
	"github.com/devotel/go-insurance-forms/pkg/submissions"
	"github.com/devotel/go-insurance-forms/pkg/validation"
	"github.com/devotel/go-insurance-forms/pkg/visibility"
)

// Handler serves the portal's form API: schema listing, submission and the
// submissions table.
type Handler struct {
	schemas []model.FormSchema
	rules   map[string]validation.RuleSet
	store   *SubmissionStore
	logger  *slog.Logger
}

// NewHandler derives a validation rule set per published schema up front so a
// malformed schema fails at startup, not per request.
func NewHandler(schemas []model.FormSchema, store *SubmissionStore, logger *slog.Logger) (*Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	normalized := make([]model.FormSchema, len(schemas))
	copy(normalized, schemas)
	rules := make(map[string]validation.RuleSet, len(normalized))
	for i := range normalized {
		if err := model.NormalizeFormSchema(&normalized[i]); err != nil {
			return nil, fmt.Errorf("server: schema %q: %w", normalized[i].FormID, err)
		}
		rs, err := validation.Build(normalized[i])
		if err != nil {
			return nil, fmt.Errorf("server: schema %q: %w", normalized[i].FormID, err)
		}
		rules[normalized[i].FormID] = rs
	}
	return &Handler{schemas: normalized, rules: rules, store: store, logger: logger}, nil
}

// ListForms returns every published schema.
func (h *Handler) ListForms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.schemas)
}

// GetForm returns one schema by id.
func (h *Handler) GetForm(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")
	for _, schema := range h.schemas {
		if schema.FormID == formID {
			writeJSON(w, http.StatusOK, schema)
			return
		}
	}
	writeError(w, http.StatusNotFound, "FORM_NOT_FOUND", "no form with id "+formID)
}

// submitErrorEntry is one field failure in a rejected submission.
type submitErrorEntry struct {
	FieldID string `json:"fieldId"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Submit validates a finished application against its schema and stores it.
// The form is identified by an optional formId key in the payload; without
// one the first published form applies. Hidden fields are exempt from
// validation, mirroring what the applicant was actually shown.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var values model.FormValues
	if err := decodeJSON(r, &values); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not a JSON object")
		return
	}

	formID, _ := values.String("formId")
	delete(values, "formId")

	schema, rules, ok := h.lookupForm(formID)
	if !ok {
		writeError(w, http.StatusNotFound, "FORM_NOT_FOUND", "no form with id "+formID)
		return
	}

	visible := make(map[string]bool)
	for _, field := range model.Leaves(schema.Fields) {
		if visibility.IsVisible(field, values) {
			visible[field.ID] = true
		}
	}
	errs := rules.ValidateVisible(values, func(fieldID string) bool {
		return visible[fieldID]
	})
	if len(errs) > 0 {
		tr := translatorFor(r)
		entries := make([]submitErrorEntry, 0, len(errs))
		for _, fe := range errs {
			entries = append(entries, submitErrorEntry{
				FieldID: fe.FieldID,
				Code:    string(fe.Code),
				Message: fe.Localize(tr),
			})
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"success": false,
			"errors":  entries,
		})
		return
	}

	id, err := h.store.Insert(r.Context(), schema.FormID, values)
	if err != nil {
		h.logger.Error("submission insert failed", "form_id", schema.FormID, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	h.logger.Info("submission stored", "form_id", schema.FormID, "submission_id", id)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

// ListSubmissions returns the full submissions table. Shaping (filter, sort,
// pagination) is the caller's concern.
func (h *Handler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("submission list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, h.buildTable(subs))
}

func (h *Handler) lookupForm(formID string) (model.FormSchema, validation.RuleSet, bool) {
	if formID == "" {
		if len(h.schemas) == 0 {
			return model.FormSchema{}, validation.RuleSet{}, false
		}
		schema := h.schemas[0]
		return schema, h.rules[schema.FormID], true
	}
	for _, schema := range h.schemas {
		if schema.FormID == formID {
			return schema, h.rules[schema.FormID], true
		}
	}
	return model.FormSchema{}, validation.RuleSet{}, false
}

// buildTable projects stored submissions onto a column set derived from the
// published schemas: identifier and bookkeeping columns first, then every
// leaf field in declared order, first schema wins on shared ids.
func (h *Handler) buildTable(subs []Submission) submissions.TableResponse {
	columns := []string{"id", "form_id", "created_at"}
	seen := map[string]bool{"id": true, "form_id": true, "created_at": true}
	for _, schema := range h.schemas {
		for _, field := range model.Leaves(schema.Fields) {
			if !seen[field.ID] {
				seen[field.ID] = true
				columns = append(columns, field.ID)
			}
		}
	}

	data := make([]submissions.Row, 0, len(subs))
	for _, sub := range subs {
		row := submissions.Row{
			"id":         sub.ID,
			"form_id":    sub.FormID,
			"created_at": sub.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		for id, value := range sub.Values {
			if seen[id] {
				row[id] = value
			}
		}
		data = append(data, row)
	}
	return submissions.TableResponse{Columns: columns, Data: data}
}

// translatorFor picks a message locale from the Accept-Language header.
func translatorFor(r *http.Request) i18n.Translator {
	lang := strings.ToLower(r.Header.Get("Accept-Language"))
	if strings.HasPrefix(lang, "es") {
		return i18n.NewDictionary("es")
	}
	return i18n.NewDictionary("en")
}
