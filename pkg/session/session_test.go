package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/devotel/go-insurance-forms/pkg/draft"
	"github.com/devotel/go-insurance-forms/pkg/model"
	"github.com/devotel/go-insurance-forms/pkg/validation"
)

func insuranceSchema() model.FormSchema {
	return model.FormSchema{
		FormID: "home_insurance_application",
		Title:  "Home Insurance Application",
		Fields: []model.FieldSchema{
			{ID: "full_name", Label: "Full Name", Kind: model.FieldKindText, Required: true},
			{ID: "email", Label: "Email", Kind: model.FieldKindText, Required: true},
			{
				ID: "has_security", Label: "Security System", Kind: model.FieldKindRadio,
				Options: []model.Option{{Value: "yes", Label: "Yes"}, {Value: "no", Label: "No"}},
			},
			{
				ID: "security_type", Label: "Security Type", Kind: model.FieldKindSelect,
				Required: true,
				Options:  []model.Option{{Value: "monitored", Label: "Monitored"}, {Value: "local", Label: "Local"}},
				Visibility: &model.Visibility{
					DependsOn: "has_security", Condition: model.ConditionEquals, Comparand: "yes",
				},
			},
		},
	}
}

type stubSubmitter struct {
	mu      sync.Mutex
	err     error
	delay   time.Duration
	calls   int
	lastVal model.FormValues
}

func (s *stubSubmitter) SubmitForm(ctx context.Context, values model.FormValues) (Receipt, error) {
	s.mu.Lock()
	s.calls++
	s.lastVal = values.Clone()
	err := s.err
	delay := s.delay
	s.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return Receipt{}, ctx.Err()
		}
	}
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{Success: true, ID: "sub-123"}, nil
}

func (s *stubSubmitter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestController(t *testing.T, cfg Config) *Controller {
	t.Helper()
	if cfg.Schema.FormID == "" {
		cfg.Schema = insuranceSchema()
	}
	if cfg.Submitter == nil {
		cfg.Submitter = &stubSubmitter{}
	}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNewStartsReady(t *testing.T) {
	t.Parallel()

	c := newTestController(t, Config{})
	if got := c.State(); got != StateReady {
		t.Fatalf("state = %q, want %q", got, StateReady)
	}

	snap := c.Snapshot()
	if snap.IsDirty {
		t.Error("fresh session reported dirty")
	}
	if snap.IsValid {
		t.Error("session with unmet required fields reported valid")
	}
}

func TestNewRejectsMalformedSchema(t *testing.T) {
	t.Parallel()

	schema := model.FormSchema{
		FormID: "broken",
		Fields: []model.FieldSchema{
			{ID: "dup", Kind: model.FieldKindText},
			{ID: "dup", Kind: model.FieldKindText},
		},
	}
	if _, err := New(Config{Schema: schema, Submitter: &stubSubmitter{}}); !errors.Is(err, model.ErrSchema) {
		t.Fatalf("err = %v, want ErrSchema", err)
	}
}

func TestHiddenFieldExcludedFromValidationAndRender(t *testing.T) {
	t.Parallel()

	c := newTestController(t, Config{})

	snap := c.Snapshot()
	for _, f := range snap.VisibleFields {
		if f.ID == "security_type" {
			t.Fatal("security_type visible before has_security is yes")
		}
	}
	if snap.FieldErrors["security_type"] != nil {
		t.Fatal("hidden required field produced an error")
	}

	if err := c.SetValue("has_security", "yes"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	snap = c.Snapshot()
	found := false
	for _, f := range snap.VisibleFields {
		if f.ID == "security_type" {
			found = true
		}
	}
	if !found {
		t.Fatal("security_type not visible after has_security = yes")
	}
	if snap.FieldErrors["security_type"] == nil {
		t.Fatal("visible empty required field produced no error")
	}

	// Toggling back off hides the field and drops its error.
	if err := c.SetValue("has_security", "no"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if snap := c.Snapshot(); snap.FieldErrors["security_type"] != nil {
		t.Fatal("hidden field error survived visibility change")
	}
}

func TestSetValueClearsOnEmpty(t *testing.T) {
	t.Parallel()

	c := newTestController(t, Config{})
	if err := c.SetValue("full_name", "Ada"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if err := c.SetValue("full_name", ""); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	snap := c.Snapshot()
	if _, ok := snap.Values["full_name"]; ok {
		t.Fatal("cleared value still present")
	}
	if snap.IsDirty {
		t.Error("round-tripped values reported dirty")
	}
}

func TestSubmitValidationFailureMarksAllTouched(t *testing.T) {
	t.Parallel()

	sub := &stubSubmitter{}
	c := newTestController(t, Config{Submitter: sub})

	_, err := c.Submit(context.Background())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if len(verr.Errors) == 0 {
		t.Fatal("validation error carries no field errors")
	}
	if sub.callCount() != 0 {
		t.Fatal("submitter invoked despite validation failure")
	}
	if !c.Touched("full_name") || !c.Touched("email") {
		t.Fatal("fields not marked touched after failed submit")
	}
	if got := c.State(); got != StateReady {
		t.Fatalf("state = %q, want %q", got, StateReady)
	}
}

func fillValid(t *testing.T, c *Controller) {
	t.Helper()
	for id, v := range map[string]any{
		"full_name":    "Ada Lovelace",
		"email":        "ada@example.com",
		"has_security": "no",
	} {
		if err := c.SetValue(id, v); err != nil {
			t.Fatalf("SetValue(%s): %v", id, err)
		}
	}
}

func TestSubmitSuccessClearsDraftAndReverts(t *testing.T) {
	t.Parallel()

	store := draft.NewMemoryStore()
	drafts := draft.NewManager(store)
	sub := &stubSubmitter{}
	c := newTestController(t, Config{
		Submitter:        sub,
		Drafts:           drafts,
		Autosave:         true,
		SubmittedDisplay: 30 * time.Millisecond,
	})
	fillValid(t, c)

	if _, ok, _ := store.Get("draft:home_insurance_application"); !ok {
		t.Fatal("draft not saved after dirty change")
	}

	receipt, err := c.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !receipt.Success || receipt.ID != "sub-123" {
		t.Fatalf("receipt = %+v", receipt)
	}
	if got := c.State(); got != StateSubmitted {
		t.Fatalf("state = %q, want %q", got, StateSubmitted)
	}
	if _, ok, _ := store.Get("draft:home_insurance_application"); ok {
		t.Fatal("draft survived successful submit")
	}

	deadline := time.After(time.Second)
	for c.State() != StateReady {
		select {
		case <-deadline:
			t.Fatal("submitted state never reverted to ready")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSubmitFailurePreservesValuesAndDraft(t *testing.T) {
	t.Parallel()

	store := draft.NewMemoryStore()
	drafts := draft.NewManager(store)
	sub := &stubSubmitter{err: fmt.Errorf("endpoint down")}
	c := newTestController(t, Config{Submitter: sub, Drafts: drafts, Autosave: true})
	fillValid(t, c)

	before := c.Snapshot().Values
	_, err := c.Submit(context.Background())
	if !errors.Is(err, ErrSubmission) {
		t.Fatalf("err = %v, want ErrSubmission", err)
	}
	if got := c.State(); got != StateReady {
		t.Fatalf("state = %q, want %q", got, StateReady)
	}
	if diff := cmp.Diff(before, c.Snapshot().Values); diff != "" {
		t.Fatalf("values changed after failed submit (-before +after):\n%s", diff)
	}
	if _, ok, _ := store.Get("draft:home_insurance_application"); !ok {
		t.Fatal("draft cleared by failed submit")
	}

	// The session is immediately retry-able.
	sub.mu.Lock()
	sub.err = nil
	sub.mu.Unlock()
	if _, err := c.Submit(context.Background()); err != nil {
		t.Fatalf("retry Submit: %v", err)
	}
}

func TestOnSubmitSuccessCallback(t *testing.T) {
	t.Parallel()

	got := make(chan Receipt, 1)
	c := newTestController(t, Config{
		OnSubmitSuccess: func(r Receipt) { got <- r },
	})
	fillValid(t, c)

	if _, err := c.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	select {
	case r := <-got:
		if r.ID != "sub-123" {
			t.Fatalf("receipt ID = %q", r.ID)
		}
	default:
		t.Fatal("success callback not invoked")
	}
}

func TestDraftRestoredOnStart(t *testing.T) {
	t.Parallel()

	store := draft.NewMemoryStore()
	drafts := draft.NewManager(store)

	first := newTestController(t, Config{Drafts: drafts, Autosave: true})
	if err := first.SetValue("full_name", "Grace"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	first.Close()

	second := newTestController(t, Config{Drafts: drafts})
	if got, _ := second.Snapshot().Values.String("full_name"); got != "Grace" {
		t.Fatalf("restored full_name = %q, want Grace", got)
	}
	if second.Snapshot().IsDirty {
		t.Error("restored session reported dirty before any change")
	}
}

func TestInitialValuesWinOverDraft(t *testing.T) {
	t.Parallel()

	store := draft.NewMemoryStore()
	drafts := draft.NewManager(store)
	drafts.Save("draft:home_insurance_application", model.FormValues{"full_name": "Old"})

	c := newTestController(t, Config{
		Drafts:        drafts,
		InitialValues: model.FormValues{"full_name": "New"},
	})
	if got, _ := c.Snapshot().Values.String("full_name"); got != "New" {
		t.Fatalf("full_name = %q, want New", got)
	}
}

func TestSaveDraftNowSkipsValidation(t *testing.T) {
	t.Parallel()

	store := draft.NewMemoryStore()
	drafts := draft.NewManager(store)
	c := newTestController(t, Config{Drafts: drafts})

	// The form is invalid (required fields empty); the save happens anyway.
	at, ok := c.SaveDraftNow()
	if !ok || at.IsZero() {
		t.Fatalf("SaveDraftNow = (%v, %v)", at, ok)
	}
	if got := c.Snapshot().LastSavedAt; !got.Equal(at) {
		t.Fatalf("LastSavedAt = %v, want %v", got, at)
	}
}

func TestClearDraftKeepsValues(t *testing.T) {
	t.Parallel()

	store := draft.NewMemoryStore()
	drafts := draft.NewManager(store)
	c := newTestController(t, Config{Drafts: drafts, Autosave: true})
	if err := c.SetValue("full_name", "Ada"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}

	c.ClearDraft()
	if _, ok, _ := store.Get("draft:home_insurance_application"); ok {
		t.Fatal("draft survived ClearDraft")
	}
	if got, _ := c.Snapshot().Values.String("full_name"); got != "Ada" {
		t.Fatal("in-memory values lost on ClearDraft")
	}
}

func TestCloseSavesDirtySession(t *testing.T) {
	t.Parallel()

	store := draft.NewMemoryStore()
	drafts := draft.NewManager(store)
	c := newTestController(t, Config{Drafts: drafts, Autosave: true})
	if err := c.SetValue("email", "ada@example.com"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	store.Remove("draft:home_insurance_application")

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok, _ := store.Get("draft:home_insurance_application"); !ok {
		t.Fatal("no final save on Close")
	}
	if err := c.SetValue("email", "x"); !errors.Is(err, ErrClosed) {
		t.Fatalf("SetValue after Close = %v, want ErrClosed", err)
	}
}

func TestReplaceSchemaResetsSession(t *testing.T) {
	t.Parallel()

	store := draft.NewMemoryStore()
	drafts := draft.NewManager(store)
	c := newTestController(t, Config{Drafts: drafts, Autosave: true})
	if err := c.SetValue("full_name", "Ada"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	c.MarkTouched("full_name")

	next := model.FormSchema{
		FormID: "auto_insurance_application",
		Title:  "Auto Insurance",
		Fields: []model.FieldSchema{
			{ID: "vehicle_make", Label: "Vehicle Make", Kind: model.FieldKindText, Required: true},
		},
	}
	if err := c.ReplaceSchema(next, ""); err != nil {
		t.Fatalf("ReplaceSchema: %v", err)
	}

	snap := c.Snapshot()
	if snap.FormID != "auto_insurance_application" {
		t.Fatalf("FormID = %q", snap.FormID)
	}
	if len(snap.Values) != 0 {
		t.Fatalf("values carried across schemas: %v", snap.Values)
	}
	if c.Touched("full_name") {
		t.Fatal("touched state carried across schemas")
	}

	// The old form's draft is still intact under its own key.
	if _, ok, _ := store.Get("draft:home_insurance_application"); !ok {
		t.Fatal("old draft lost on schema replacement")
	}
	if err := c.SetValue("vehicle_make", "Volvo"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if _, ok, _ := store.Get("draft:auto_insurance_application"); !ok {
		t.Fatal("new draft not saved under new key")
	}
}

func TestSubmitResultDiscardedAfterReplace(t *testing.T) {
	t.Parallel()

	store := draft.NewMemoryStore()
	drafts := draft.NewManager(store)
	sub := &stubSubmitter{delay: 50 * time.Millisecond}
	c := newTestController(t, Config{Submitter: sub, Drafts: drafts, Autosave: true})
	fillValid(t, c)

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		done <- err
	}()

	// Replace the schema while the submission is in flight; the late reply
	// must not clear the new session's state or flip it to Submitted.
	time.Sleep(10 * time.Millisecond)
	next := model.FormSchema{
		FormID: "auto_insurance_application",
		Fields: []model.FieldSchema{{ID: "vehicle_make", Kind: model.FieldKindText}},
	}
	if err := c.ReplaceSchema(next, ""); err != nil {
		t.Fatalf("ReplaceSchema: %v", err)
	}

	if err := <-done; !errors.Is(err, ErrClosed) {
		t.Fatalf("stale submit err = %v, want ErrClosed", err)
	}
	if got := c.State(); got != StateReady {
		t.Fatalf("state = %q, want %q", got, StateReady)
	}
}

func TestLocalizedErrors(t *testing.T) {
	t.Parallel()

	c := newTestController(t, Config{})
	msgs := c.LocalizedErrors()
	if len(msgs["full_name"]) == 0 {
		t.Fatal("no localized message for empty required field")
	}
	if msgs["full_name"][0] == "" {
		t.Fatal("empty localized message")
	}
}

func TestValidationOptionsApplied(t *testing.T) {
	t.Parallel()

	schema := model.FormSchema{
		FormID: "quote",
		Fields: []model.FieldSchema{
			{ID: "coverage", Kind: model.FieldKindNumber},
		},
	}
	c := newTestController(t, Config{
		Schema:            schema,
		ValidationOptions: []validation.Option{validation.WithDefaultMin(0)},
	})
	if err := c.SetValue("coverage", -5.0); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if c.Snapshot().FieldErrors["coverage"] == nil {
		t.Fatal("default minimum not enforced")
	}
}
