package session

import (
	"context"
	"errors"
	"time"

	"github.com/devotel/go-insurance-forms/pkg/i18n"
	"github.com/devotel/go-insurance-forms/pkg/model"
	"github.com/devotel/go-insurance-forms/pkg/validation"
	"github.com/devotel/go-insurance-forms/pkg/visibility"
)

// Snapshot is the read surface a renderer consumes. Values is a copy; mutating
// it does not touch the session.
type Snapshot struct {
	State           State
	FormID          string
	Title           string
	Values          model.FormValues
	VisibleFields   []model.FieldSchema
	FieldErrors     map[string][]validation.FieldError
	FirstErrorField string
	IsValid         bool
	IsDirty         bool
	LastSavedAt     time.Time
}

// State returns the controller's current lifecycle position.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot captures the current render state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:         c.state,
		FormID:        c.schema.FormID,
		Title:         c.schema.Title,
		Values:        c.values.Clone(),
		VisibleFields: c.visibleFieldsLocked(),
		FieldErrors:   c.errs.ByField(),
		IsValid:       len(c.errs) == 0,
		IsDirty:       !c.values.Equal(c.initial),
		LastSavedAt:   c.lastSavedAt,
	}
	if first := c.errs.First(); first != nil {
		snap.FirstErrorField = first.FieldID
	}
	return snap
}

// visibleFieldsLocked filters the flattened render list. Each field's own
// visibility rule is evaluated independently against the full value map.
func (c *Controller) visibleFieldsLocked() []model.FieldSchema {
	out := make([]model.FieldSchema, 0, len(c.flat))
	for _, field := range c.flat {
		if visibility.IsVisible(field, c.values) {
			out = append(out, field)
		}
	}
	return out
}

// recomputeLocked re-runs the per-change pipeline: visibility first, then
// validation restricted to the fields that survived it. Hidden fields drop
// out of the error set even when their stored values are invalid.
func (c *Controller) recomputeLocked() {
	visible := make(map[string]bool, len(c.flat))
	for _, field := range c.flat {
		if visibility.IsVisible(field, c.values) {
			visible[field.ID] = true
		}
	}
	c.errs = c.rules.ValidateVisible(c.values, func(fieldID string) bool {
		return visible[fieldID]
	})
}

// SetValue records a field change and re-runs the change pipeline. The new
// value replaces the old one wholesale. Checkbox values are []string, number
// values float64 or numeric string, everything else string.
func (c *Controller) SetValue(fieldID string, value any) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == StateUninitialized || c.state == StateSubmitting {
		state := c.state
		c.mu.Unlock()
		return errorNotReady(state)
	}

	if model.IsEmptyValue(value) {
		delete(c.values, fieldID)
	} else {
		c.values[fieldID] = value
	}
	c.recomputeLocked()

	dirty := !c.values.Equal(c.initial)
	saveNow := dirty && c.cfg.Autosave && c.drafts != nil
	var (
		observe       bool
		observedValue string
	)
	if c.resolver != nil && fieldID == c.pair.ControllingID {
		observe = true
		observedValue, _ = c.values.String(fieldID)
	}
	if saveNow {
		c.saveDraftLocked()
	}
	resolver := c.resolver
	c.mu.Unlock()

	if observe && resolver != nil {
		resolver.Observe(observedValue)
	}
	return nil
}

// MarkTouched records that the user interacted with a field. Rendering uses
// this to decide whether an error is shown inline.
func (c *Controller) MarkTouched(fieldID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touched[fieldID] = true
}

// Touched reports whether a field was interacted with this session.
func (c *Controller) Touched(fieldID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.touched[fieldID]
}

// OptionsFor returns a field's current option list. Dependent fields get the
// most recently resolved remote list; everything else keeps the schema's
// static options.
func (c *Controller) OptionsFor(fieldID string) []model.Option {
	c.mu.Lock()
	defer c.mu.Unlock()

	if opts, ok := c.dynamicOptions[fieldID]; ok {
		out := make([]model.Option, len(opts))
		copy(out, opts)
		return out
	}
	for _, field := range c.flat {
		if field.ID == fieldID {
			out := make([]model.Option, len(field.Options))
			copy(out, field.Options)
			return out
		}
	}
	return nil
}

// ApplyOptions installs a freshly resolved option list for the dependent
// field and clears its value when no longer present in the new list. It is
// the resolver's callback; external callers should not need it.
func (c *Controller) ApplyOptions(dependentID, controllingValue string, opts []model.Option) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.dynamicOptions[dependentID] = opts

	if current, ok := c.values.String(dependentID); ok && current != "" {
		valid := false
		for _, opt := range opts {
			if opt.Value == current {
				valid = true
				break
			}
		}
		if !valid {
			delete(c.values, dependentID)
		}
	}
	c.recomputeLocked()
}

// Submit runs full validation over the visible fields and, when clean, sends
// the values through the Submitter. On validation failure every field is
// marked touched, a *ValidationError is returned and nothing is sent. On
// transport failure the values and the saved draft survive for retry.
func (c *Controller) Submit(ctx context.Context) (Receipt, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Receipt{}, ErrClosed
	}
	if c.state != StateReady {
		state := c.state
		c.mu.Unlock()
		return Receipt{}, errorNotReady(state)
	}
	if c.cfg.Submitter == nil {
		c.mu.Unlock()
		return Receipt{}, errors.New("session: no submitter configured")
	}

	c.state = StateValidating
	c.recomputeLocked()
	if len(c.errs) > 0 {
		for _, field := range c.flat {
			if !field.IsGroup() {
				c.touched[field.ID] = true
			}
		}
		errs := c.errs
		c.state = StateReady
		c.mu.Unlock()
		return Receipt{}, &ValidationError{Errors: errs}
	}

	c.state = StateSubmitting
	generation := c.generation
	formID := c.schema.FormID
	payload := c.values.Clone()
	c.mu.Unlock()

	receipt, err := c.cfg.Submitter.SubmitForm(ctx, payload)

	c.mu.Lock()
	if c.closed || c.generation != generation {
		// The session was torn down or re-seeded with a new schema while the
		// request was in flight; its outcome no longer applies.
		c.mu.Unlock()
		return Receipt{}, ErrClosed
	}
	if err != nil {
		c.state = StateReady
		c.mu.Unlock()
		c.logger.Warn("form submission failed", "form_id", formID, "error", err)
		return Receipt{}, errors.Join(ErrSubmission, err)
	}

	c.state = StateSubmitted
	if c.drafts != nil {
		c.drafts.Clear(c.draftKey)
	}
	// Re-baseline so the autosave backstop does not resurrect the draft the
	// successful submit just cleared.
	c.initial = c.values.Clone()
	c.lastSavedAt = time.Time{}
	display := c.cfg.SubmittedDisplay
	callback := c.cfg.OnSubmitSuccess
	c.mu.Unlock()

	c.logger.Info("form submitted", "form_id", formID, "submission_id", receipt.ID)
	if callback != nil {
		callback(receipt)
	}

	time.AfterFunc(display, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generation == generation && c.state == StateSubmitted {
			c.state = StateReady
		}
	})
	return receipt, nil
}

// SaveDraftNow persists the current values immediately, without validation.
// The returned time is the save timestamp; ok is false when no draft manager
// is configured or the save failed.
func (c *Controller) SaveDraftNow() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.drafts == nil {
		return time.Time{}, false
	}
	return c.saveDraftLocked()
}

func (c *Controller) saveDraftLocked() (time.Time, bool) {
	if c.drafts == nil {
		return time.Time{}, false
	}
	at, ok := c.drafts.Save(c.draftKey, c.values)
	if ok {
		c.lastSavedAt = at
	}
	return at, ok
}

// ClearDraft removes the persisted draft. The in-memory values stay.
func (c *Controller) ClearDraft() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.drafts != nil {
		c.drafts.Clear(c.draftKey)
	}
	c.lastSavedAt = time.Time{}
}

// ReplaceSchema tears the current session down and starts over with a new
// form: fresh values seeded from the new form's draft, fresh touched state,
// and a new generation so stale async results from the old form are fenced
// out.
func (c *Controller) ReplaceSchema(schema model.FormSchema, draftKey string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()
	return c.installSchema(schema, draftKey, nil)
}

// LocalizedErrors resolves the current field errors to display strings using
// the session translator.
func (c *Controller) LocalizedErrors() map[string][]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string][]string, len(c.errs))
	for _, fe := range c.errs {
		out[fe.FieldID] = append(out[fe.FieldID], fe.Localize(c.translator))
	}
	return out
}

// Translator returns the session's message translator.
func (c *Controller) Translator() i18n.Translator { return c.translator }

// Close stops the autosave timer, performs a final dirty save and releases
// the resolver. Idempotent.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.generation++

	if c.cfg.Autosave && c.drafts != nil && !c.values.Equal(c.initial) {
		c.saveDraftLocked()
	}
	resolver := c.resolver
	c.resolver = nil
	stop := c.autosaveStop
	c.autosaveStop = nil
	c.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if resolver != nil {
		resolver.Close()
	}
	return nil
}

// autosaveLoop periodically re-saves a dirty session. The immediate save on
// each change already covers the common path; the ticker is a backstop for
// values mutated through ApplyOptions and external draft stores that missed
// a write.
func (c *Controller) autosaveLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.AutosaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if !c.closed && !c.values.Equal(c.initial) {
				c.saveDraftLocked()
			}
			c.mu.Unlock()
		}
	}
}

func errorNotReady(state State) error {
	return errors.Join(ErrNotReady, errors.New("session state "+string(state)))
}
