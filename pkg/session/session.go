// Package session orchestrates one logical form-filling session: it holds the
// current values, re-runs visibility and validation on every change, applies
// the autosave policy, keeps coupled option lists current, and drives
// submission through its state machine.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/devotel/go-insurance-forms/pkg/draft"
	"github.com/devotel/go-insurance-forms/pkg/i18n"
	"github.com/devotel/go-insurance-forms/pkg/model"
	"github.com/devotel/go-insurance-forms/pkg/options"
	"github.com/devotel/go-insurance-forms/pkg/validation"
)

// State is the controller's lifecycle position.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateReady         State = "ready"
	StateValidating    State = "validating"
	StateSubmitting    State = "submitting"
	StateSubmitted     State = "submitted"
)

const (
	// DefaultAutosaveInterval is the periodic dirty-draft save cadence.
	DefaultAutosaveInterval = 30 * time.Second

	// DefaultSubmittedDisplay is how long the Submitted state is shown
	// before reverting to Ready.
	DefaultSubmittedDisplay = 3 * time.Second
)

var (
	// ErrNotReady is returned for operations that need a live session.
	ErrNotReady = errors.New("session: not ready")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session: closed")

	// ErrSubmission marks a failed submission; the underlying transport
	// error is joined so callers can still inspect it.
	ErrSubmission = errors.New("session: submission failed")
)

// ValidationError reports a submit attempt blocked by field errors.
type ValidationError struct {
	Errors validation.Errors
}

// Error summarises the failure.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("session: validation failed for %d field(s)", len(e.Errors.ByField()))
}

// Receipt is the submission endpoint's acknowledgement.
type Receipt struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

// Submitter sends the finished application to the external endpoint.
type Submitter interface {
	SubmitForm(ctx context.Context, values model.FormValues) (Receipt, error)
}

// Config wires a Controller's collaborators. Everything ambient is explicit
// here; the controller performs no global lookups.
type Config struct {
	// Schema is the form to run. Required.
	Schema model.FormSchema

	// Submitter handles the final POST. Required for Submit.
	Submitter Submitter

	// OptionsFetcher backs the dependent-options resolver. Optional; without
	// it coupled fields keep their static options.
	OptionsFetcher options.Fetcher

	// Drafts persists in-progress values. Optional; without it autosave and
	// draft restore are disabled.
	Drafts *draft.Manager

	// DraftKey overrides the derived "draft:<formId>" key.
	DraftKey string

	// InitialValues seeds the session, taking precedence over a saved draft
	// when non-empty.
	InitialValues model.FormValues

	// Autosave enables the §4.5 policy: immediate save on dirty change, a
	// periodic timer, and a final save on Close.
	Autosave bool

	// AutosaveInterval overrides the periodic save cadence.
	AutosaveInterval time.Duration

	// Debounce overrides the dependent-options settle window.
	Debounce time.Duration

	// SubmittedDisplay overrides how long Submitted is shown.
	SubmittedDisplay time.Duration

	// Translator localizes validation messages. Defaults to English.
	Translator i18n.Translator

	// Logger receives ambient diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// ValidationOptions tune rule derivation (e.g. validation.WithDefaultMin).
	ValidationOptions []validation.Option

	// OnSubmitSuccess is invoked with the endpoint's receipt.
	OnSubmitSuccess func(Receipt)
}

// Controller is the form session state machine. All methods are safe for use
// from the event loop plus the controller's own timers.
type Controller struct {
	mu sync.Mutex

	cfg        Config
	logger     *slog.Logger
	translator i18n.Translator

	state   State
	schema  model.FormSchema
	flat    []model.FieldSchema
	rules   validation.RuleSet
	values  model.FormValues
	initial model.FormValues
	touched map[string]bool
	errs    validation.Errors

	dynamicOptions map[string][]model.Option
	resolver       *options.Resolver
	pair           options.Pair
	hasPair        bool

	drafts      *draft.Manager
	draftKey    string
	lastSavedAt time.Time

	autosaveStop chan struct{}

	// generation fences async results (submission replies, the Submitted
	// display timer) against schema replacement and Close.
	generation uint64
	closed     bool
}

// New builds a Controller and moves it to Ready. A malformed schema is fatal:
// no session is created and no form should be rendered.
func New(cfg Config) (*Controller, error) {
	c := &Controller{
		cfg:            cfg,
		logger:         cfg.Logger,
		translator:     cfg.Translator,
		state:          StateUninitialized,
		touched:        make(map[string]bool),
		dynamicOptions: make(map[string][]model.Option),
		drafts:         cfg.Drafts,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.translator == nil {
		c.translator = i18n.NewDictionary("en")
	}
	if c.cfg.AutosaveInterval <= 0 {
		c.cfg.AutosaveInterval = DefaultAutosaveInterval
	}
	if c.cfg.SubmittedDisplay <= 0 {
		c.cfg.SubmittedDisplay = DefaultSubmittedDisplay
	}

	if err := c.installSchema(cfg.Schema, cfg.DraftKey, cfg.InitialValues); err != nil {
		return nil, err
	}

	if c.cfg.Autosave && c.drafts != nil {
		c.autosaveStop = make(chan struct{})
		go c.autosaveLoop(c.autosaveStop)
	}
	return c, nil
}

// installSchema wires a schema into the session. Caller must not hold mu.
func (c *Controller) installSchema(schema model.FormSchema, draftKey string, seed model.FormValues) error {
	if err := model.NormalizeFormSchema(&schema); err != nil {
		return err
	}
	rules, err := validation.Build(schema, c.cfg.ValidationOptions...)
	if err != nil {
		return err
	}

	key := strings.TrimSpace(draftKey)
	if key == "" {
		key = "draft:" + schema.FormID
	}

	values := seed.Clone()
	if len(values) == 0 && c.drafts != nil {
		values = c.drafts.Load(key)
	}
	if values == nil {
		values = model.FormValues{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	if c.resolver != nil {
		c.resolver.Close()
		c.resolver = nil
	}

	c.schema = schema
	c.flat = model.Flatten(schema.Fields)
	c.rules = rules
	c.values = values
	c.initial = values.Clone()
	c.touched = make(map[string]bool)
	c.dynamicOptions = make(map[string][]model.Option)
	c.draftKey = key
	c.lastSavedAt = time.Time{}
	c.state = StateReady

	c.pair, c.hasPair = options.Detect(schema)
	if c.hasPair && c.cfg.OptionsFetcher != nil {
		resolverOpts := []options.Option{options.WithLogger(c.logger)}
		if c.cfg.Debounce > 0 {
			resolverOpts = append(resolverOpts, options.WithDebounce(c.cfg.Debounce))
		}
		c.resolver = options.New(c.pair, c.cfg.OptionsFetcher, c, resolverOpts...)
	}

	c.recomputeLocked()
	return nil
}
