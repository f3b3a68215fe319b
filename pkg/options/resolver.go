package options

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/devotel/go-insurance-forms/pkg/model"
)

const (
	// DefaultDebounce is the settle window before a changed controlling value
	// triggers a fetch.
	DefaultDebounce = 300 * time.Millisecond

	// DefaultFetchTimeout bounds a single options fetch.
	DefaultFetchTimeout = 5 * time.Second
)

// Fetcher retrieves the dependent field's options for a controlling value.
// Implementations must not panic; errors are absorbed by the resolver.
type Fetcher interface {
	FetchOptions(ctx context.Context, controllingValue string) ([]model.Option, error)
}

// FetcherFunc adapts a function into a Fetcher.
type FetcherFunc func(ctx context.Context, controllingValue string) ([]model.Option, error)

// FetchOptions delegates to the underlying function.
func (fn FetcherFunc) FetchOptions(ctx context.Context, controllingValue string) ([]model.Option, error) {
	return fn(ctx, controllingValue)
}

// Applier receives a successfully fetched option list. The session replaces
// the dependent field's options and clears its value when no longer present.
type Applier interface {
	ApplyOptions(dependentID, controllingValue string, opts []model.Option)
}

// ApplierFunc adapts a function into an Applier.
type ApplierFunc func(dependentID, controllingValue string, opts []model.Option)

// ApplyOptions delegates to the underlying function.
func (fn ApplierFunc) ApplyOptions(dependentID, controllingValue string, opts []model.Option) {
	fn(dependentID, controllingValue, opts)
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithDebounce overrides the settle window.
func WithDebounce(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.debounce = d
		}
	}
}

// WithFetchTimeout overrides the per-fetch timeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.fetchTimeout = d
		}
	}
}

// WithLogger overrides the slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Resolver observes the controlling field and keeps the dependent field's
// options current. Concurrency contract: a newer observed value cancels the
// pending timer for an older one, and each fetch carries a monotonically
// increasing sequence number so only the latest issued request's result is
// applied. Dedupe compares against the last successfully resolved value, so a
// value that round-trips back before any fetch succeeds is still skipped.
type Resolver struct {
	pair         Pair
	fetcher      Fetcher
	applier      Applier
	debounce     time.Duration
	fetchTimeout time.Duration
	logger       *slog.Logger

	mu           sync.Mutex
	timer        *time.Timer
	lastResolved string
	sequence     uint64
	closed       bool
}

// New constructs a Resolver for a detected pair.
func New(pair Pair, fetcher Fetcher, applier Applier, opts ...Option) *Resolver {
	r := &Resolver{
		pair:         pair,
		fetcher:      fetcher,
		applier:      applier,
		debounce:     DefaultDebounce,
		fetchTimeout: DefaultFetchTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Pair returns the tracked field pair.
func (r *Resolver) Pair() Pair { return r.pair }

// Observe notifies the resolver of the controlling field's current value.
// Empty values cancel any pending fetch and resolve nothing.
func (r *Resolver) Observe(value string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	if value == "" || value == r.lastResolved {
		return
	}

	r.timer = time.AfterFunc(r.debounce, func() {
		r.fire(value)
	})
}

func (r *Resolver) fire(value string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.sequence++
	seq := r.sequence
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), r.fetchTimeout)
	defer cancel()

	opts, err := r.fetcher.FetchOptions(ctx, value)
	if err != nil {
		// Existing options and the dependent value stay untouched; the only
		// surfaced signal is an unchanged list.
		r.logger.Warn("dependent options fetch failed",
			"controlling", r.pair.ControllingID, "value", value, "error", err)
		return
	}

	r.mu.Lock()
	stale := seq != r.sequence || r.closed
	if !stale {
		r.lastResolved = value
	}
	r.mu.Unlock()
	if stale {
		r.logger.Debug("discarding stale dependent options",
			"controlling", r.pair.ControllingID, "value", value)
		return
	}

	r.applier.ApplyOptions(r.pair.DependentID, value, opts)
}

// LastResolved returns the controlling value of the last applied fetch.
func (r *Resolver) LastResolved() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastResolved
}

// Close cancels any pending timer and discards in-flight results. Idempotent.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
