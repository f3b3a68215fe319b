package options

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/devotel/go-insurance-forms/pkg/model"
)

type recordingApplier struct {
	mu      sync.Mutex
	applied []string
	opts    []model.Option
}

func (a *recordingApplier) ApplyOptions(dependentID, controllingValue string, opts []model.Option) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.applied = append(a.applied, controllingValue)
	a.opts = opts
}

func (a *recordingApplier) values() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.applied...)
}

type countingFetcher struct {
	mu      sync.Mutex
	calls   []string
	results map[string][]model.Option
	err     error
	delay   time.Duration
}

func (f *countingFetcher) FetchOptions(_ context.Context, value string) ([]model.Option, error) {
	f.mu.Lock()
	f.calls = append(f.calls, value)
	delay, err, result := f.delay, f.err, f.results[value]
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (f *countingFetcher) set(err error, results map[string][]model.Option) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
	f.results = results
}

func (f *countingFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var testPair = Pair{ControllingID: "country", DependentID: "state"}

func TestDebounceCoalescesRapidChanges(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{results: map[string][]model.Option{
		"CA": {{Value: "ON", Label: "Ontario"}},
	}}
	applier := &recordingApplier{}
	r := New(testPair, fetcher, applier, WithDebounce(30*time.Millisecond))
	defer r.Close()

	// Two changes inside the window: only the final value is fetched.
	r.Observe("US")
	r.Observe("CA")

	time.Sleep(150 * time.Millisecond)

	if got := fetcher.callCount(); got != 1 {
		t.Fatalf("fetch count = %d, want 1", got)
	}
	if got := applier.values(); len(got) != 1 || got[0] != "CA" {
		t.Fatalf("applied = %v, want [CA]", got)
	}
}

func TestObserveSameResolvedValueSkipsFetch(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{results: map[string][]model.Option{"US": {{Value: "CA", Label: "California"}}}}
	applier := &recordingApplier{}
	r := New(testPair, fetcher, applier, WithDebounce(10*time.Millisecond))
	defer r.Close()

	r.Observe("US")
	time.Sleep(80 * time.Millisecond)
	r.Observe("US")
	time.Sleep(80 * time.Millisecond)

	if got := fetcher.callCount(); got != 1 {
		t.Fatalf("fetch count = %d, want 1", got)
	}
	if r.LastResolved() != "US" {
		t.Fatalf("LastResolved = %q", r.LastResolved())
	}
}

func TestEmptyValueCancelsPendingFetch(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{}
	applier := &recordingApplier{}
	r := New(testPair, fetcher, applier, WithDebounce(50*time.Millisecond))
	defer r.Close()

	r.Observe("US")
	r.Observe("")
	time.Sleep(120 * time.Millisecond)

	if got := fetcher.callCount(); got != 0 {
		t.Fatalf("fetch count = %d, want 0", got)
	}
}

func TestFetchFailureLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{err: errors.New("boom")}
	applier := &recordingApplier{}
	r := New(testPair, fetcher, applier, WithDebounce(10*time.Millisecond))
	defer r.Close()

	r.Observe("US")
	time.Sleep(80 * time.Millisecond)

	if got := applier.values(); len(got) != 0 {
		t.Fatalf("failed fetch must not apply, got %v", got)
	}
	if r.LastResolved() != "" {
		t.Fatalf("LastResolved = %q, want empty", r.LastResolved())
	}

	// The value was never resolved, so observing it again retries.
	fetcher.set(nil, map[string][]model.Option{"US": {{Value: "CA", Label: "California"}}})
	r.Observe("US")
	time.Sleep(80 * time.Millisecond)
	if got := applier.values(); len(got) != 1 {
		t.Fatalf("retry after failure should apply, got %v", got)
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{
		delay: 60 * time.Millisecond,
		results: map[string][]model.Option{
			"US": {{Value: "CA", Label: "California"}},
			"CA": {{Value: "ON", Label: "Ontario"}},
		},
	}
	applier := &recordingApplier{}
	r := New(testPair, fetcher, applier, WithDebounce(5*time.Millisecond))
	defer r.Close()

	r.Observe("US")
	time.Sleep(20 * time.Millisecond) // US fetch now in flight
	r.Observe("CA")
	time.Sleep(250 * time.Millisecond)

	got := applier.values()
	if len(got) == 0 || got[len(got)-1] != "CA" {
		t.Fatalf("latest result must win, got %v", got)
	}
	for _, value := range got {
		if value == "US" {
			t.Fatalf("superseded response applied: %v", got)
		}
	}
}

func TestCloseCancelsPendingAndInFlight(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{delay: 40 * time.Millisecond}
	applier := &recordingApplier{}
	r := New(testPair, fetcher, applier, WithDebounce(5*time.Millisecond))

	r.Observe("US")
	time.Sleep(15 * time.Millisecond) // fetch in flight
	r.Close()
	time.Sleep(100 * time.Millisecond)

	if got := applier.values(); len(got) != 0 {
		t.Fatalf("closed resolver must discard results, got %v", got)
	}
}
