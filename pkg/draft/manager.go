package draft

import (
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/devotel/go-insurance-forms/pkg/model"
)

// Manager serializes form values in and out of a Store. Load never fails:
// missing keys and corrupt payloads both yield empty values. Save failures
// are logged and leave the previously persisted state untouched.
type Manager struct {
	store  Store
	logger *slog.Logger

	// Concurrent saves for the same key serialize; the periodic autosave
	// timer and the immediate on-change save may otherwise interleave.
	mu sync.Mutex
}

// ManagerOption customises a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger overrides the slog logger.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager wraps a Store.
func NewManager(store Store, opts ...ManagerOption) *Manager {
	m := &Manager{store: store, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Load reads and deserializes the draft under key. Missing keys and broken
// payloads return empty values, never an error.
func (m *Manager) Load(key string) model.FormValues {
	m.mu.Lock()
	defer m.mu.Unlock()

	payload, ok, err := m.store.Get(key)
	if err != nil {
		m.logger.Warn("draft load failed", "key", key, "error", err)
		return model.FormValues{}
	}
	if !ok || payload == "" {
		return model.FormValues{}
	}

	var values model.FormValues
	if err := json.Unmarshal([]byte(payload), &values); err != nil {
		m.logger.Warn("draft payload corrupt, starting empty", "key", key, "error", err)
		return model.FormValues{}
	}
	if values == nil {
		values = model.FormValues{}
	}
	return values
}

// Save serializes and writes the draft, returning the save timestamp. A false
// result means the write failed (logged) and the prior draft is intact.
func (m *Manager) Save(key string, values model.FormValues) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	payload, err := json.Marshal(values)
	if err != nil {
		m.logger.Warn("draft serialize failed", "key", key, "error", err)
		return time.Time{}, false
	}
	if err := m.store.Set(key, string(payload)); err != nil {
		m.logger.Warn("draft save failed", "key", key, "error", err)
		return time.Time{}, false
	}
	return time.Now(), true
}

// Clear removes the draft under key. Idempotent; clearing an absent key is
// not an error.
func (m *Manager) Clear(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Remove(key); err != nil {
		m.logger.Warn("draft clear failed", "key", key, "error", err)
	}
}
