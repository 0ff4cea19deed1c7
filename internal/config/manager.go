package config

import (
	"sync"
	"time"
)

const defaultDebounce = 500 * time.Millisecond

// Manager serializes configuration saves for one file. Saves that arrive
// within the debounce window of the previous save are dropped.
type Manager struct {
	path     string
	debounce time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastSave time.Time
}

// NewManager creates a manager writing to path.
func NewManager(path string) *Manager {
	return &Manager{path: path, debounce: defaultDebounce, now: time.Now}
}

// Path returns the managed file path.
func (m *Manager) Path() string { return m.path }

// Save persists cfg unless a save happened within the debounce window.
// It reports whether the file was written.
func (m *Manager) Save(cfg Config) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if !m.lastSave.IsZero() && now.Sub(m.lastSave) < m.debounce {
		return false, nil
	}
	m.lastSave = now
	if err := Save(m.path, cfg); err != nil {
		return false, err
	}
	return true, nil
}

// SaveNow persists cfg regardless of the debounce window.
func (m *Manager) SaveNow(cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastSave = m.now()
	return Save(m.path, cfg)
}
