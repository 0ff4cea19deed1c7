// Package storage keeps the history of emitted results on disk.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"autologin/internal/models"
)

// DefaultMaxEntries bounds the history file.
const DefaultMaxEntries = 500

// ResultStorage persists emitted results as a JSON array.
type ResultStorage struct {
	mu         sync.RWMutex
	path       string
	maxEntries int
	history    []models.HistoryEntry
}

// NewResultStorage opens path, loading existing history if present.
// maxEntries <= 0 selects DefaultMaxEntries.
func NewResultStorage(path string, maxEntries int) (*ResultStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data directory: %w", err)
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	s := &ResultStorage{path: path, maxEntries: maxEntries}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Append records an entry, drops the oldest beyond the cap and persists.
func (s *ResultStorage) Append(entry models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, entry)
	if over := len(s.history) - s.maxEntries; over > 0 {
		s.history = append([]models.HistoryEntry(nil), s.history[over:]...)
	}
	return s.persist()
}

// Latest returns the most recent entry if one exists.
func (s *ResultStorage) Latest() (models.HistoryEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.history) == 0 {
		return models.HistoryEntry{}, false
	}
	return s.history[len(s.history)-1], true
}

// History returns a copy of every entry, oldest first.
func (s *ResultStorage) History() []models.HistoryEntry {
	return s.HistoryN(0)
}

// HistoryN returns at most n of the newest entries, oldest first.
// n <= 0 returns everything.
func (s *ResultStorage) HistoryN(n int) []models.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.history
	if n > 0 && len(src) > n {
		src = src[len(src)-n:]
	}
	copied := make([]models.HistoryEntry, len(src))
	copy(copied, src)
	return copied
}

func (s *ResultStorage) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.history = []models.HistoryEntry{}
			return nil
		}
		return fmt.Errorf("read history: %w", err)
	}
	if len(data) == 0 {
		s.history = []models.HistoryEntry{}
		return nil
	}

	var entries []models.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse history: %w", err)
	}
	if over := len(entries) - s.maxEntries; over > 0 {
		entries = entries[over:]
	}
	s.history = entries
	return nil
}

func (s *ResultStorage) persist() error {
	bytes, err := json.MarshalIndent(s.history, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, time.Now().UnixNano())
	if err := os.WriteFile(tmpPath, bytes, 0o644); err != nil {
		return fmt.Errorf("write temp history: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}
