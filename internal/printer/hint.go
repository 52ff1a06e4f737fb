package printer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// PersistedConnectionHint remembers the last printer across restarts.
type PersistedConnectionHint struct {
	DeviceName    string    `json:"deviceName"`
	DeviceAddress string    `json:"deviceAddress,omitempty"`
	WasConnected  bool      `json:"wasConnected"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// HintStore keeps the hint in a small JSON file.
type HintStore struct {
	path string
	mu   sync.Mutex
}

// NewHintStore stores hints at path.
func NewHintStore(path string) *HintStore {
	return &HintStore{path: path}
}

// Load reads the hint. A missing file yields the zero hint.
func (s *HintStore) Load() (PersistedConnectionHint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var hint PersistedConnectionHint
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return hint, nil
		}
		return hint, fmt.Errorf("read hint: %w", err)
	}
	if err := json.Unmarshal(data, &hint); err != nil {
		return PersistedConnectionHint{}, fmt.Errorf("parse hint: %w", err)
	}
	return hint, nil
}

// Save replaces the hint atomically.
func (s *HintStore) Save(hint PersistedConnectionHint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if hint.UpdatedAt.IsZero() {
		hint.UpdatedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(hint, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
