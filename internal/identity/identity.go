// Package identity persists the local participant's identity (id, name,
// role, team) across restarts, the replica equivalent of the browser's
// local storage key. On startup a saved identity is re-published to the
// room so reloads do not mint a new participant.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/agilevibe/poker/internal/models"
)

const fileName = "identity.json"

// File stores the identity as JSON in a directory.
type File struct {
	path string
}

// NewFile creates a store rooted at dir. An empty dir falls back to the
// user config directory.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %w", err)
		}
		dir = filepath.Join(base, "agilevibe")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create identity dir: %w", err)
	}
	return &File{path: filepath.Join(dir, fileName)}, nil
}

// saved is the on-disk shape. The transient fields (vote, timestamps)
// are deliberately not persisted.
type saved struct {
	ID   string      `json:"id"`
	Name string      `json:"name"`
	Role models.Role `json:"role"`
	Team string      `json:"team,omitempty"`
}

// Save writes the durable parts of p.
func (f *File) Save(p models.Participant) error {
	data, err := json.Marshal(saved{ID: p.ID, Name: p.Name, Role: p.Role, Team: p.Team})
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("write identity: %w", err)
	}
	return nil
}

// Load returns the saved identity, or ok=false when none exists or the
// file is unreadable garbage (treated as absent, not fatal).
func (f *File) Load() (models.Participant, bool) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return models.Participant{}, false
	}
	var s saved
	if err := json.Unmarshal(data, &s); err != nil || s.ID == "" {
		return models.Participant{}, false
	}
	return models.Participant{ID: s.ID, Name: s.Name, Role: s.Role, Team: s.Team}, true
}

// Clear removes the saved identity. Missing files are fine.
func (f *File) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove identity: %w", err)
	}
	return nil
}
