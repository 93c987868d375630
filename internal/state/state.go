package state

import (
	"encoding/json"
	"fmt"
	"os"
)

// State tracks which meetings have already been briefed so unattended runs do
// not notify twice. It is persisted as a flat JSON file.
type State struct {
	Briefed []string `json:"briefed"`

	path string
	seen map[string]struct{}
}

// Load reads the state file at path. A missing file is not an error; it just
// means a fresh start.
func Load(path string) (*State, error) {
	s := &State{path: path, seen: make(map[string]struct{})}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", path, err)
	}
	for _, id := range s.Briefed {
		s.seen[id] = struct{}{}
	}
	return s, nil
}

// Contains reports whether a meeting id has already been briefed.
func (s *State) Contains(id string) bool {
	_, ok := s.seen[id]
	return ok
}

// Add records a meeting id as briefed.
func (s *State) Add(id string) {
	if s.Contains(id) {
		return
	}
	s.Briefed = append(s.Briefed, id)
	s.seen[id] = struct{}{}
}

// Save writes the state back to its file.
func (s *State) Save() error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	return os.WriteFile(s.path, data, 0644)
}
