// Package userconfig stores per-user preferences, currently the always-allow
// tool lists accumulated from "always" scope approvals. The file is yaml on
// disk and written atomically so a crashed write never corrupts it.
package userconfig

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/natefinch/atomic"
)

// Store holds user preferences keyed by user id.
type Store struct {
	mu   sync.Mutex
	path string
	data fileData
}

type fileData struct {
	Users map[string]*UserPreferences `yaml:"users,omitempty"`
}

type UserPreferences struct {
	// AlwaysAllowedTools lists tool patterns the user approved with scope
	// "always".
	AlwaysAllowedTools []string `yaml:"always_allowed_tools,omitempty"`
}

// Load reads the preferences file at path, creating an empty store when the
// file does not exist yet.
func Load(path string) (*Store, error) {
	s := &Store{
		path: path,
		data: fileData{Users: make(map[string]*UserPreferences)},
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading user preferences: %w", err)
	}
	if err := yaml.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("parsing user preferences: %w", err)
	}
	if s.data.Users == nil {
		s.data.Users = make(map[string]*UserPreferences)
	}
	return s, nil
}

// AlwaysAllowedTools returns the user's persisted always-allow patterns.
func (s *Store) AlwaysAllowedTools(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs, ok := s.data.Users[userID]
	if !ok {
		return nil
	}
	return slices.Clone(prefs.AlwaysAllowedTools)
}

// AddAlwaysAllowedTool records an "always" scope approval and persists it.
func (s *Store) AddAlwaysAllowedTool(userID, toolName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs, ok := s.data.Users[userID]
	if !ok {
		prefs = &UserPreferences{}
		s.data.Users[userID] = prefs
	}
	if slices.Contains(prefs.AlwaysAllowedTools, toolName) {
		return nil
	}
	prefs.AlwaysAllowedTools = append(prefs.AlwaysAllowedTools, toolName)

	return s.save()
}

func (s *Store) save() error {
	if s.path == "" {
		return nil
	}

	data, err := yaml.Marshal(&s.data)
	if err != nil {
		return fmt.Errorf("marshaling user preferences: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating preferences directory: %w", err)
	}
	return atomic.WriteFile(s.path, bytes.NewReader(data))
}
