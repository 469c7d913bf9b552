// Package prefs persists user preferences (selected geocoder, last cache purge) in a YAML file.
package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	filePerm = 0o600
	dirPerm  = 0o755
)

// Store is a write-through key/value preference file.
type Store struct {
	path   string
	mu     sync.RWMutex
	values map[string]string
}

// Open loads the preference file at path. A missing file yields an empty store.
func Open(path string) (*Store, error) {
	store := &Store{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}

	if err = yaml.Unmarshal(data, &store.values); err != nil {
		return nil, fmt.Errorf("failed to parse preferences %s: %w", path, err)
	}
	if store.values == nil {
		store.values = make(map[string]string)
	}

	return store, nil
}

// Get returns the stored value or an empty string.
func (s *Store) Get(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.values[key]
}

// Set stores the value and rewrites the file.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value

	data, err := yaml.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}
	if err = os.WriteFile(s.path, data, filePerm); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}

	return nil
}
