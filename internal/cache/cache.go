// Package cache stores raw provider responses on disk, one JSON file per coordinate.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/UnknownOlympus/geoplaces/internal/models"
)

const (
	fileSuffix = ".json"
	dirPerm    = 0o755
	filePerm   = 0o644
)

// Status describes the outcome of a cache lookup.
type Status string

// Lookup outcomes.
const (
	StatusHit     Status = "hit"
	StatusMiss    Status = "miss"
	StatusCorrupt Status = "corrupt"
)

// ErrEmptyNamespace is returned when a store is created without a provider namespace.
var ErrEmptyNamespace = errors.New("cache namespace must not be empty")

// Store is a provider-specific cache directory. It is safe for concurrent use by
// goroutines holding the per-key lock returned by Lock.
type Store struct {
	dir string
	log *slog.Logger

	mu    sync.Mutex
	locks map[string]*keyLock
}

// keyLock is dropped from Store.locks once refs falls to zero.
type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewStore creates (if needed) the <root>/<namespace> directory and returns a Store for it.
func NewStore(root, namespace string, log *slog.Logger) (*Store, error) {
	if namespace == "" {
		return nil, ErrEmptyNamespace
	}

	dir := filepath.Join(root, namespace)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}

	return &Store{dir: dir, log: log, locks: make(map[string]*keyLock)}, nil
}

// Dir returns the directory holding the cache files.
func (s *Store) Dir() string {
	return s.dir
}

// Key returns the stable hash of the coordinate's normalized "<lat>-<lon>" form.
func Key(c models.Coordinate) string {
	return Hash(c.Normalized())
}

// Hash returns the hex-encoded SHA-256 digest of value.
func Hash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// Path returns the cache file path for the coordinate.
func (s *Store) Path(c models.Coordinate) string {
	return filepath.Join(s.dir, Key(c)+fileSuffix)
}

// Lock acquires the lock guarding the coordinate's cache file and returns the function
// that releases it.
func (s *Store) Lock(c models.Coordinate) func() {
	key := Key(c)

	s.mu.Lock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &keyLock{}
		s.locks[key] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

// Get returns the cached response for the coordinate. A file that exists but does not
// hold valid JSON is reported as StatusCorrupt and never returned.
func (s *Store) Get(c models.Coordinate) ([]byte, Status) {
	path := s.Path(c)

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("Failed to read cache entry, treating as miss", "path", path, "error", err)
		}
		return nil, StatusMiss
	}

	if !json.Valid(data) {
		s.log.Debug("Cache entry is not valid JSON", "path", path)
		return nil, StatusCorrupt
	}

	return data, StatusHit
}

// Put writes the raw response for the coordinate, replacing any previous entry.
func (s *Store) Put(c models.Coordinate, raw []byte) error {
	path := s.Path(c)

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err = tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close cache entry: %w", err)
	}
	if err = os.Chmod(tmpName, filePerm); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to set cache entry permissions: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move cache entry into place: %w", err)
	}

	return nil
}
