package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// fileFormat is the on-disk layout of the mappings file.
type fileFormat struct {
	Mappings         map[string]string  `json:"mappings"`
	OriginalMappings map[string]*string `json:"original_mappings"`
}

// Store holds chord -> application bindings and mirrors them to a JSON file.
type Store struct {
	path string

	mu        sync.Mutex
	mappings  map[string]string
	originals map[string]*string
}

// NewStore creates an empty store backed by the file at path. Nothing is
// read until Load is called.
func NewStore(path string) *Store {
	return &Store{
		path:      path,
		mappings:  make(map[string]string),
		originals: make(map[string]*string),
	}
}

// Path returns the mappings file location.
func (s *Store) Path() string {
	return s.path
}

// Add binds chord to target. The target must exist on disk; it is not
// checked again at launch time. Relative targets are stored as absolute
// paths resolved against the working directory.
func (s *Store) Add(chord, target string) error {
	chord = strings.TrimSpace(chord)

	if target == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidTarget)
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidTarget, target, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTarget, target)
	}
	target = abs

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.originals[chord]; !ok {
		s.originals[chord] = nil
	}
	s.mappings[chord] = target
	return nil
}

// Remove deletes chord from both the bindings and the original mappings.
func (s *Store) Remove(chord string) error {
	chord = strings.TrimSpace(chord)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.mappings[chord]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, chord)
	}
	delete(s.mappings, chord)
	delete(s.originals, chord)
	return nil
}

// Snapshot returns a copy of the current bindings.
func (s *Store) Snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.mappings)
}

// Originals returns a copy of the original mappings recorded per chord.
func (s *Store) Originals() map[string]*string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.originals)
}

// Len returns the number of bindings.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.mappings)
}

// Clear drops every binding.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.mappings)
	clear(s.originals)
}

// Persist writes the bindings to disk. In-memory state is untouched on failure.
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(fileFormat{
		Mappings:         s.mappings,
		OriginalMappings: s.originals,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %w", ErrIO, err)
	}

	if err := atomicWrite(s.path, data); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

// Load replaces the in-memory bindings with the file contents. A missing
// file is not an error. On failure the current state is kept.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: read: %w", ErrIO, err)
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("%w: %w", ErrParse, err)
	}

	mappings := f.Mappings
	if mappings == nil {
		mappings = make(map[string]string)
	}

	// original_mappings always has exactly the keys of mappings.
	originals := make(map[string]*string, len(mappings))
	for chord := range mappings {
		originals[chord] = f.OriginalMappings[chord]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings = mappings
	s.originals = originals
	return nil
}

// atomicWrite writes data using temp-file + rename in the target directory.
func atomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".key_mappings.json.tmp.*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
		}
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmpFile.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err = tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	err = tmpFile.Close()
	tmpFile = nil
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}

	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
