// Package missset tracks station codes for which schedule lookups have
// previously failed, suppressing repeated retries for the remainder of
// the run. Persisted write-through: the on-disk copy is rewritten after
// every addition, per spec.md §5.
package missset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Set is a persistent, additive-only collection of station codes.
type Set struct {
	path string

	mu      sync.RWMutex
	members map[string]struct{}
}

// New constructs a Set backed by the given file, loading any existing
// contents. A missing file starts the set empty.
func New(path string) (*Set, error) {
	s := &Set{path: path, members: make(map[string]struct{})}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("missset: read %s: %w", path, err)
	}
	var codes []string
	if err := json.Unmarshal(data, &codes); err != nil {
		// Treat a corrupt miss cache as empty rather than fatal: it is
		// a suppression optimisation, not a source of truth.
		return s, nil
	}
	for _, c := range codes {
		s.members[c] = struct{}{}
	}
	return s, nil
}

// Contains reports whether code has previously failed schedule lookup.
func (s *Set) Contains(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[code]
	return ok
}

// Add inserts code and rewrites the on-disk copy. A no-op (no write)
// if code is already present.
func (s *Set) Add(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[code]; ok {
		return nil
	}
	s.members[code] = struct{}{}
	return s.persistLocked()
}

func (s *Set) persistLocked() error {
	codes := make([]string, 0, len(s.members))
	for c := range s.members {
		codes = append(codes, c)
	}
	data, err := json.MarshalIndent(codes, "", "  ")
	if err != nil {
		return fmt.Errorf("missset: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".missset-*.tmp")
	if err != nil {
		return fmt.Errorf("missset: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("missset: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("missset: close temp: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("missset: rename: %w", err)
	}
	return nil
}

// Len returns the current number of suppressed station codes.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}
