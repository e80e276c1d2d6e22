// Package registry builds and serves identifier-to-name registries.
package registry

import (
	"fmt"
	"sort"
	"sync/atomic"

	"firestige.xyz/canframe/internal/core"
)

// Map is an immutable identifier registry. Build it once, then only read it.
type Map map[uint32]string

// Lookup implements core.Registry.
func (m Map) Lookup(id uint32) (string, bool) {
	name, ok := m[id]
	return name, ok
}

// Entry is one registry row.
type Entry struct {
	ID   uint32
	Name string
}

// Entries returns the rows sorted by identifier.
func (m Map) Entries() []Entry {
	out := make([]Entry, 0, len(m))
	for id, name := range m {
		out = append(out, Entry{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FromEntries builds a Map, rejecting duplicate identifiers and empty names.
func FromEntries(entries []Entry) (Map, error) {
	m := make(Map, len(entries))
	for i, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("%w: entry %d (0x%X) has an empty name", core.ErrRegistryInvalid, i, e.ID)
		}
		if prev, exists := m[e.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate identifier 0x%X (%s, %s)", core.ErrRegistryInvalid, e.ID, prev, e.Name)
		}
		m[e.ID] = e.Name
	}
	return m, nil
}

// Store holds the current registry snapshot. Readers take a snapshot per
// call; writers replace the whole snapshot.
type Store struct {
	current atomic.Pointer[Map]
}

// NewStore creates a store serving m.
func NewStore(m Map) *Store {
	s := &Store{}
	s.Replace(m)
	return s
}

// Snapshot returns the registry in effect right now.
func (s *Store) Snapshot() core.Registry {
	return *s.current.Load()
}

// Replace swaps in a new snapshot. The previous map is left untouched.
func (s *Store) Replace(m Map) {
	if m == nil {
		m = Map{}
	}
	s.current.Store(&m)
}

// Len returns the number of entries in the current snapshot.
func (s *Store) Len() int {
	return len(*s.current.Load())
}
