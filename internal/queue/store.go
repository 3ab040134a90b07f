package queue

import (
	"crypto/sha256"

	"github.com/yacobolo/windsync/internal/engine"
)

// Store is the content store: module id to last seen source text, kept in
// insertion order so generation input is reproducible.
//
// Clear drops the pending entries but keeps a fingerprint of the last text
// recorded per id, so a host re-emitting unchanged content after a flush
// does not schedule another one.
type Store struct {
	index   map[string]int
	entries []engine.Entry
	last    map[string][sha256.Size]byte
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		index: make(map[string]int),
		last:  make(map[string][sha256.Size]byte),
	}
}

// Set records text for id. It reports false when text equals the last
// text recorded for id.
func (s *Store) Set(id, text string) bool {
	sum := sha256.Sum256([]byte(text))
	if prev, ok := s.last[id]; ok && prev == sum {
		return false
	}
	s.last[id] = sum

	if i, ok := s.index[id]; ok {
		s.entries[i].Text = text
		return true
	}
	s.index[id] = len(s.entries)
	s.entries = append(s.entries, engine.Entry{ID: id, Text: text})
	return true
}

// Len is the number of pending entries.
func (s *Store) Len() int { return len(s.entries) }

// Entries returns a copy of the pending entries in insertion order.
func (s *Store) Entries() []engine.Entry {
	out := make([]engine.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Clear drops pending entries.
func (s *Store) Clear() {
	s.entries = s.entries[:0]
	clear(s.index)
}

// Forget drops everything known about id, including its fingerprint.
func (s *Store) Forget(id string) {
	delete(s.last, id)
	i, ok := s.index[id]
	if !ok {
		return
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.entries); j++ {
		s.index[s.entries[j].ID] = j
	}
}
