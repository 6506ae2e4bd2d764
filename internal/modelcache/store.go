// Package modelcache supplies model weights on demand: persistent cache
// lookup first, streamed network fetch with progress otherwise, best-effort
// cache write-back. Cache I/O failures are logged and swallowed; they never
// reach the caller.
package modelcache

import "sync"

// Store persists raw weight bytes keyed by model id. Entries carry no
// version: once present they are treated as valid indefinitely.
// Implementations are best-effort; callers treat a Get error as a miss and a
// Put error as non-fatal.
type Store interface {
	// Get returns the cached bytes for id. The boolean is false on a miss.
	Get(id string) ([]byte, bool, error)
	// Put stores data under id, replacing any previous entry.
	Put(id string, data []byte) error
	// Delete removes the entry for id; deleting a missing entry is a no-op.
	Delete(id string) error
	// Keys lists the ids of all stored entries.
	Keys() ([]string, error)
	// Close releases store resources.
	Close() error
}

// MemStore is an in-memory Store used by tests and by cache-less runs.
type MemStore struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string][]byte)}
}

func (s *MemStore) Get(id string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.entries[id]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, true, nil
}

func (s *MemStore) Put(id string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	s.mu.Lock()
	s.entries[id] = cp
	s.mu.Unlock()
	return nil
}

func (s *MemStore) Delete(id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

func (s *MemStore) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *MemStore) Close() error { return nil }
