package fragment

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryStore is an in-process Store used by tests and single-node setups.
// Expiry is lazy: lapsed entries are dropped when touched.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]map[int]memEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]map[int]memEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Put(_ context.Context, connID string, index int, payload []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn := s.entries[connID]
	if conn == nil {
		conn = make(map[int]memEntry)
		s.entries[connID] = conn
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	conn[index] = memEntry{payload: cp, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, connID string, index int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn := s.entries[connID]
	if conn == nil {
		return nil, ErrNotFound
	}
	e, ok := conn[index]
	if !ok {
		return nil, ErrNotFound
	}
	if s.now().After(e.expiresAt) {
		delete(conn, index)
		return nil, ErrNotFound
	}
	return e.payload, nil
}

func (s *MemoryStore) List(_ context.Context, connID string) ([]Fragment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn := s.entries[connID]
	var out []Fragment
	for idx, e := range conn {
		if s.now().After(e.expiresAt) {
			delete(conn, idx)
			continue
		}
		if idx < 1 {
			continue
		}
		out = append(out, Fragment{ConnectionID: connID, Index: idx, Payload: e.payload})
	}
	return out, nil
}
