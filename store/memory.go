package store

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

type memEntry struct {
	meta Meta
	data []byte
}

// MemoryStore keeps records in process memory. Safe for concurrent use.
type MemoryStore struct {
	records

	mu      sync.RWMutex
	entries map[Kind]map[string]memEntry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{entries: map[Kind]map[string]memEntry{
		KindState: {},
		KindChunk: {},
	}}
	s.records = records{b: s, now: time.Now}
	return s
}

func (s *MemoryStore) put(_ context.Context, kind Kind, m Meta, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[kind][m.ID] = memEntry{meta: m, data: slices.Clone(data)}
	return nil
}

func (s *MemoryStore) get(_ context.Context, kind Kind, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[kind][id]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(e.data), nil
}

func (s *MemoryStore) remove(_ context.Context, kind Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[kind][id]; !ok {
		return ErrNotFound
	}
	delete(s.entries[kind], id)
	return nil
}

func (s *MemoryStore) list(_ context.Context, kind Kind) ([]Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	metas := make([]Meta, 0, len(s.entries[kind]))
	for _, id := range slices.Sorted(maps.Keys(s.entries[kind])) {
		metas = append(metas, s.entries[kind][id].meta)
	}
	return metas, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
