package idempotency

import (
	"context"
	"sync"
)

// MemorySet keeps ids in process memory. It does not survive restarts and is
// not shared between instances.
type MemorySet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewMemorySet() *MemorySet {
	return &MemorySet{ids: make(map[string]struct{})}
}

func (s *MemorySet) Contains(_ context.Context, id string) (bool, error) {
	id, err := normalizeID(id)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok, nil
}

func (s *MemorySet) Claim(_ context.Context, id string) (bool, error) {
	id, err := normalizeID(id)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false, nil
	}
	s.ids[id] = struct{}{}
	return true, nil
}

func (s *MemorySet) Release(_ context.Context, id string) error {
	id, err := normalizeID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
	return nil
}

// Len reports the number of claimed ids.
func (s *MemorySet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}
