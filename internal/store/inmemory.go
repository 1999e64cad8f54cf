package store

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore is a simple in-process store for tests and keyless dev.
type InMemoryStore struct {
	mu      sync.Mutex
	turns   []Turn
	summary SummaryRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, turn Turn) (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turn.Index = len(s.turns) + 1
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	s.turns = append(s.turns, turn)
	return turn, nil
}

func (s *InMemoryStore) LoadAll(_ context.Context) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out, nil
}

func (s *InMemoryStore) Summary(_ context.Context) (SummaryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary, nil
}

func (s *InMemoryStore) SaveSummary(_ context.Context, rec SummaryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = rec
	return nil
}

func (s *InMemoryStore) Wipe(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
	s.summary = SummaryRecord{}
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
