package store

import (
	"context"
	"sync"

	"github.com/pomboid/kill-fake-news/internal/model"
)

// MemoryStore is an in-memory Store, used in tests and for one-shot runs
// where persistence is not wanted
type MemoryStore struct {
	mu       sync.RWMutex
	evidence []model.EvidenceItem
	history  []model.VerdictRecord
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// AddEvidence appends items to the corpus
func (s *MemoryStore) AddEvidence(_ context.Context, items []model.EvidenceItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evidence = append(s.evidence, items...)
	return nil
}

// Evidence returns a copy of the corpus snapshot
func (s *MemoryStore) Evidence(_ context.Context) ([]model.EvidenceItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.EvidenceItem, len(s.evidence))
	copy(out, s.evidence)
	return out, nil
}

// AppendVerdict records a verification outcome
func (s *MemoryStore) AppendVerdict(_ context.Context, rec model.VerdictRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, rec)
	return nil
}

// History returns the most recent verdicts
func (s *MemoryStore) History(_ context.Context, limit int) ([]model.VerdictRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if limit > 0 && len(s.history) > limit {
		start = len(s.history) - limit
	}
	out := make([]model.VerdictRecord, len(s.history)-start)
	copy(out, s.history[start:])
	return out, nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}
