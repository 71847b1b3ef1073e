package memory

import (
	"context"
	"sync"

	"quiz-engine/internal/domain"
)

// ResultStore keeps final results in process memory. It serves as the
// persistence sink when no database is configured.
type ResultStore struct {
	mu      sync.RWMutex
	results map[domain.SessionKey]domain.Result
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[domain.SessionKey]domain.Result)}
}

func (s *ResultStore) SaveResult(_ context.Context, result domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.Key()] = result
	return nil
}

func (s *ResultStore) Result(key domain.SessionKey) (domain.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[key]
	return r, ok
}
