package memory

import (
	"context"
	"strconv"
	"sync"

	"quiz-engine/internal/app"
	"quiz-engine/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRegistry.
type SessionStore struct {
	mu       sync.RWMutex
	ordinals map[string]int
	sessions map[domain.SessionKey]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		ordinals: make(map[string]int),
		sessions: make(map[domain.SessionKey]*app.Session),
	}
}

func (s *SessionStore) Create(_ context.Context, hostID string, cfg app.SessionConfig) (*app.Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ordinal := s.ordinals[hostID]
	session, err := app.NewSession(hostID, hostID+strconv.Itoa(ordinal), cfg)
	if err != nil {
		return nil, err
	}
	s.ordinals[hostID] = ordinal + 1
	s.sessions[session.Key()] = session
	return session, nil
}

func (s *SessionStore) Get(_ context.Context, key domain.SessionKey) (*app.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[key]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *SessionStore) Remove(_ context.Context, key domain.SessionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[key]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if session.Status() != domain.StatusFinished {
		return domain.ErrSessionOngoing
	}
	delete(s.sessions, key)
	return nil
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
