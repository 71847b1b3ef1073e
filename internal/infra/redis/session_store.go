package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-engine/internal/app"
	"quiz-engine/internal/domain"
)

// SessionStore is a Redis-aware implementation of app.SessionRegistry.
// Notes:
//   - Sessions themselves live in a local map; their critical sections are
//     process-local mutexes.
//   - Per-host ordinals come from INCR, so session IDs stay unique across
//     restarts and across instances sharing the Redis.
//   - A liveness key marks each live session for other instances and tooling.
type SessionStore struct {
	client   redis.UniversalClient
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[domain.SessionKey]*app.Session
}

func NewSessionStore(client redis.UniversalClient, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[domain.SessionKey]*app.Session),
	}
}

func (s *SessionStore) Create(ctx context.Context, hostID string, cfg app.SessionConfig) (*app.Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seq, err := s.client.Incr(ctx, s.ordinalKey(hostID)).Result()
	if err != nil {
		return nil, fmt.Errorf("allocate session ordinal: %w", err)
	}
	session, err := app.NewSession(hostID, hostID+strconv.FormatInt(seq-1, 10), cfg)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[session.Key()] = session
	s.mu.Unlock()

	// best-effort liveness marker
	if err := s.client.Set(ctx, s.liveKey(session.Key()), string(domain.StatusOngoing), s.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "redis: mark session live failed", "session", session.Key().String(), "error", err)
	}
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

func (s *SessionStore) Remove(ctx context.Context, key domain.SessionKey) error {
	s.mu.Lock()
	session, ok := s.sessions[key]
	if !ok {
		s.mu.Unlock()
		return domain.ErrSessionNotFound
	}
	if session.Status() != domain.StatusFinished {
		s.mu.Unlock()
		return domain.ErrSessionOngoing
	}
	delete(s.sessions, key)
	s.mu.Unlock()

	if err := s.client.Del(ctx, s.liveKey(key)).Err(); err != nil {
		slog.WarnContext(ctx, "redis: clear session marker failed", "session", key.String(), "error", err)
	}
	return nil
}

func (s *SessionStore) ordinalKey(hostID string) string {
	return "quiz:host:" + hostID + ":seq"
}

func (s *SessionStore) liveKey(key domain.SessionKey) string {
	return "quiz:session:" + key.HostID + ":" + key.SessionID
}
