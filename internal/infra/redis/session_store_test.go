package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"quiz-engine/internal/app"
	"quiz-engine/internal/domain"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	store := NewSessionStore(newClient(mr), time.Minute)

	session, err := store.Create(ctx, "host", sampleConfig())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if session.ID() != "host0" {
		t.Fatalf("expected host0, got %s", session.ID())
	}
	if !mr.Exists("quiz:session:host:host0") {
		t.Fatalf("expected liveness key to be set")
	}

	if err := store.Remove(ctx, session.Key()); !errors.Is(err, domain.ErrSessionOngoing) {
		t.Fatalf("expected ongoing session kept, got %v", err)
	}
	if _, err := session.End(); err != nil {
		t.Fatalf("end: %v", err)
	}
	if err := store.Remove(ctx, session.Key()); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if mr.Exists("quiz:session:host:host0") {
		t.Fatalf("expected liveness key to be removed")
	}
	if _, err := store.Get(ctx, session.Key()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSessionStoreOrdinalsSurviveRestart(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	first := NewSessionStore(newClient(mr), time.Minute)
	if _, err := first.Create(ctx, "host", sampleConfig()); err != nil {
		t.Fatalf("create: %v", err)
	}

	// A fresh store sharing the same Redis continues the sequence.
	second := NewSessionStore(newClient(mr), time.Minute)
	session, err := second.Create(ctx, "host", sampleConfig())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if session.ID() != "host1" {
		t.Fatalf("expected host1, got %s", session.ID())
	}
}

func TestSessionStoreRejectsInvalidConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewSessionStore(newClient(mr), time.Minute)

	_, err := store.Create(context.Background(), "host", app.SessionConfig{Questions: sampleConfig().Questions})
	if !errors.Is(err, domain.ErrInvalidTimeLimit) {
		t.Fatalf("expected invalid time limit, got %v", err)
	}
	if mr.Exists("quiz:host:host:seq") {
		t.Fatalf("rejected create must not consume an ordinal")
	}
}

func sampleConfig() app.SessionConfig {
	return app.SessionConfig{
		Questions: []domain.Question{
			{Prompt: "What is 2 + 2?", Options: []string{"3", "4"}, CorrectOption: 2},
		},
		TimeLimitSeconds: 30,
		Participants:     []string{"a", "b"},
	}
}
