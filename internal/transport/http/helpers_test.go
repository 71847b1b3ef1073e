package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"quiz-engine/internal/app"
	"quiz-engine/internal/domain"
	"quiz-engine/internal/infra/memory"
	"quiz-engine/internal/telemetry"
)

type testServer struct {
	*httptest.Server
	hub      *Hub
	sessions *memory.SessionStore
	results  *memory.ResultStore
}

func newTestServer(t *testing.T, sinks ...app.ResultSink) *testServer {
	t.Helper()
	hub := NewHub()
	sessions := memory.NewSessionStore()
	results := memory.NewResultStore()
	if len(sinks) == 0 {
		sinks = []app.ResultSink{results}
	}
	reg := prometheus.NewRegistry()
	service := app.NewQuizService(app.Config{
		Sessions: sessions,
		Quizzes:  memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuizzes()), time.Minute),
		Results:  app.ResultSinks(sinks),
		Notifier: hub,
		Recorder: telemetry.NewMetrics(reg),
	})
	router := NewRouter(NewRESTHandler(service), NewWSHandler(service, hub, 16), reg)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, hub: hub, sessions: sessions, results: results}
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectOption: 2},
		{Prompt: "Capital of France?", Options: []string{"Paris", "Rome"}, CorrectOption: 1},
	}
}

func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {ID: "quiz-1", Questions: sampleQuestions()},
	}
}
