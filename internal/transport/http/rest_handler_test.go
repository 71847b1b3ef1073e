package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"quiz-engine/internal/domain"
)

func TestREST_GameFlow(t *testing.T) {
	srv := newTestServer(t)

	var created struct {
		HostID    string `json:"hostId"`
		SessionID string `json:"sessionId"`
	}
	status := call(t, srv, http.MethodPost, "/sessions", "host", map[string]any{
		"quizId":           "quiz-1",
		"timeLimitSeconds": 20,
		"participants":     []string{"alice", "bob"},
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, "host0", created.SessionID)

	base := "/sessions/host/host0"
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, base+"/join", "carol", nil, nil))

	var answer domain.AnswerResult
	status = call(t, srv, http.MethodPost, base+"/answers", "bob", map[string]int{"questionIndex": 0, "chosenOption": 2}, &answer)
	require.Equal(t, http.StatusOK, status)
	require.True(t, answer.Correct)

	status = call(t, srv, http.MethodPost, base+"/answers", "carol", map[string]int{"questionIndex": 1, "chosenOption": 1}, nil)
	require.Equal(t, http.StatusConflict, status, "future question is stale")

	require.Equal(t, http.StatusForbidden, call(t, srv, http.MethodPost, base+"/advance", "bob", nil, nil))
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, base+"/advance", "host", nil, nil))

	call(t, srv, http.MethodPost, base+"/answers", "carol", map[string]int{"questionIndex": 1, "chosenOption": 1}, nil)

	var board leaderboardPayload
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, base+"/leaderboard?topN=2", "", nil, &board))
	require.Equal(t, []domain.ScoreEntry{{Identity: "bob", Score: 1}, {Identity: "carol", Score: 1}}, board.Ranked)

	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, base+"/leave", "carol", nil, nil))

	var ended sessionEndedPayload
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, base+"/end", "host", nil, &ended))
	require.Equal(t, []string{"bob", "carol"}, ended.Result.Winners)

	// persisted sessions leave the registry
	require.Equal(t, http.StatusNotFound, call(t, srv, http.MethodGet, base+"/leaderboard", "", nil, nil))
}

func TestREST_Errors(t *testing.T) {
	srv := newTestServer(t)

	tests := map[string]struct {
		method string
		path   string
		user   string
		body   any
		status int
		code   string
	}{
		"no participants": {
			method: http.MethodPost, path: "/sessions", user: "host",
			body:   map[string]any{"quizId": "quiz-1", "timeLimitSeconds": 10},
			status: http.StatusBadRequest, code: "InvalidArgument",
		},
		"unknown quiz": {
			method: http.MethodPost, path: "/sessions", user: "host",
			body:   map[string]any{"quizId": "nope", "timeLimitSeconds": 10, "participants": []string{"a"}},
			status: http.StatusNotFound, code: "NotFound",
		},
		"unknown session": {
			method: http.MethodGet, path: "/sessions/host/host9/leaderboard",
			status: http.StatusNotFound, code: "NotFound",
		},
		"leave without user": {
			method: http.MethodPost, path: "/sessions/host/host0/leave",
			status: http.StatusBadRequest, code: "InvalidArgument",
		},
		"bad topN": {
			method: http.MethodGet, path: "/sessions/host/host0/leaderboard?topN=x",
			status: http.StatusBadRequest, code: "InvalidArgument",
		},
		"bad body": {
			method: http.MethodPost, path: "/sessions", user: "host",
			body:   "not an object",
			status: http.StatusBadRequest, code: "InvalidArgument",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var failure errorPayload
			status := call(t, srv, tc.method, tc.path, tc.user, tc.body, &failure)
			require.Equal(t, tc.status, status)
			require.Equal(t, tc.code, failure.Code)
		})
	}
}

func TestREST_PersistFailureIsAccepted(t *testing.T) {
	sink := &failOnceSink{}
	srv := newTestServer(t, sink)

	status := call(t, srv, http.MethodPost, "/sessions", "host", map[string]any{
		"questions":        sampleQuestions(),
		"timeLimitSeconds": 20,
		"participants":     []string{"alice"},
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	var ended sessionEndedPayload
	require.Equal(t, http.StatusAccepted, call(t, srv, http.MethodPost, "/sessions/host/host0/end", "host", nil, &ended))
	require.NotEmpty(t, ended.Warning)
	require.Equal(t, domain.StatusFinished, ended.Result.Status)

	// the finished session stays readable until the retry succeeds
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/sessions/host/host0/leaderboard", "", nil, nil))
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/sessions/host/host0/persist", "host", nil, nil))
	sink.mu.Lock()
	require.Equal(t, 1, sink.saved)
	sink.mu.Unlock()
	require.Equal(t, http.StatusNotFound, call(t, srv, http.MethodGet, "/sessions/host/host0/leaderboard", "", nil, nil))
}

func TestOperationalEndpoints(t *testing.T) {
	srv := newTestServer(t)
	call(t, srv, http.MethodPost, "/sessions", "host", map[string]any{
		"quizId": "quiz-1", "timeLimitSeconds": 20, "participants": []string{"alice"},
	}, nil)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "quiz_sessions_started_total 1")
	require.Contains(t, string(body), "quiz_sessions_active 1")
}

type failOnceSink struct {
	mu     sync.Mutex
	failed bool
	saved  int
}

func (s *failOnceSink) SaveResult(context.Context, domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.failed {
		s.failed = true
		return errors.New("db down")
	}
	s.saved++
	return nil
}

func call(t *testing.T, srv *testServer, method, path, user string, body, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}
