package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"quiz-engine/internal/app"
	"quiz-engine/internal/domain"
)

// UserHeader carries the caller identity resolved by the upstream identity provider.
const UserHeader = "X-User-ID"

type RESTHandler struct {
	service *app.QuizService
}

func NewRESTHandler(service *app.QuizService) *RESTHandler {
	return &RESTHandler{service: service}
}

func (h *RESTHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var p startPayload
	if !decodeBody(w, r, &p) {
		return
	}
	res, err := h.service.Start(r.Context(), app.StartRequest{
		HostID:           r.Header.Get(UserHeader),
		QuizID:           p.QuizID,
		Questions:        p.Questions,
		TimeLimitSeconds: p.TimeLimitSeconds,
		Participants:     p.Participants,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *RESTHandler) Join(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(r)
	if err := h.service.Join(r.Context(), key, r.Header.Get(UserHeader)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ackPayload{Action: msgJoin, SessionID: key.SessionID})
}

func (h *RESTHandler) Leave(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(r)
	if err := h.service.Leave(r.Context(), key, r.Header.Get(UserHeader)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ackPayload{Action: msgLeave, SessionID: key.SessionID})
}

func (h *RESTHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var p struct {
		QuestionIndex int `json:"questionIndex"`
		ChosenOption  int `json:"chosenOption"`
	}
	if !decodeBody(w, r, &p) {
		return
	}
	res, err := h.service.SubmitAnswer(r.Context(), sessionKey(r), r.Header.Get(UserHeader), p.QuestionIndex, p.ChosenOption)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *RESTHandler) Advance(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(r)
	q, err := h.service.Advance(r.Context(), key, r.Header.Get(UserHeader))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ackPayload{Action: msgAdvance, SessionID: key.SessionID, Question: &q})
}

func (h *RESTHandler) End(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.End(r.Context(), sessionKey(r), r.Header.Get(UserHeader))
	h.writeResult(w, result, err)
}

func (h *RESTHandler) RetryPersist(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RetryPersist(r.Context(), sessionKey(r), r.Header.Get(UserHeader))
	h.writeResult(w, result, err)
}

// writeResult reports a persistence failure as 202: the session is finished
// but its result is not durable yet.
func (h *RESTHandler) writeResult(w http.ResponseWriter, result domain.Result, err error) {
	switch {
	case errors.Is(err, domain.ErrPersistFailed):
		writeJSON(w, http.StatusAccepted, sessionEndedPayload{Result: result, Warning: err.Error()})
	case err != nil:
		writeError(w, err)
	default:
		writeJSON(w, http.StatusOK, sessionEndedPayload{Result: result})
	}
}

func (h *RESTHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	topN := 0
	if raw := r.URL.Query().Get("topN"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, fmt.Errorf("%w: topN", domain.ErrMalformedRequest))
			return
		}
		topN = n
	}
	key := sessionKey(r)
	ranked, err := h.service.Leaderboard(r.Context(), key, topN)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leaderboardPayload{SessionID: key.SessionID, Ranked: ranked})
}

func sessionKey(r *http.Request) domain.SessionKey {
	return domain.SessionKey{HostID: chi.URLParam(r, "hostId"), SessionID: chi.URLParam(r, "sessionId")}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrMalformedRequest, err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, domain.HTTPStatus(err), newErrorPayload(err))
}
