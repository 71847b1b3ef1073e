package http

import (
	"encoding/json"

	"quiz-engine/internal/domain"
)

const (
	msgStartSession   = "start-session"
	msgJoin           = "join"
	msgLeave          = "leave"
	msgSubmitAnswer   = "submit-answer"
	msgAdvance        = "advance"
	msgEndSession     = "end-session"
	msgGetLeaderboard = "get-leaderboard"

	msgSessionCreated = "session-created"
	msgAnswerResult   = "answer-result"
	msgLeaderboard    = "leaderboard"
	msgSessionEnded   = "session-ended"
	msgAck            = "ack"
	msgError          = "error"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type startPayload struct {
	QuizID           string            `json:"quizId"`
	Questions        []domain.Question `json:"questions"`
	TimeLimitSeconds int               `json:"timeLimitSeconds"`
	Participants     []string          `json:"participants"`
}

// scopePayload addresses a session. The other inbound payloads embed it.
type scopePayload struct {
	HostID    string `json:"hostId"`
	SessionID string `json:"sessionId"`
}

func (p scopePayload) key() domain.SessionKey {
	return domain.SessionKey{HostID: p.HostID, SessionID: p.SessionID}
}

type answerPayload struct {
	scopePayload
	QuestionIndex int `json:"questionIndex"`
	ChosenOption  int `json:"chosenOption"`
}

type leaderboardQuery struct {
	scopePayload
	TopN int `json:"topN"`
}

type leaderboardPayload struct {
	SessionID string              `json:"sessionId"`
	Ranked    []domain.ScoreEntry `json:"ranked"`
}

type sessionEndedPayload struct {
	Result  domain.Result `json:"result"`
	Warning string        `json:"warning,omitempty"`
}

type ackPayload struct {
	Action    string               `json:"action"`
	SessionID string               `json:"sessionId,omitempty"`
	Question  *domain.QuestionView `json:"question,omitempty"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newErrorPayload(err error) errorPayload {
	return errorPayload{Code: domain.CodeOf(err).String(), Message: err.Error()}
}
