package domain

const (
	EventNameSessionStarted    = "quiz-started"
	EventNameNewQuestion       = "new-question"
	EventNameParticipantJoined = "joined-quiz"
	EventNameParticipantLeft   = "left-quiz"
	EventNameScoresUpdated     = "update-scores"
	EventNameSessionEnded      = "quiz-over"
)

// Event is an outbound notification for every connection in a session scope.
type Event interface {
	Name() string
}

type EventSessionStarted struct {
	HostID           string       `json:"hostId"`
	SessionID        string       `json:"sessionId"`
	TotalQuestions   int          `json:"totalQuestions"`
	TimeLimitSeconds int          `json:"timeLimitSeconds"`
	Question         QuestionView `json:"question"`
}

func (EventSessionStarted) Name() string { return EventNameSessionStarted }

type EventNewQuestion struct {
	SessionID string       `json:"sessionId"`
	Question  QuestionView `json:"question"`
}

func (EventNewQuestion) Name() string { return EventNameNewQuestion }

type EventParticipantJoined struct {
	SessionID string `json:"sessionId"`
	Identity  string `json:"identity"`
}

func (EventParticipantJoined) Name() string { return EventNameParticipantJoined }

type EventParticipantLeft struct {
	SessionID string `json:"sessionId"`
	Identity  string `json:"identity"`
}

func (EventParticipantLeft) Name() string { return EventNameParticipantLeft }

// EventScoresUpdated carries the ranking after a submission. Deliveries may
// interleave; a receiver keeps the one with the highest Revision.
type EventScoresUpdated struct {
	SessionID string       `json:"sessionId"`
	Revision  uint64       `json:"revision"`
	Ranked    []ScoreEntry `json:"ranked"`
}

func (EventScoresUpdated) Name() string { return EventNameScoresUpdated }

type EventSessionEnded struct {
	Result Result `json:"result"`
}

func (EventSessionEnded) Name() string { return EventNameSessionEnded }
