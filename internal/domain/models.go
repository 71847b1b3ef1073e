package domain

import "time"

// Status is the lifecycle state of a quiz session.
type Status string

const (
	StatusOngoing  Status = "ongoing"
	StatusFinished Status = "finished"
)

// SessionKey addresses a session inside its host's namespace.
type SessionKey struct {
	HostID    string `json:"hostId"`
	SessionID string `json:"sessionId"`
}

func (k SessionKey) String() string {
	return k.HostID + "/" + k.SessionID
}

// Question models an MCQ question. CorrectOption is a 1-based index into Options.
type Question struct {
	Index         int      `json:"index"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
}

// View strips the answer so the question can be broadcast to participants.
func (q Question) View() QuestionView {
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	return QuestionView{Index: q.Index, Prompt: q.Prompt, Options: options}
}

// QuestionView is the participant-facing form of a question.
type QuestionView struct {
	Index   int      `json:"index"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// Quiz is a stored question set that a host can start sessions from.
type Quiz struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

// ScoreEntry is one row of a ranked leaderboard.
type ScoreEntry struct {
	Identity string `json:"identity"`
	Score    int    `json:"score"`
}

// AnswerResult summarizes the outcome of a submission for a single participant.
type AnswerResult struct {
	QuestionIndex int  `json:"questionIndex"`
	Correct       bool `json:"correct"`
	Awarded       int  `json:"awarded"`
	TotalScore    int  `json:"totalScore"`
}

// Result is the final outcome of a session, handed to the persistence sink.
type Result struct {
	HostID      string       `json:"hostId"`
	SessionID   string       `json:"sessionId"`
	Status      Status       `json:"status"`
	Winners     []string     `json:"winners"`
	FinalScores []ScoreEntry `json:"finalScores"`
	EndedAt     time.Time    `json:"endedAt"`
}

// Key returns the registry key of the session the result belongs to.
func (r Result) Key() SessionKey {
	return SessionKey{HostID: r.HostID, SessionID: r.SessionID}
}
