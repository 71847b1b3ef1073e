package app

import (
	"fmt"
	"sync"
	"time"

	"quiz-engine/internal/domain"
	"quiz-engine/internal/leaderboard"
)

// SessionConfig is what a host supplies when starting a session.
type SessionConfig struct {
	Questions        []domain.Question
	TimeLimitSeconds int
	// Participants are joined eagerly at creation.
	Participants []string
}

// Validate rejects malformed session configs before any state is allocated.
func (c SessionConfig) Validate() error {
	if len(c.Questions) == 0 {
		return domain.ErrEmptyQuestions
	}
	if c.TimeLimitSeconds <= 0 {
		return domain.ErrInvalidTimeLimit
	}
	for i, q := range c.Questions {
		if len(q.Options) == 0 {
			return fmt.Errorf("%w: question %d has no options", domain.ErrInvalidQuestion, i)
		}
		if q.CorrectOption < 1 || q.CorrectOption > len(q.Options) {
			return fmt.Errorf("%w: question %d correct option %d out of range", domain.ErrInvalidQuestion, i, q.CorrectOption)
		}
	}
	for _, p := range c.Participants {
		if p == "" {
			return fmt.Errorf("%w: participant identity", domain.ErrMissingField)
		}
	}
	return nil
}

// Session is one running quiz. Every mutation runs under mu, so a session is a
// single critical section; leaderboard reads share the read lock.
type Session struct {
	hostID    string
	id        string
	questions []domain.Question
	timeLimit int
	createdAt time.Time
	now       func() time.Time

	mu      sync.RWMutex
	status  domain.Status
	current int
	// vectors holds one 0/1 slot per question for every participant.
	vectors map[string][]uint8
	board   *leaderboard.Leaderboard
	result  *domain.Result

	// revision counts accepted submissions.
	revision uint64
}

// NewSession validates cfg and builds an ongoing session at question 0.
func NewSession(hostID, sessionID string, cfg SessionConfig) (*Session, error) {
	return NewSessionWithClock(hostID, sessionID, cfg, time.Now)
}

// NewSessionWithClock allows deterministic timestamps in tests.
func NewSessionWithClock(hostID, sessionID string, cfg SessionConfig, now func() time.Time) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	questions := make([]domain.Question, len(cfg.Questions))
	for i, q := range cfg.Questions {
		options := make([]string, len(q.Options))
		copy(options, q.Options)
		questions[i] = domain.Question{
			Index:         i,
			Prompt:        q.Prompt,
			Options:       options,
			CorrectOption: q.CorrectOption,
		}
	}

	s := &Session{
		hostID:    hostID,
		id:        sessionID,
		questions: questions,
		timeLimit: cfg.TimeLimitSeconds,
		createdAt: now(),
		now:       now,
		status:    domain.StatusOngoing,
		vectors:   make(map[string][]uint8),
		board:     leaderboard.New(),
	}
	for _, p := range cfg.Participants {
		s.joinLocked(p)
	}
	return s, nil
}

func (s *Session) ID() string     { return s.id }
func (s *Session) HostID() string { return s.hostID }

func (s *Session) Key() domain.SessionKey {
	return domain.SessionKey{HostID: s.hostID, SessionID: s.id}
}

func (s *Session) TimeLimitSeconds() int { return s.timeLimit }
func (s *Session) TotalQuestions() int   { return len(s.questions) }
func (s *Session) CreatedAt() time.Time  { return s.createdAt }

func (s *Session) Status() domain.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// CurrentQuestion returns the participant view of the active question.
func (s *Session) CurrentQuestion() domain.QuestionView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.questions[s.current].View()
}

// Join registers identity with a zeroed correctness vector. Re-joining is a no-op.
func (s *Session) Join(identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == domain.StatusFinished {
		return domain.ErrSessionFinished
	}
	s.joinLocked(identity)
	return nil
}

func (s *Session) joinLocked(identity string) {
	if _, ok := s.vectors[identity]; ok {
		return
	}
	s.vectors[identity] = make([]uint8, len(s.questions))
	s.board.Upsert(identity, 0)
}

// Submission is the outcome of an accepted answer together with the ranking
// as it stood when the answer was applied.
type Submission struct {
	Result domain.AnswerResult
	Ranked []domain.ScoreEntry
	// Revision increases with every accepted submission of the session.
	Revision uint64
}

// SubmitAnswer scores chosenOption (1-based) for the current question. Unknown
// identities are joined first. A question is credited at most once.
func (s *Session) SubmitAnswer(identity string, questionIndex, chosenOption int) (domain.AnswerResult, error) {
	sub, err := s.Submit(identity, questionIndex, chosenOption)
	return sub.Result, err
}

// Submit is SubmitAnswer plus a ranking snapshot taken in the same critical section.
func (s *Session) Submit(identity string, questionIndex, chosenOption int) (Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == domain.StatusFinished {
		return Submission{}, domain.ErrSessionFinished
	}
	if questionIndex != s.current {
		return Submission{}, fmt.Errorf("%w: got %d, current %d", domain.ErrStaleQuestion, questionIndex, s.current)
	}
	q := s.questions[questionIndex]
	if chosenOption < 1 || chosenOption > len(q.Options) {
		return Submission{}, fmt.Errorf("%w: %d", domain.ErrOptionNotFound, chosenOption)
	}

	s.joinLocked(identity)
	vector := s.vectors[identity]
	res := domain.AnswerResult{
		QuestionIndex: questionIndex,
		Correct:       chosenOption == q.CorrectOption,
	}
	if res.Correct && vector[questionIndex] == 0 {
		vector[questionIndex] = 1
		res.Awarded = 1
		s.board.Upsert(identity, sum(vector))
	}
	res.TotalScore, _ = s.board.Score(identity)
	s.revision++
	return Submission{Result: res, Ranked: s.board.AllRanked(), Revision: s.revision}, nil
}

// Advance moves to the next question and returns its view.
func (s *Session) Advance() (domain.QuestionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == domain.StatusFinished {
		return domain.QuestionView{}, domain.ErrSessionFinished
	}
	if s.current >= len(s.questions)-1 {
		return domain.QuestionView{}, domain.ErrNoFurtherQuestion
	}
	s.current++
	return s.questions[s.current].View(), nil
}

// End finishes the session and computes its winners: every identity holding
// the maximum score. Only the first call succeeds.
func (s *Session) End() (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == domain.StatusFinished {
		return domain.Result{}, domain.ErrSessionFinished
	}
	s.status = domain.StatusFinished
	s.result = &domain.Result{
		HostID:      s.hostID,
		SessionID:   s.id,
		Status:      domain.StatusFinished,
		Winners:     s.board.Leaders(),
		FinalScores: s.board.AllRanked(),
		EndedAt:     s.now(),
	}
	return s.copyResult(), nil
}

// Result returns the final result once the session has finished.
func (s *Session) Result() (domain.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return domain.Result{}, false
	}
	return s.copyResult(), true
}

func (s *Session) copyResult() domain.Result {
	r := *s.result
	r.Winners = append([]string(nil), s.result.Winners...)
	r.FinalScores = append([]domain.ScoreEntry(nil), s.result.FinalScores...)
	return r
}

// TopK returns a consistent snapshot of the n best ranked participants.
func (s *Session) TopK(n int) []domain.ScoreEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board.TopK(n)
}

// Ranked returns a consistent snapshot of the whole ranking.
func (s *Session) Ranked() []domain.ScoreEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board.AllRanked()
}

// Score returns identity's total and its correctness vector.
func (s *Session) Score(identity string) (int, []uint8, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vector, ok := s.vectors[identity]
	if !ok {
		return 0, nil, domain.ErrParticipantNotFound
	}
	score, _ := s.board.Score(identity)
	return score, append([]uint8(nil), vector...), nil
}

// Participants returns the number of known identities.
func (s *Session) Participants() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

func sum(vector []uint8) int {
	total := 0
	for _, v := range vector {
		total += int(v)
	}
	return total
}
