package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"quiz-engine/internal/domain"
)

const defaultLeaderboardSize = 5

type Config struct {
	Sessions SessionRegistry
	// Quizzes is optional; without it sessions must carry inline questions.
	Quizzes  QuizRepository
	Results  ResultSink
	Notifier Notifier
	Recorder Recorder
	// LeaderboardSize is used when a leaderboard query asks for topN <= 0.
	LeaderboardSize int
}

// QuizService dispatches host and participant actions to the session registry
// and turns the resulting state changes into scope notifications.
type QuizService struct {
	sessions SessionRegistry
	quizzes  QuizRepository
	results  ResultSink
	notifier Notifier
	recorder Recorder
	topN     int

	pendingMu sync.Mutex
	pending   map[domain.SessionKey]ResultSink
}

func NewQuizService(c Config) *QuizService {
	s := &QuizService{
		sessions: c.Sessions,
		quizzes:  c.Quizzes,
		results:  c.Results,
		notifier: c.Notifier,
		recorder: c.Recorder,
		topN:     c.LeaderboardSize,
		pending:  make(map[domain.SessionKey]ResultSink),
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.results == nil {
		s.results = ResultSinks(nil)
	}
	if s.topN <= 0 {
		s.topN = defaultLeaderboardSize
	}
	return s
}

type StartRequest struct {
	HostID string
	// QuizID names a stored quiz; it is used only when Questions is empty.
	QuizID           string
	Questions        []domain.Question
	TimeLimitSeconds int
	Participants     []string
}

type StartResult struct {
	domain.SessionKey
	TotalQuestions   int                 `json:"totalQuestions"`
	TimeLimitSeconds int                 `json:"timeLimitSeconds"`
	Question         domain.QuestionView `json:"question"`
}

// Start creates a session at question 0 and announces it to the session scope.
func (s *QuizService) Start(ctx context.Context, req StartRequest) (StartResult, error) {
	if req.HostID == "" {
		return StartResult{}, fmt.Errorf("%w: hostId", domain.ErrMissingField)
	}
	if len(req.Participants) == 0 {
		return StartResult{}, domain.ErrNoParticipants
	}

	questions := req.Questions
	if len(questions) == 0 && req.QuizID != "" {
		if s.quizzes == nil {
			return StartResult{}, domain.ErrQuizNotFound
		}
		quiz, err := s.quizzes.GetQuiz(ctx, req.QuizID)
		if err != nil {
			return StartResult{}, err
		}
		questions = quiz.Questions
	}

	session, err := s.sessions.Create(ctx, req.HostID, SessionConfig{
		Questions:        questions,
		TimeLimitSeconds: req.TimeLimitSeconds,
		Participants:     req.Participants,
	})
	if err != nil {
		return StartResult{}, err
	}
	s.recorder.SessionStarted()

	res := StartResult{
		SessionKey:       session.Key(),
		TotalQuestions:   session.TotalQuestions(),
		TimeLimitSeconds: session.TimeLimitSeconds(),
		Question:         session.CurrentQuestion(),
	}
	slog.InfoContext(ctx, "quiz: session started",
		"host", res.HostID, "session", res.SessionID, "questions", res.TotalQuestions)

	s.notify(ctx, res.SessionKey, domain.EventSessionStarted{
		HostID:           res.HostID,
		SessionID:        res.SessionID,
		TotalQuestions:   res.TotalQuestions,
		TimeLimitSeconds: res.TimeLimitSeconds,
		Question:         res.Question,
	})
	return res, nil
}

// Join registers identity in the session.
func (s *QuizService) Join(ctx context.Context, key domain.SessionKey, identity string) error {
	if identity == "" {
		return fmt.Errorf("%w: identity", domain.ErrMissingField)
	}
	session, err := s.sessions.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := session.Join(identity); err != nil {
		return err
	}
	s.notify(ctx, key, domain.EventParticipantJoined{SessionID: key.SessionID, Identity: identity})
	return nil
}

// Leave announces that identity left. Its scores stay in the session.
func (s *QuizService) Leave(ctx context.Context, key domain.SessionKey, identity string) error {
	if identity == "" {
		return fmt.Errorf("%w: identity", domain.ErrMissingField)
	}
	if _, err := s.sessions.Get(ctx, key); err != nil {
		return err
	}
	s.notify(ctx, key, domain.EventParticipantLeft{SessionID: key.SessionID, Identity: identity})
	return nil
}

// SubmitAnswer records an answer for the current question and broadcasts the scores.
func (s *QuizService) SubmitAnswer(ctx context.Context, key domain.SessionKey, identity string, questionIndex, chosenOption int) (domain.AnswerResult, error) {
	if identity == "" {
		return domain.AnswerResult{}, fmt.Errorf("%w: identity", domain.ErrMissingField)
	}
	session, err := s.sessions.Get(ctx, key)
	if err != nil {
		return domain.AnswerResult{}, err
	}

	sub, err := session.Submit(identity, questionIndex, chosenOption)
	if err != nil {
		s.recorder.AnswerSubmitted(OutcomeRejected)
		return domain.AnswerResult{}, err
	}
	res := sub.Result
	if res.Correct {
		s.recorder.AnswerSubmitted(OutcomeCorrect)
	} else {
		s.recorder.AnswerSubmitted(OutcomeIncorrect)
	}

	s.notify(ctx, key, domain.EventScoresUpdated{SessionID: key.SessionID, Revision: sub.Revision, Ranked: sub.Ranked})
	return res, nil
}

// Advance moves the session to its next question. Host only.
func (s *QuizService) Advance(ctx context.Context, key domain.SessionKey, caller string) (domain.QuestionView, error) {
	session, err := s.hostSession(ctx, key, caller)
	if err != nil {
		return domain.QuestionView{}, err
	}
	q, err := session.Advance()
	if err != nil {
		return domain.QuestionView{}, err
	}
	s.notify(ctx, key, domain.EventNewQuestion{SessionID: key.SessionID, Question: q})
	return q, nil
}

// End finishes the session, broadcasts the final scores and hands the result
// to the persistence sink. A sink failure does not undo the finish: the result
// is returned together with an error wrapping domain.ErrPersistFailed.
func (s *QuizService) End(ctx context.Context, key domain.SessionKey, caller string) (domain.Result, error) {
	session, err := s.hostSession(ctx, key, caller)
	if err != nil {
		return domain.Result{}, err
	}
	result, err := session.End()
	if err != nil {
		return domain.Result{}, err
	}
	s.recorder.SessionEnded()
	slog.InfoContext(ctx, "quiz: session ended",
		"host", key.HostID, "session", key.SessionID, "winners", result.Winners)

	s.notify(ctx, key, domain.EventSessionEnded{Result: result})
	return result, s.persist(ctx, result)
}

// RetryPersist re-sends the result of a finished session whose earlier
// persistence failed. Host only.
func (s *QuizService) RetryPersist(ctx context.Context, key domain.SessionKey, caller string) (domain.Result, error) {
	session, err := s.hostSession(ctx, key, caller)
	if err != nil {
		return domain.Result{}, err
	}
	result, ok := session.Result()
	if !ok {
		return domain.Result{}, domain.ErrSessionOngoing
	}
	return result, s.persist(ctx, result)
}

// Leaderboard returns the topN ranked participants.
func (s *QuizService) Leaderboard(ctx context.Context, key domain.SessionKey, topN int) ([]domain.ScoreEntry, error) {
	session, err := s.sessions.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if topN <= 0 {
		topN = s.topN
	}
	return session.TopK(topN), nil
}

func (s *QuizService) hostSession(ctx context.Context, key domain.SessionKey, caller string) (*Session, error) {
	session, err := s.sessions.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if caller != session.HostID() {
		return nil, domain.ErrNotHost
	}
	return session, nil
}

// persist stores the result and, once it is durable, drops the session.
// After a partial failure only the sinks that failed are tried again.
func (s *QuizService) persist(ctx context.Context, result domain.Result) error {
	key := result.Key()
	sink := s.pendingSink(key)
	if err := sink.SaveResult(ctx, result); err != nil {
		var partial *SinkError
		if errors.As(err, &partial) {
			sink = partial.Failed
		}
		s.setPending(key, sink)
		s.recorder.PersistFailed()
		slog.WarnContext(ctx, "quiz: persist result failed",
			"host", result.HostID, "session", result.SessionID, "error", err)
		return fmt.Errorf("%w: %w", domain.ErrPersistFailed, err)
	}
	s.setPending(key, nil)
	if err := s.sessions.Remove(ctx, key); err != nil {
		slog.WarnContext(ctx, "quiz: remove finished session failed",
			"host", result.HostID, "session", result.SessionID, "error", err)
	}
	return nil
}

func (s *QuizService) pendingSink(key domain.SessionKey) ResultSink {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if sink, ok := s.pending[key]; ok {
		return sink
	}
	return s.results
}

// setPending records the sinks still owed key's result; nil clears it.
func (s *QuizService) setPending(key domain.SessionKey, sink ResultSink) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if sink == nil {
		delete(s.pending, key)
		return
	}
	s.pending[key] = sink
}

func (s *QuizService) notify(ctx context.Context, key domain.SessionKey, e domain.Event) {
	if err := s.notifier.Publish(ctx, key, e); err != nil {
		slog.WarnContext(ctx, "quiz: notify scope failed",
			"host", key.HostID, "session", key.SessionID, "event", e.Name(), "error", err)
	}
}
