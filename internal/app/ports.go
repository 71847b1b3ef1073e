package app

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"quiz-engine/internal/domain"
)

// SessionRegistry owns live sessions keyed by (host, session).
// Session IDs are the host ID followed by a per-host ordinal that is never reused.
type SessionRegistry interface {
	Create(ctx context.Context, hostID string, cfg SessionConfig) (*Session, error)
	Get(ctx context.Context, key domain.SessionKey) (*Session, error)
	// Remove drops a finished session; ongoing sessions are refused.
	Remove(ctx context.Context, key domain.SessionKey) error
}

// QuizRepository loads stored quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ResultSink durably stores the final result of a session.
type ResultSink interface {
	SaveResult(ctx context.Context, result domain.Result) error
}

// Notifier delivers an event to every connection in a session scope.
type Notifier interface {
	Publish(ctx context.Context, key domain.SessionKey, e domain.Event) error
}

// Recorder observes engine activity, e.g. for metrics.
type Recorder interface {
	SessionStarted()
	SessionEnded()
	AnswerSubmitted(outcome string)
	PersistFailed()
}

const (
	OutcomeCorrect   = "correct"
	OutcomeIncorrect = "incorrect"
	OutcomeRejected  = "rejected"
)

// ResultSinks saves to every sink. When any sink fails it returns a
// *SinkError listing the failed ones.
type ResultSinks []ResultSink

func (s ResultSinks) SaveResult(ctx context.Context, result domain.Result) error {
	var (
		errs   []error
		failed ResultSinks
	)
	for _, sink := range s {
		if err := sink.SaveResult(ctx, result); err != nil {
			errs = append(errs, err)
			failed = append(failed, sink)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &SinkError{Failed: failed, Err: errors.Join(errs...)}
}

// SinkError reports the sinks of a fan-out that did not store the result.
type SinkError struct {
	Failed ResultSinks
	Err    error
}

func (e *SinkError) Error() string { return e.Err.Error() }
func (e *SinkError) Unwrap() error { return e.Err }

const maxConcurrentNotify = 8

// Notifiers publishes to every notifier concurrently.
type Notifiers []Notifier

func (n Notifiers) Publish(ctx context.Context, key domain.SessionKey, e domain.Event) error {
	var eg errgroup.Group
	eg.SetLimit(maxConcurrentNotify)
	for _, notifier := range n {
		notifier := notifier
		eg.Go(func() error {
			return notifier.Publish(ctx, key, e)
		})
	}
	return eg.Wait()
}

type nopRecorder struct{}

func (nopRecorder) SessionStarted()        {}
func (nopRecorder) SessionEnded()          {}
func (nopRecorder) AnswerSubmitted(string) {}
func (nopRecorder) PersistFailed()         {}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, domain.SessionKey, domain.Event) error { return nil }
