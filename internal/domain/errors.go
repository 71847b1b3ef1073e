package domain

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var code2http = map[codes.Code]int{
	codes.InvalidArgument:    http.StatusBadRequest,
	codes.NotFound:           http.StatusNotFound,
	codes.FailedPrecondition: http.StatusConflict,
	codes.PermissionDenied:   http.StatusForbidden,
	codes.Unavailable:        http.StatusServiceUnavailable,
	codes.Internal:           http.StatusInternalServerError,
}

// Error is a sentinel error tagged with a status code.
type Error struct {
	Code    codes.Code
	Message string
}

func newError(code codes.Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) GRPCStatus() *status.Status {
	return status.New(e.Code, e.Message)
}

func (e *Error) HTTPStatusCode() int {
	if c, ok := code2http[e.Code]; ok {
		return c
	}
	return http.StatusInternalServerError
}

// CodeOf reports the code of the first *Error in err's chain, or codes.Internal.
func CodeOf(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return codes.Internal
}

// HTTPStatus maps err to an HTTP status code.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatusCode()
	}
	return http.StatusInternalServerError
}

var (
	// ErrMissingField is returned when a required request field is empty.
	ErrMissingField = newError(codes.InvalidArgument, "missing required field")
	// ErrEmptyQuestions is returned when a session is started without questions.
	ErrEmptyQuestions = newError(codes.InvalidArgument, "question list is empty")
	// ErrInvalidQuestion indicates a question without options or with an out of range correct option.
	ErrInvalidQuestion = newError(codes.InvalidArgument, "invalid question")
	// ErrInvalidTimeLimit is returned for a non-positive time limit.
	ErrInvalidTimeLimit = newError(codes.InvalidArgument, "time limit must be positive")
	// ErrNoParticipants is returned when a session is started with no participants.
	ErrNoParticipants = newError(codes.InvalidArgument, "participant list is empty")
	// ErrOptionNotFound indicates a chosen option outside the question's options.
	ErrOptionNotFound = newError(codes.InvalidArgument, "option not found")
	// ErrMalformedRequest is returned for undecodable or unknown client messages.
	ErrMalformedRequest = newError(codes.InvalidArgument, "malformed request")

	// ErrSessionNotFound is returned when no live session matches the key.
	ErrSessionNotFound = newError(codes.NotFound, "quiz session not found")
	// ErrParticipantNotFound is returned when an identity is unknown to the session.
	ErrParticipantNotFound = newError(codes.NotFound, "participant not found in quiz")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = newError(codes.NotFound, "quiz not found")

	// ErrStaleQuestion is returned for a submission against a question that is not current.
	ErrStaleQuestion = newError(codes.FailedPrecondition, "question is not the current question")
	// ErrNoFurtherQuestion is returned when advancing past the last question.
	ErrNoFurtherQuestion = newError(codes.FailedPrecondition, "no further question, end the session instead")
	// ErrSessionFinished is returned for any mutation of a finished session.
	ErrSessionFinished = newError(codes.FailedPrecondition, "quiz session already finished")
	// ErrSessionOngoing is returned when removing a session that has not finished.
	ErrSessionOngoing = newError(codes.FailedPrecondition, "quiz session still ongoing")

	// ErrNotHost is returned when a non-host attempts a host-only action.
	ErrNotHost = newError(codes.PermissionDenied, "only the host may perform this action")

	// ErrPersistFailed is a warning: the session finished but its result was not stored.
	ErrPersistFailed = newError(codes.Unavailable, "final result not persisted, retry out of band")
)
