// Package common defines shared constants and the error taxonomy used across
// the transport, service and CLI layers. Callers should use errors.Is with the
// sentinel values, or KindOf, to classify failures.
package common

import (
	"errors"
	"fmt"
)

var (
	// Client-side checks; never reach the network.
	ErrValidation = errors.New("validation error")

	// Transport-level kinds.
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrRejected     = errors.New("request rejected")
	ErrServer       = errors.New("server error")
	ErrTimeout      = errors.New("request timed out")
	ErrUnavailable  = errors.New("server unavailable")
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthentication
	KindNotFound
	KindRejected
	KindServer
	KindNetworkTimeout
	KindNetwork
)

var kindNames = map[Kind]string{
	KindUnknown:        "Unknown",
	KindValidation:     "ValidationError",
	KindAuthentication: "AuthenticationError",
	KindNotFound:       "NotFoundError",
	KindRejected:       "RejectedError",
	KindServer:         "ServerError",
	KindNetworkTimeout: "NetworkTimeout",
	KindNetwork:        "NetworkError",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var kindSentinels = map[Kind]error{
	KindValidation:     ErrValidation,
	KindAuthentication: ErrUnauthorized,
	KindNotFound:       ErrNotFound,
	KindRejected:       ErrRejected,
	KindServer:         ErrServer,
	KindNetworkTimeout: ErrTimeout,
	KindNetwork:        ErrUnavailable,
}

// Error is a classified failure of a client operation.
//
// Op names the operation ("login", "get product"), Status is the HTTP status
// when a response arrived (0 otherwise), Detail is the server supplied
// message or the validation message, and Err is the underlying cause.
type Error struct {
	Kind   Kind
	Op     string
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel error of the same kind.
func (e *Error) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// NewValidationError builds a KindValidation error with a user-facing message.
func NewValidationError(op, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Detail: msg}
}

// KindOf returns the Kind of err, or KindUnknown if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message renders err for display: the server or validation detail when
// present, otherwise fallback.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Detail != "" {
		return e.Detail
	}
	return fallback
}
