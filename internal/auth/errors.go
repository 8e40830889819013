package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an authentication failure.
type Kind string

const (
	KindInvalidCredentials Kind = "invalid_credentials"
	KindDuplicateIdentity  Kind = "duplicate_identity"
	KindTransportFailure   Kind = "transport_failure"
	KindConcurrentRequest  Kind = "concurrent_request"
	KindCanceled           Kind = "canceled"
)

// Display messages used when the service gives no structured message.
const (
	MessageNetwork    = "Unable to reach the store. Check your connection and try again."
	MessageMalformed  = "The store sent an unexpected response. Please try again."
	MessageConcurrent = "A sign-in request is already in progress."
	MessageCanceled   = "Request canceled by logout."
)

// Error is the typed failure stored on a failed Session and returned by the
// Manager. Message is safe to show to the user as is.
type Error struct {
	Op      Op
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "auth error"
	}
	if e.Op == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind, so errors.Is(err, ErrConcurrentRequest)
// works for any op.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil || e == nil {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Status == 0
}

// Sentinels for errors.Is.
var (
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "invalid credentials"}
	ErrDuplicateIdentity  = &Error{Kind: KindDuplicateIdentity, Message: "identity already exists"}
	ErrTransportFailure   = &Error{Kind: KindTransportFailure, Message: "transport failure"}
	ErrConcurrentRequest  = &Error{Kind: KindConcurrentRequest, Message: MessageConcurrent}
	ErrCanceled           = &Error{Kind: KindCanceled, Message: MessageCanceled}
)

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// DisplayMessage returns the text to show a user for err. Manager errors
// carry their own message; anything else falls back to err.Error().
func DisplayMessage(err error) string {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return err.Error()
}

// ResponseError is implemented by transport errors that carry an HTTP
// response from the credential service.
type ResponseError interface {
	error
	StatusCode() int
	ServiceMessage() string
}

// ErrMalformedResponse marks a 2xx response that could not be used.
var ErrMalformedResponse = errors.New("malformed response")

// classify converts any failure from a Service into an *Error.
func classify(op Op, err error) *Error {
	if err == nil {
		return nil
	}

	var ae *Error
	if errors.As(err, &ae) {
		out := *ae
		if out.Op == "" {
			out.Op = op
		}
		return &out
	}

	var re ResponseError
	if errors.As(err, &re) {
		status := re.StatusCode()
		msg := re.ServiceMessage()
		if msg == "" {
			msg = fmt.Sprintf("Request failed with status code %d", status)
		}
		return &Error{Op: op, Kind: kindForStatus(op, status), Status: status, Message: msg, Err: err}
	}

	if errors.Is(err, ErrMalformedResponse) {
		return &Error{Op: op, Kind: KindTransportFailure, Message: MessageMalformed, Err: err}
	}

	// Covers dial failures, timeouts and context cancellation.
	if errors.Is(err, context.Canceled) {
		return &Error{Op: op, Kind: KindTransportFailure, Message: "Request canceled.", Err: err}
	}
	return &Error{Op: op, Kind: KindTransportFailure, Message: MessageNetwork, Err: err}
}

func kindForStatus(op Op, status int) Kind {
	switch op {
	case OpRegister:
		switch status {
		case http.StatusBadRequest, http.StatusConflict:
			return KindDuplicateIdentity
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusUnprocessableEntity:
			return KindInvalidCredentials
		}
	default:
		switch status {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
			http.StatusNotFound, http.StatusUnprocessableEntity:
			return KindInvalidCredentials
		}
	}
	return KindTransportFailure
}
