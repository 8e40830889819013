package auth

import "fmt"

// EventType identifies a session transition.
type EventType int

const (
	// EventRequested starts a login or register request.
	EventRequested EventType = iota
	// EventSucceeded resolves the in-flight request with a grant.
	EventSucceeded
	// EventFailed resolves the in-flight request with an error.
	EventFailed
	// EventLoggedOut clears the session from any state.
	EventLoggedOut
	// EventRestored loads a persisted credential without a request.
	EventRestored
)

func (t EventType) String() string {
	switch t {
	case EventRequested:
		return "requested"
	case EventSucceeded:
		return "succeeded"
	case EventFailed:
		return "failed"
	case EventLoggedOut:
		return "logged_out"
	case EventRestored:
		return "restored"
	default:
		return fmt.Sprintf("event(%d)", int(t))
	}
}

// Event is an input to Transition.
type Event struct {
	Type  EventType
	Op    Op
	Grant Grant
	Err   *Error
}

// Transition computes the session that follows s after e. It is pure: s is
// never modified. An illegal transition returns s unchanged with an error;
// a request while pending returns an *Error of KindConcurrentRequest.
func Transition(s Session, e Event) (Session, error) {
	switch e.Type {
	case EventRequested:
		if s.Status == StatusPending {
			return s, &Error{Op: e.Op, Kind: KindConcurrentRequest, Message: MessageConcurrent}
		}
		if e.Op != OpLogin && e.Op != OpRegister {
			return s, fmt.Errorf("auth: unknown op %q", e.Op)
		}
		next := s.clone()
		next.Status = StatusPending
		next.Err = nil
		next.op = e.Op
		return next, nil

	case EventSucceeded:
		if s.Status != StatusPending {
			return s, fmt.Errorf("auth: %s while %s", e.Type, statusOrIdle(s.Status))
		}
		if e.Grant.User.Name == "" || e.Grant.Token == "" {
			return s, fmt.Errorf("auth: %s without user and token", e.Type)
		}
		u := e.Grant.User
		return Session{User: &u, Token: e.Grant.Token, Status: StatusSucceeded}, nil

	case EventFailed:
		if s.Status != StatusPending {
			return s, fmt.Errorf("auth: %s while %s", e.Type, statusOrIdle(s.Status))
		}
		err := e.Err
		if err == nil {
			err = &Error{Op: s.op, Kind: KindTransportFailure, Message: MessageNetwork}
		}
		return Session{Status: StatusFailed, Err: err}, nil

	case EventLoggedOut:
		return Session{Status: StatusIdle}, nil

	case EventRestored:
		if s.Status == StatusPending {
			return s, fmt.Errorf("auth: %s while %s", e.Type, s.Status)
		}
		if e.Grant.User.Name == "" || e.Grant.Token == "" {
			return s, fmt.Errorf("auth: %s without user and token", e.Type)
		}
		u := e.Grant.User
		return Session{User: &u, Token: e.Grant.Token, Status: StatusSucceeded}, nil
	}
	return s, fmt.Errorf("auth: unknown event %s", e.Type)
}

func statusOrIdle(s Status) Status {
	if s == "" {
		return StatusIdle
	}
	return s
}
