package auth

// Status is the phase of the authentication session.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Op names the request that moved a session into pending.
type Op string

const (
	OpLogin    Op = "login"
	OpRegister Op = "register"
)

// User is the identity returned by the credential service.
type User struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// Session is the client's current authentication state. The zero value is
// the idle, anonymous session.
type Session struct {
	User   *User
	Token  string
	Status Status
	Err    *Error

	// op is the request in flight while Status is pending.
	op Op
}

// Authenticated reports whether the session holds a usable credential.
func (s Session) Authenticated() bool {
	return s.Status == StatusSucceeded && s.User != nil && s.Token != ""
}

// Pending reports whether a login or register request is in flight.
func (s Session) Pending() bool {
	return s.Status == StatusPending
}

// InFlight returns the operation being awaited, or "" when nothing is pending.
func (s Session) InFlight() Op {
	if s.Status != StatusPending {
		return ""
	}
	return s.op
}

// Empty reports whether s is the idle session with nothing to clear.
func (s Session) Empty() bool {
	return (s.Status == StatusIdle || s.Status == "") && s.User == nil && s.Token == "" && s.Err == nil
}

// ErrorMessage returns the display text of the last failure, or "".
func (s Session) ErrorMessage() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Message
}

// clone returns a copy that shares nothing mutable with s.
func (s Session) clone() Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// Credentials are the login form fields.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// NewUser is the registration form.
type NewUser struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=Customer Admin Staff"`
}

// Grant is a successful login or register response.
type Grant struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}
