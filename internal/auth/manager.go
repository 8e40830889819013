package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Service is the remote credential service.
type Service interface {
	Login(ctx context.Context, c Credentials) (Grant, error)
	Register(ctx context.Context, u NewUser) (Grant, error)
}

// Observer receives every session transition, in order.
type Observer func(Session)

// Options configures a Manager.
type Options struct {
	Logger logrus.FieldLogger
	// MaxAge bounds how old a persisted credential may be for Restore to
	// accept it. Zero accepts any age.
	MaxAge time.Duration
	Now    func() time.Time
}

type subscriber struct {
	id int
	fn Observer
}

// Manager owns the Session and is its only writer.
//
// Observers run serialized, outside the state lock, and must not call
// Login, Register, Logout or Restore synchronously.
type Manager struct {
	service Service
	store   Store
	log     logrus.FieldLogger
	maxAge  time.Duration
	now     func() time.Time

	mu      sync.Mutex
	session Session
	gen     uint64
	subs    []subscriber
	nextSub int

	notifyMu sync.Mutex
}

// NewManager creates a Manager in the idle state.
func NewManager(service Service, store Store, opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		service: service,
		store:   store,
		log:     log.WithField("component", "session"),
		maxAge:  opts.MaxAge,
		now:     now,
		session: Session{Status: StatusIdle},
	}
}

// Session returns a snapshot of the current session.
func (m *Manager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.clone()
}

// Token returns the current bearer token, or "" when not authenticated.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.session.Authenticated() {
		return ""
	}
	return m.session.Token
}

// Subscribe registers fn for future transitions and returns a function that
// removes it.
func (m *Manager) Subscribe(fn Observer) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSub++
	id := m.nextSub
	m.subs = append(m.subs, subscriber{id: id, fn: fn})
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

// Login authenticates with the credential service. The returned error is
// nil on success and an *Error otherwise; the returned Session always
// reflects the manager's state after the call.
func (m *Manager) Login(ctx context.Context, c Credentials) (Session, error) {
	gen, cur, err := m.begin(OpLogin)
	if err != nil {
		return cur, err
	}
	m.log.WithField("op", OpLogin).Debug("request started")
	grant, err := m.service.Login(ctx, c)
	return m.finish(OpLogin, gen, grant, err)
}

// Register creates an account and signs in with it.
func (m *Manager) Register(ctx context.Context, u NewUser) (Session, error) {
	gen, cur, err := m.begin(OpRegister)
	if err != nil {
		return cur, err
	}
	m.log.WithFields(logrus.Fields{"op": OpRegister, "role": u.Role}).Debug("request started")
	grant, err := m.service.Register(ctx, u)
	return m.finish(OpRegister, gen, grant, err)
}

// Logout clears the session and the persisted credential. It never fails;
// a store error is logged. Logging out an empty idle session does nothing.
func (m *Manager) Logout(ctx context.Context) Session {
	m.mu.Lock()
	if m.session.Empty() {
		m.mu.Unlock()
		return Session{Status: StatusIdle}
	}
	if m.session.Pending() {
		// The in-flight result is dropped when it arrives.
		m.gen++
	}
	next, _ := Transition(m.session, Event{Type: EventLoggedOut})
	m.session = next
	if err := m.store.Delete(ctx, CredentialKey); err != nil {
		m.log.WithError(err).Warn("deleting persisted credential")
	}
	m.log.Info("logged out")
	m.publishAndUnlock(next)
	return next
}

// Restore loads a persisted credential into the session without contacting
// the credential service. A missing credential leaves the session idle; a
// corrupt or expired one is deleted. Only store read failures are returned.
func (m *Manager) Restore(ctx context.Context) (Session, error) {
	m.mu.Lock()
	if m.session.Pending() {
		cur := m.session.clone()
		m.mu.Unlock()
		return cur, &Error{Kind: KindConcurrentRequest, Message: MessageConcurrent}
	}

	data, err := m.store.Get(ctx, CredentialKey)
	if errors.Is(err, ErrNotFound) {
		cur := m.session.clone()
		m.mu.Unlock()
		return cur, nil
	}
	if err != nil {
		cur := m.session.clone()
		m.mu.Unlock()
		return cur, fmt.Errorf("reading credential: %w", err)
	}

	grant, err := decodeCredential(data, m.now(), m.maxAge)
	if err != nil {
		m.log.WithError(err).Warn("discarding persisted credential")
		if derr := m.store.Delete(ctx, CredentialKey); derr != nil {
			m.log.WithError(derr).Warn("deleting persisted credential")
		}
		cur := m.session.clone()
		m.mu.Unlock()
		return cur, nil
	}

	next, err := Transition(m.session, Event{Type: EventRestored, Grant: grant})
	if err != nil {
		cur := m.session.clone()
		m.mu.Unlock()
		return cur, err
	}
	m.session = next
	m.log.WithField("user", grant.User.Name).Info("session restored")
	m.publishAndUnlock(next)
	return next.clone(), nil
}

// begin moves the session to pending and publishes it. It returns the
// generation the request belongs to.
func (m *Manager) begin(op Op) (uint64, Session, error) {
	m.mu.Lock()
	next, err := Transition(m.session, Event{Type: EventRequested, Op: op})
	if err != nil {
		cur := m.session.clone()
		m.mu.Unlock()
		m.log.WithField("op", op).Warn("rejected request while another is pending")
		return 0, cur, err
	}
	m.session = next
	gen := m.gen
	m.publishAndUnlock(next)
	return gen, next.clone(), nil
}

// finish applies exactly one terminal transition for the request started
// in generation gen, unless a logout happened in between.
func (m *Manager) finish(op Op, gen uint64, grant Grant, callErr error) (Session, error) {
	var aerr *Error
	switch {
	case callErr != nil:
		aerr = classify(op, callErr)
	case grant.User.Name == "" || grant.Token == "":
		aerr = classify(op, fmt.Errorf("%w: missing user or token", ErrMalformedResponse))
	}

	m.mu.Lock()
	if gen != m.gen || !m.session.Pending() {
		cur := m.session.clone()
		m.mu.Unlock()
		m.log.WithField("op", op).Info("dropping result of request canceled by logout")
		canceled := &Error{Op: op, Kind: KindCanceled, Message: MessageCanceled}
		if aerr != nil {
			canceled.Err = aerr
		}
		return cur, canceled
	}

	if aerr != nil {
		next, _ := Transition(m.session, Event{Type: EventFailed, Op: op, Err: aerr})
		m.session = next
		if err := m.forget(); err != nil {
			m.log.WithError(err).Warn("deleting persisted credential")
		}
		m.log.WithFields(logrus.Fields{
			"op":     op,
			"kind":   aerr.Kind,
			"status": aerr.Status,
		}).WithError(aerr.Err).Warn("request failed")
		m.publishAndUnlock(next)
		return next.clone(), aerr
	}

	next, _ := Transition(m.session, Event{Type: EventSucceeded, Op: op, Grant: grant})
	m.session = next
	if err := m.persist(grant); err != nil {
		m.log.WithError(err).Warn("persisting credential")
	}
	m.log.WithFields(logrus.Fields{"op": op, "user": grant.User.Name}).Info("request succeeded")
	m.publishAndUnlock(next)
	return next.clone(), nil
}

func (m *Manager) persist(g Grant) error {
	data, err := encodeCredential(g.User, g.Token, m.now())
	if err != nil {
		return err
	}
	// Persistence must not be cut short by the request's context.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.store.Put(ctx, CredentialKey, data)
}

// forget removes the persisted credential. A failed request leaves no
// identity behind for a later Restore.
func (m *Manager) forget() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.store.Delete(ctx, CredentialKey); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// publishAndUnlock is called with m.mu held. It releases m.mu and delivers s
// to every observer while holding notifyMu, so deliveries keep the order of
// the transitions.
func (m *Manager) publishAndUnlock(s Session) {
	subs := make([]subscriber, len(m.subs))
	copy(subs, m.subs)
	m.notifyMu.Lock()
	m.mu.Unlock()
	defer m.notifyMu.Unlock()
	for _, sub := range subs {
		sub.fn(s.clone())
	}
}
