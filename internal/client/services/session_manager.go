package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/client/nav"
	"github.com/dmitrijs2005/storefront/internal/client/session"
	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/logging"
)

const (
	MsgLoginFailed        = "Login failed"
	MsgRegistrationFailed = "Registration failed"
)

// State is a snapshot of the authentication state. User is set only when
// Status is Authenticated; Err and Message only when it is AuthFailed.
type State struct {
	Status  nav.Status
	User    *models.User
	Loading bool
	Err     error
	Message string
}

// SessionManager owns the process-wide authentication state.
//
// Every transition runs to completion under mu; network calls never run
// under it. gen increases on every transition; the startup revalidation
// applies its result only if gen has not moved since it was dispatched.
type SessionManager struct {
	auth AuthService
	log  logging.Logger
	now  func() time.Time

	mu       sync.Mutex
	state    State
	gen      uint64
	restored *session.Session
	subs     map[int]func(State)
	nextSub  int

	wg sync.WaitGroup
}

type ManagerOption func(*SessionManager)

func WithClock(now func() time.Time) ManagerOption {
	return func(m *SessionManager) { m.now = now }
}

func WithManagerLogger(l logging.Logger) ManagerOption {
	return func(m *SessionManager) { m.log = l }
}

// NewSessionManager peeks at the stored session: the initial status is
// Restoring when one exists, Anonymous otherwise.
func NewSessionManager(ctx context.Context, auth AuthService, opts ...ManagerOption) *SessionManager {
	m := &SessionManager{
		auth:  auth,
		log:   logging.NewNop(),
		now:   time.Now,
		state: State{Status: nav.Anonymous},
		subs:  map[int]func(State){},
	}
	for _, o := range opts {
		o(m)
	}

	s, err := auth.Restore(ctx)
	switch {
	case err == nil:
		m.restored = s
		m.state = State{Status: nav.Restoring}
	case !errors.Is(err, session.ErrNoSession):
		m.log.Error(ctx, "failed to read stored session", "error", err)
	}
	return m
}

// State returns the current snapshot.
func (m *SessionManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe calls fn after every transition. The returned func unsubscribes.
func (m *SessionManager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Start applies the stored session optimistically and revalidates it with
// the server in the background. It never blocks on the network. An expired
// token is discarded without a round trip.
func (m *SessionManager) Start(ctx context.Context) {
	m.mu.Lock()
	s := m.restored
	m.restored = nil

	if s == nil {
		if m.state.Status == nav.Restoring {
			m.setLocked(State{Status: nav.Anonymous})
		}
		m.mu.Unlock()
		m.notify()
		return
	}

	if s.Expired(m.now()) {
		m.log.Info(ctx, "stored session expired, signing out", "user", s.User.Username)
		if err := m.auth.Logout(ctx); err != nil {
			m.log.Error(ctx, "failed to clear expired session", "error", err)
		}
		m.setLocked(State{Status: nav.Anonymous})
		m.mu.Unlock()
		m.notify()
		return
	}

	user := s.User
	gen := m.setLocked(State{Status: nav.Authenticated, User: &user})
	m.mu.Unlock()
	m.notify()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.revalidate(ctx, gen)
	}()
}

func (m *SessionManager) revalidate(ctx context.Context, gen uint64) {
	_, err := m.auth.Me(ctx)
	if err != nil && ctx.Err() != nil {
		m.log.Debug(ctx, "session revalidation cancelled", "error", err)
		return
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		m.log.Debug(ctx, "discarding stale session revalidation", "error", err)
		return
	}
	if err == nil {
		m.mu.Unlock()
		return
	}

	m.log.Info(ctx, "stored session rejected, signing out", "error", err)
	if cerr := m.auth.Logout(ctx); cerr != nil {
		m.log.Error(ctx, "failed to clear rejected session", "error", cerr)
	}
	m.setLocked(State{Status: nav.Anonymous})
	m.mu.Unlock()
	m.notify()
}

// Wait blocks until the background revalidation, if any, has finished.
func (m *SessionManager) Wait() {
	m.wg.Wait()
}

// Login authenticates and persists the session. On failure the state is
// AuthFailed and the error is returned. A stored session is left alone;
// only a 401 clears it.
func (m *SessionManager) Login(ctx context.Context, username, password string) (*models.User, error) {
	creds := models.Credentials{Username: username, Password: password}
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	m.begin()
	return m.login(ctx, creds, MsgLoginFailed)
}

// Register creates the account and then logs in with the same credentials.
// A failed login does not undo the registration.
func (m *SessionManager) Register(ctx context.Context, reg models.Registration) (*models.User, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	m.begin()
	if _, err := m.auth.Register(ctx, reg); err != nil {
		m.fail(err, MsgRegistrationFailed)
		return nil, err
	}
	return m.login(ctx, reg.Credentials(), MsgRegistrationFailed)
}

func (m *SessionManager) login(ctx context.Context, creds models.Credentials, fallback string) (*models.User, error) {
	user, err := m.auth.Login(ctx, creds)
	if err != nil {
		m.fail(err, fallback)
		return nil, err
	}

	m.mu.Lock()
	m.setLocked(State{Status: nav.Authenticated, User: user})
	m.mu.Unlock()
	m.notify()
	return user, nil
}

// Logout clears the stored session and any error. It makes no network call.
func (m *SessionManager) Logout(ctx context.Context) error {
	m.mu.Lock()
	err := m.auth.Logout(ctx)
	m.setLocked(State{Status: nav.Anonymous})
	m.mu.Unlock()
	m.notify()
	return err
}

// HandleUnauthorized is subscribed to the transport's 401 policy, which has
// already cleared the store.
func (m *SessionManager) HandleUnauthorized(ctx context.Context) {
	m.mu.Lock()
	loading := m.state.Loading
	m.setLocked(State{Status: nav.Anonymous, Loading: loading})
	m.mu.Unlock()
	m.log.Debug(ctx, "session ended by server")
	m.notify()
}

func (m *SessionManager) begin() {
	m.mu.Lock()
	next := m.state
	next.Loading = true
	next.Err = nil
	next.Message = ""
	m.setLocked(next)
	m.mu.Unlock()
	m.notify()
}

func (m *SessionManager) fail(err error, fallback string) {
	m.mu.Lock()
	m.setLocked(State{Status: nav.AuthFailed, Err: err, Message: common.Message(err, fallback)})
	m.mu.Unlock()
	m.notify()
}

// setLocked replaces the state and returns the new generation.
func (m *SessionManager) setLocked(s State) uint64 {
	m.gen++
	m.state = s
	return m.gen
}

func (m *SessionManager) notify() {
	m.mu.Lock()
	st := m.state
	subs := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}
