package client

import (
	"sync"
	"time"

	"github.com/goliatone/go-errors"
)

// SessionState is the lifecycle state of a client session.
type SessionState string

const (
	// SessionAnonymous means no token is held.
	SessionAnonymous SessionState = "anonymous"
	// SessionActive means a token is held and inside the idle window.
	SessionActive SessionState = "active"
	// SessionExpired means the idle window has lapsed; the token is gone but
	// the state is kept so the UI can explain the forced logout.
	SessionExpired SessionState = "expired"
)

const (
	textCodeSessionNotActive         = "SESSION_NOT_ACTIVE"
	textCodeInvalidSessionTransition = "INVALID_SESSION_TRANSITION"
)

// DefaultSessionWindow is how long a session stays usable without a fresh
// login. Intentionally much shorter than the server token validity; the
// server never revokes, so the client enforces its own idle policy.
const DefaultSessionWindow = 30 * time.Minute

// DefaultCheckInterval is how often the watchdog re-evaluates the window.
const DefaultCheckInterval = 60 * time.Second

// ErrSessionNotActive is returned when a token is requested outside the
// Active state.
var ErrSessionNotActive = errors.New("session is not active", errors.CategoryAuth).
	WithTextCode(textCodeSessionNotActive).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidSessionTransition is returned for a disallowed state change.
var ErrInvalidSessionTransition = errors.New("invalid session state transition", errors.CategoryValidation).
	WithTextCode(textCodeInvalidSessionTransition).
	WithCode(errors.CodeBadRequest)

// SessionManagerOption customizes session manager construction.
type SessionManagerOption func(*SessionManager)

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) SessionManagerOption {
	return func(m *SessionManager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithSessionWindow overrides the idle window.
func WithSessionWindow(window time.Duration) SessionManagerOption {
	return func(m *SessionManager) {
		if window > 0 {
			m.window = window
		}
	}
}

// WithCheckInterval overrides how often the watchdog ticks.
func WithCheckInterval(interval time.Duration) SessionManagerOption {
	return func(m *SessionManager) {
		if interval > 0 {
			m.interval = interval
		}
	}
}

// OnExpired registers a hook fired once when the watchdog expires the
// session. Hooks run outside the manager lock.
func OnExpired(hook func()) SessionManagerOption {
	return func(m *SessionManager) {
		if hook != nil {
			m.onExpired = append(m.onExpired, hook)
		}
	}
}

// SessionManager owns the client session lifecycle: it holds the bearer
// token, enforces the idle window, and runs the expiry watchdog. The
// watchdog goroutine is started on Activate and stopped on Logout or expiry;
// it never outlives the session that created it.
type SessionManager struct {
	mu sync.Mutex

	state    SessionState
	token    string
	issuedAt time.Time

	window   time.Duration
	interval time.Duration
	now      func() time.Time

	onExpired []func()

	transitions map[SessionState]map[SessionState]struct{}

	stop chan struct{}
	done chan struct{}
}

// NewSessionManager creates a manager in the Anonymous state.
func NewSessionManager(opts ...SessionManagerOption) *SessionManager {
	m := &SessionManager{
		state:    SessionAnonymous,
		window:   DefaultSessionWindow,
		interval: DefaultCheckInterval,
		now:      time.Now,
		transitions: map[SessionState]map[SessionState]struct{}{
			SessionAnonymous: {
				SessionActive: {},
			},
			SessionActive: {
				SessionExpired:   {},
				SessionAnonymous: {},
			},
			SessionExpired: {
				SessionAnonymous: {},
			},
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// State returns the current lifecycle state.
func (m *SessionManager) State() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked()
	return m.state
}

// Activate installs a fresh token and starts the watchdog. A previous
// session, active or expired, is discarded first.
func (m *SessionManager) Activate(token string) error {
	if token == "" {
		return ErrSessionNotActive
	}

	m.mu.Lock()

	if m.state != SessionAnonymous {
		m.discardLocked()
	}

	if err := m.transitionLocked(SessionActive); err != nil {
		m.mu.Unlock()
		return err
	}

	m.token = token
	m.issuedAt = m.now()

	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.watchdog(m.stop, m.done)

	m.mu.Unlock()
	return nil
}

// Logout discards the token and returns the manager to Anonymous. Safe to
// call from any state.
func (m *SessionManager) Logout() {
	m.mu.Lock()
	if m.state == SessionAnonymous {
		m.mu.Unlock()
		return
	}
	m.discardLocked()
	m.mu.Unlock()
}

// Token returns the bearer token while the session is Active. Once the
// window lapses no token leaves the manager, even between watchdog ticks.
func (m *SessionManager) Token() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expireLocked()

	if m.state != SessionActive {
		return "", ErrSessionNotActive
	}

	return m.token, nil
}

// IssuedAt returns when the current session was activated.
func (m *SessionManager) IssuedAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.issuedAt
}

// Check forces one watchdog evaluation and reports the resulting state.
func (m *SessionManager) Check() SessionState {
	m.mu.Lock()
	expired := m.expireLocked()
	state := m.state
	hooks := m.hooksIfExpired(expired)
	m.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}

	return state
}

func (m *SessionManager) watchdog(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			expired := m.expireLocked()
			hooks := m.hooksIfExpired(expired)
			m.mu.Unlock()

			for _, hook := range hooks {
				hook()
			}

			if expired {
				return
			}
		}
	}
}

// expireLocked moves Active past the window into Expired. Returns true only
// on the tick that performed the transition.
func (m *SessionManager) expireLocked() bool {
	if m.state != SessionActive {
		return false
	}

	if m.now().Sub(m.issuedAt) < m.window {
		return false
	}

	m.token = ""
	m.state = SessionExpired
	m.stopWatchdogLocked()

	return true
}

func (m *SessionManager) hooksIfExpired(expired bool) []func() {
	if !expired {
		return nil
	}
	hooks := make([]func(), len(m.onExpired))
	copy(hooks, m.onExpired)
	return hooks
}

// discardLocked drops the token, stops the watchdog, and lands in Anonymous.
func (m *SessionManager) discardLocked() {
	m.token = ""
	m.issuedAt = time.Time{}
	m.state = SessionAnonymous
	m.stopWatchdogLocked()
}

func (m *SessionManager) stopWatchdogLocked() {
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
}

func (m *SessionManager) transitionLocked(target SessionState) error {
	allowed, ok := m.transitions[m.state]
	if !ok {
		return ErrInvalidSessionTransition.WithMetadata(map[string]any{
			"from": m.state,
			"to":   target,
		})
	}

	if _, ok := allowed[target]; !ok {
		return ErrInvalidSessionTransition.WithMetadata(map[string]any{
			"from": m.state,
			"to":   target,
		})
	}

	m.state = target
	return nil
}

var _ TokenSource = (*SessionManager)(nil)
