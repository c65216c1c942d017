package session

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrForbidden        = errors.New("role not permitted")
)

type State int

const (
	StateInitializing State = iota
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "INITIALIZING"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateAnonymous:
		return "ANONYMOUS"
	default:
		return "UNKNOWN"
	}
}

// TokenStore is the persisted credential the manager reads and writes.
type TokenStore interface {
	Get() (string, bool)
	Set(token string)
	Clear()
}

// Snapshot is the derived session state observed by callers.
type Snapshot struct {
	Authenticated bool
	Role          string
	Loading       bool
}

// Event describes a login or logout transition.
type Event struct {
	Authenticated bool
	Previous      Identity
	Current       Identity
}

// SubjectChanged reports whether the transition changed who is logged in.
func (e Event) SubjectChanged() bool {
	return e.Previous.Subject != e.Current.Subject
}

type Manager struct {
	mu        sync.RWMutex
	tokens    TokenStore
	tables    Tables
	state     State
	identity  Identity
	listeners []func(Event)
	logger    *slog.Logger
}

type Option func(*Manager)

func WithTables(t Tables) Option {
	return func(m *Manager) {
		if len(t.Role) > 0 {
			m.tables.Role = t.Role
		}
		if len(t.Subject) > 0 {
			m.tables.Subject = t.Subject
		}
		if len(t.Name) > 0 {
			m.tables.Name = t.Name
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager reads the token store once and settles into Authenticated or
// Anonymous before returning, so callers never observe Initializing.
func NewManager(tokens TokenStore, opts ...Option) *Manager {
	m := &Manager{
		tokens: tokens,
		tables: DefaultTables(),
		state:  StateInitializing,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if tok, ok := tokens.Get(); ok {
		m.state = StateAuthenticated
		m.identity = NewIdentity(tok, m.tables)
	} else {
		m.state = StateAnonymous
	}
	return m
}

// OnChange registers fn to run after every login or logout.
func (m *Manager) OnChange(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Login stores token and marks the session authenticated. The signature is not
// checked; a token that does not decode gives an authenticated session without
// a role. An empty token ends the session instead.
func (m *Manager) Login(token string) {
	if strings.TrimSpace(token) == "" {
		m.Logout()
		return
	}
	m.tokens.Set(token)
	m.transition(StateAuthenticated, NewIdentity(token, m.tables))
}

// LoginAs behaves like Login but only accepts a credential asserting role.
// On mismatch nothing is stored and the session state is unchanged.
func (m *Manager) LoginAs(token, role string) error {
	if strings.TrimSpace(token) == "" {
		return ErrNotAuthenticated
	}
	id := NewIdentity(token, m.tables)
	if role != "" && id.Role != role {
		m.logger.Info("login rejected by role gate",
			slog.String("required_role", role),
			slog.String("token_role", id.Role),
		)
		return ErrForbidden
	}
	m.tokens.Set(token)
	m.transition(StateAuthenticated, id)
	return nil
}

func (m *Manager) Logout() {
	m.tokens.Clear()
	m.transition(StateAnonymous, Identity{})
}

func (m *Manager) transition(next State, id Identity) {
	m.mu.Lock()
	prev := m.identity
	m.state = next
	m.identity = id
	listeners := make([]func(Event), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	m.logger.Debug("session transition",
		slog.String("state", next.String()),
		slog.String("role", id.Role),
	)

	ev := Event{Authenticated: next == StateAuthenticated, Previous: prev, Current: id}
	for _, fn := range listeners {
		fn(ev)
	}
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		Authenticated: m.state == StateAuthenticated,
		Role:          m.identity.Role,
		Loading:       m.state == StateInitializing,
	}
}

func (m *Manager) IsAuthenticated() bool {
	return m.State() == StateAuthenticated
}

func (m *Manager) Identity() Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identity
}

// HasRole is false for anonymous sessions and for sessions without a role.
func (m *Manager) HasRole(role string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateAuthenticated && m.identity.Role != "" && m.identity.Role == role
}

// RequireRole gates an operation on the current session's role.
func (m *Manager) RequireRole(role string) error {
	if !m.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	if !m.HasRole(role) {
		return ErrForbidden
	}
	return nil
}
