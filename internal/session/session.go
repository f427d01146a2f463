package session

import (
	"errors"
	"sync"

	"bookshelf/pkg/domain"
)

// Session is the locally persisted identity. The three fields are
// all-or-nothing: a session missing any of them reads as anonymous.
type Session struct {
	UserID   string
	Username string
	Token    string
}

// Authenticated reports whether all identity fields are present.
func (s Session) Authenticated() bool {
	return s.UserID != "" && s.Username != "" && s.Token != ""
}

// CanonicalUserID returns the session owner id in canonical form for
// ownership comparisons.
func (s Session) CanonicalUserID() domain.UserID {
	return domain.ParseUserID(s.UserID)
}

// Store persists a session across process restarts.
type Store interface {
	Save(Session) error
	Load() (Session, error)
	Clear() error
}

// Manager owns the process-wide session and is passed explicitly to the
// view controllers. It is only ever written by Login, Logout, and
// InvalidateOn; reads are safe from any goroutine.
type Manager struct {
	store Store

	mu  sync.RWMutex
	cur Session
}

// NewManager wraps a store. Call Restore before first use.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Restore loads the persisted session. A partially persisted state, such
// as a token without a user id, is treated as anonymous; the persisted
// fields are left in place for inspection.
func (m *Manager) Restore() error {
	s, err := m.store.Load()
	if err != nil {
		return err
	}
	if !s.Authenticated() {
		s = Session{}
	}
	m.mu.Lock()
	m.cur = s
	m.mu.Unlock()
	return nil
}

// Login stores the identity and token and persists them. Nothing is
// written when any field is missing, so a failed login can never leave
// partial state behind.
func (m *Manager) Login(id domain.Identity, token string) error {
	s := Session{UserID: id.UserID, Username: id.Username, Token: token}
	if !s.Authenticated() {
		return errors.New("session: login requires user id, username, and token")
	}
	if err := m.store.Save(s); err != nil {
		return err
	}
	m.mu.Lock()
	m.cur = s
	m.mu.Unlock()
	return nil
}

// Logout clears the in-memory session and the backing store, even when
// already anonymous.
func (m *Manager) Logout() error {
	m.mu.Lock()
	m.cur = Session{}
	m.mu.Unlock()
	return m.store.Clear()
}

// Current returns a copy of the session.
func (m *Manager) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur
}

// Token returns the bearer token, empty when anonymous. Authenticated
// calls are still attempted with an empty token; the backend stays the
// authority on rejecting them.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur.Token
}

// UserID returns the canonical session owner id.
func (m *Manager) UserID() domain.UserID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur.CanonicalUserID()
}

// InvalidateOn clears the session when err is an authorization rejection
// from the backend. A dead token would otherwise stay persisted forever.
// Reports whether the session was cleared.
func (m *Manager) InvalidateOn(err error) bool {
	var rejected interface{ Unauthorized() bool }
	if err == nil || !errors.As(err, &rejected) || !rejected.Unauthorized() {
		return false
	}
	_ = m.Logout()
	return true
}
