// Package session holds the authenticated user's identity and bearer token.
// The session spans login to logout and supplies the token to every backend
// call.
package session

import (
	"sync"

	"github.com/google/uuid"
)

// Session holds the current authentication token and user identity. A
// Session is safe for concurrent use.
type Session struct {
	mu          sync.RWMutex
	id          string
	token       string
	userID      string
	displayName string
	active      bool
	onExpire    func()
}

// New creates an unauthenticated session
func New() *Session {
	return &Session{}
}

// Login installs a freshly issued token and identity. Token issuance itself
// happens against the backend's auth endpoints and is not the engine's
// concern; the session only keeps the result.
func (s *Session) Login(token, userID, displayName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.id = uuid.NewString()
	s.token = token
	s.userID = userID
	s.displayName = displayName
	s.active = true
}

// Token returns the bearer token, or empty when unauthenticated
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// UserID returns the authenticated user's id, or empty when unauthenticated
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// DisplayName returns the authenticated user's display name
func (s *Session) DisplayName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.displayName
}

// ID returns the session id assigned at login
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Authenticated reports whether the session is live
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SetOnExpire installs the hook invoked when the session terminates. The
// hook fires at most once per login and routes the caller back to
// re-authentication.
func (s *Session) SetOnExpire(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpire = fn
}

// Expire terminates the session. Called when the backend rejects the token;
// idempotent.
func (s *Session) Expire() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.token = ""
	hook := s.onExpire
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// Logout terminates the session and clears the identity
func (s *Session) Logout() {
	s.Expire()

	s.mu.Lock()
	s.userID = ""
	s.displayName = ""
	s.id = ""
	s.mu.Unlock()
}
