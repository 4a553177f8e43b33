// Package auth holds the client-local authentication state. The order
// core only touches it in one place: a 401 response clears it.
package auth

import "sync"

// State is a process-wide token holder. Zero value is ready to use.
type State struct {
	mu    sync.Mutex
	token string
}

// SetToken replaces the stored bearer token.
func (s *State) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Token returns the stored bearer token, empty when unauthenticated.
func (s *State) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Clear drops the stored token. Safe to call repeatedly.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

// Authenticated reports whether a token is present.
func (s *State) Authenticated() bool {
	return s.Token() != ""
}
