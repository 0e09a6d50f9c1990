// Package session holds the client-side record of who is using the
// portal: an in-memory store per visitor, a manager that tracks the
// sessions of all visitors, and the reconciliation that re-validates
// restored sessions against the backend.
package session

import "sync"

// Identity is the subset of a user's profile the portal personalizes
// pages with.
type Identity struct {
	ID          string
	FullName    string
	Username    string
	Email       string
	PhoneNumber string
	Gender      string
}

// Store is the single source of truth for one visitor's identity. It
// performs no I/O and cannot fail; persistence and re-validation live
// in Manager. Writes happen only through Login and Logout so the
// identity can never outlive the authenticated flag.
type Store struct {
	mu            sync.RWMutex
	authenticated bool
	identity      *Identity
}

// NewStore returns an empty, logged-out store.
func NewStore() *Store {
	return &Store{}
}

// Login records a fully resolved identity. Every Current call after
// Login returns observes the new identity.
func (s *Store) Login(id Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = true
	s.identity = &id
}

// Logout clears the store unconditionally. Calling it on an already
// logged-out store is a no-op.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = false
	s.identity = nil
}

// Current returns the identity and whether one is present.
func (s *Store) Current() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

// Authenticated reports whether a login has happened. It can be true
// while Current still reports absent: a restored session is
// authenticated but its identity is loading until reconciliation.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// resume marks the store authenticated without an identity. Used only
// when a persisted session is restored and the profile fetch is still
// pending.
func (s *Store) resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = true
}
