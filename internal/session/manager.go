package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/communication-ltd/portal/internal/gateway"
	"github.com/communication-ltd/portal/pkg/logger"
)

const (
	defaultTTL         = 30 * time.Minute
	defaultRememberTTL = 30 * 24 * time.Hour
)

// Session is one visitor's server-side session: an opaque ID (the only
// thing that reaches the browser), the backend bearer token, and the
// visitor's identity store. Each request gets its own copy from the
// repository; Store is the only field shared between requests.
type Session struct {
	ID         string
	Token      string
	RememberMe bool
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Store      *Store
}

// Expired reports whether the session has passed its deadline.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Manager tracks the sessions of all visitors and owns their
// lifecycle: creation after login, sliding expiry, reconciliation of
// restored sessions, and destruction on logout or token expiry.
type Manager struct {
	repo        Repository
	backend     *gateway.Client
	log         *logger.Logger
	ttl         time.Duration
	rememberTTL time.Duration
}

// ManagerConfig configures a Manager. Zero TTLs get defaults.
type ManagerConfig struct {
	Repository  Repository
	Backend     *gateway.Client
	Logger      *logger.Logger
	TTL         time.Duration
	RememberTTL time.Duration
}

// NewManager creates a session manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Repository == nil {
		return nil, fmt.Errorf("session: repository is required")
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("session: backend client is required")
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	rememberTTL := cfg.RememberTTL
	if rememberTTL <= 0 {
		rememberTTL = defaultRememberTTL
	}
	return &Manager{
		repo:        cfg.Repository,
		backend:     cfg.Backend,
		log:         log.Component("session"),
		ttl:         ttl,
		rememberTTL: rememberTTL,
	}, nil
}

// Create starts a session for a freshly issued bearer token. When the
// caller already has the identity (login responses carry the user ID
// but not the profile), it can follow up with Reconcile.
func (m *Manager) Create(ctx context.Context, token string, remember bool) (*Session, error) {
	if token == "" {
		return nil, fmt.Errorf("session: token is required")
	}
	now := time.Now()
	s := &Session{
		ID:         uuid.New().String(),
		Token:      token,
		RememberMe: remember,
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.lifetime(remember)),
		Store:      NewStore(),
	}
	s.Store.resume()
	if err := m.repo.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("session: save: %w", err)
	}
	return s, nil
}

// Get returns the live session for id, refreshing its sliding expiry.
// A missing or expired session comes back as (nil, nil).
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, nil
	}
	s, err := m.repo.Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("session: find: %w", err)
	}
	if s == nil {
		return nil, nil
	}
	now := time.Now()
	if s.Expired(now) {
		if err := m.repo.Delete(ctx, id); err != nil {
			m.log.WithError(err).WithField("session_id", id).Warn("deleting expired session failed")
		}
		return nil, nil
	}
	s.ExpiresAt = now.Add(m.lifetime(s.RememberMe))
	if err := m.repo.Save(ctx, s); err != nil {
		m.log.WithError(err).WithField("session_id", id).Warn("refreshing session expiry failed")
	}
	return s, nil
}

// Reconcile makes a restored session's identity trustworthy: it
// fetches the profile from the backend and fills the store. A 401 or
// 403 means the token no longer stands, so the session is destroyed
// and the caller must treat the visitor as logged out. Connectivity
// and server failures keep the session; the identity stays pending.
func (m *Manager) Reconcile(ctx context.Context, s *Session) error {
	if _, ok := s.Store.Current(); ok {
		return nil
	}
	details, err := m.backend.UserDetails(ctx, s.Token)
	if err != nil {
		if gateway.IsSessionInvalid(err) {
			m.log.WithFields(map[string]interface{}{
				"session_id": s.ID,
			}).Info("backend rejected restored session, logging out")
			m.Invalidate(ctx, s)
		}
		return err
	}
	s.Store.Login(Identity{
		ID:          details.ID,
		FullName:    details.FullName,
		Username:    details.Username,
		Email:       details.Email,
		PhoneNumber: details.PhoneNumber,
		Gender:      details.Gender,
	})
	if err := m.repo.Save(ctx, s); err != nil {
		m.log.WithError(err).WithField("session_id", s.ID).Warn("persisting reconciled session failed")
	}
	return nil
}

// Logout ends the session on both sides. The backend call is
// best-effort: the local session dies regardless.
func (m *Manager) Logout(ctx context.Context, s *Session) {
	if _, err := m.backend.Logout(ctx, s.Token); err != nil {
		m.log.WithError(err).WithField("session_id", s.ID).Warn("backend logout failed")
	}
	m.Invalidate(ctx, s)
}

// Invalidate destroys the local session without contacting the
// backend. Used when the backend already rejected the token.
func (m *Manager) Invalidate(ctx context.Context, s *Session) {
	s.Store.Logout()
	if err := m.repo.Delete(ctx, s.ID); err != nil {
		m.log.WithError(err).WithField("session_id", s.ID).Warn("deleting session failed")
	}
}

func (m *Manager) lifetime(remember bool) time.Duration {
	if remember {
		return m.rememberTTL
	}
	return m.ttl
}
