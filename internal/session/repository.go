package session

import (
	"context"
	"sync"
	"time"
)

// Repository persists sessions between requests. The memory
// implementation serves a single portal instance; the Redis one lets
// several instances share sessions. Find returns a private copy of
// the record, so concurrent requests for the same session never touch
// the same struct; only the Store pointer is shared, and it locks
// internally.
type Repository interface {
	Save(ctx context.Context, s *Session) error
	Find(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// MemoryRepository keeps sessions in process memory.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[string]*Session)}
}

// Save stores or replaces a session. The record is copied on the way
// in, so the caller keeps exclusive ownership of its struct.
func (r *MemoryRepository) Save(_ context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *s
	r.sessions[s.ID] = &stored
	return nil
}

// Find returns a copy of the session or nil when unknown. Expiry is
// the manager's concern, not the repository's.
func (r *MemoryRepository) Find(_ context.Context, id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	found := *s
	return &found, nil
}

// Delete removes a session; deleting an unknown ID is a no-op.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

// sweep drops sessions past their deadline.
func (r *MemoryRepository) sweep(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.Expired(now) {
			delete(r.sessions, id)
		}
	}
}

// StartSweep launches a background goroutine that periodically removes
// expired sessions. It stops when ctx is done.
func (r *MemoryRepository) StartSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				r.sweep(now)
			}
		}
	}()
}
