package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "portal:session:"

// sessionRecord is the serialized form of a Session. The identity is
// flattened out of the store so the record survives a JSON round trip.
type sessionRecord struct {
	ID         string    `json:"id"`
	Token      string    `json:"token"`
	RememberMe bool      `json:"remember_me"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Identity   *Identity `json:"identity,omitempty"`
}

// RedisRepository stores sessions in Redis so multiple portal
// instances can share them. Keys expire with the session.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository wraps a connected Redis client.
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

// Save stores the session under its ID with a TTL matching its expiry.
func (r *RedisRepository) Save(ctx context.Context, s *Session) error {
	rec := sessionRecord{
		ID:         s.ID,
		Token:      s.Token,
		RememberMe: s.RememberMe,
		CreatedAt:  s.CreatedAt,
		ExpiresAt:  s.ExpiresAt,
	}
	if id, ok := s.Store.Current(); ok {
		rec.Identity = &id
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return r.Delete(ctx, s.ID)
	}
	return r.client.Set(ctx, redisKeyPrefix+s.ID, payload, ttl).Err()
}

// Find loads and rehydrates a session, or returns nil when the key is
// gone.
func (r *RedisRepository) Find(ctx context.Context, id string) (*Session, error) {
	payload, err := r.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec sessionRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	s := &Session{
		ID:         rec.ID,
		Token:      rec.Token,
		RememberMe: rec.RememberMe,
		CreatedAt:  rec.CreatedAt,
		ExpiresAt:  rec.ExpiresAt,
		Store:      NewStore(),
	}
	if rec.Identity != nil {
		s.Store.Login(*rec.Identity)
	} else {
		s.Store.resume()
	}
	return s, nil
}

// Delete removes the session key.
func (r *RedisRepository) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, redisKeyPrefix+id).Err()
}
