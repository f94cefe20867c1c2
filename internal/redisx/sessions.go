package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/restaurant-orders/internal/auth"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

// Sessions maps opaque bearer tokens to principals.
type Sessions struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessions(rdb *redis.Client, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = TTLSession
	}
	return &Sessions{rdb: rdb, ttl: ttl}
}

func (s *Sessions) TTL() time.Duration { return s.ttl }

func (s *Sessions) Issue(ctx context.Context, p auth.Principal) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	token := uuid.NewString()
	if err := s.rdb.Set(ctx, fmt.Sprintf(KeySession, token), b, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Resolve returns ErrSessionNotFound for unknown or expired tokens.
func (s *Sessions) Resolve(ctx context.Context, token string) (auth.Principal, error) {
	b, err := s.rdb.Get(ctx, fmt.Sprintf(KeySession, token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return auth.Principal{}, ErrSessionNotFound
	}
	if err != nil {
		return auth.Principal{}, fmt.Errorf("load session: %w", err)
	}
	var p auth.Principal
	if err := json.Unmarshal(b, &p); err != nil {
		return auth.Principal{}, fmt.Errorf("decode session: %w", err)
	}
	return p, nil
}

func (s *Sessions) Revoke(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, fmt.Sprintf(KeySession, token)).Err()
}
