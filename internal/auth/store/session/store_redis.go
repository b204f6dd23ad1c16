package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"adminconsole/internal/auth/models"
	"adminconsole/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix = "console_session:"

	// defaultSessionTTL applies when the session carries no expiry.
	defaultSessionTTL = 30 * 24 * time.Hour

	// refreshGrace keeps an expired record around long enough for the
	// identity client to exchange its refresh token.
	refreshGrace = 7 * 24 * time.Hour
)

// RedisStore persists sessions in Redis so several console instances share
// the same signed-in state.
type RedisStore struct {
	client redis.Cmdable
	now    func() time.Time
}

// NewRedis constructs a Redis-backed session store.
func NewRedis(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) key(key string) string {
	return sessionKeyPrefix + key
}

func (s *RedisStore) ttl(session *models.Session) time.Duration {
	if session.ExpiresAt.IsZero() {
		return defaultSessionTTL
	}
	ttl := session.ExpiresAt.Sub(s.now()) + refreshGrace
	if ttl <= 0 {
		return refreshGrace
	}
	return ttl
}

func (s *RedisStore) Load(ctx context.Context, key string) (*models.Session, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("session %q not found: %w", key, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, session *models.Session) error {
	if session == nil {
		return fmt.Errorf("save nil session: %w", sentinel.ErrInvalidInput)
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(key), data, s.ttl(session)).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}
