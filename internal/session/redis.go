package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"carebridge/internal/apperr"
	"carebridge/internal/model"
)

// RedisStore keeps each session as a JSON value whose key TTL matches the
// session's remaining lifetime.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

type redisSession struct {
	User      model.UserSnapshot `json:"user"`
	CreatedAt time.Time          `json:"created_at"`
	ExpiresAt time.Time          `json:"expires_at"`
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func sessionKey(tokenHash string) string {
	return "session:" + tokenHash
}

func (s *RedisStore) Save(ctx context.Context, sess model.Session) error {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(redisSession{
		User:      sess.User,
		CreatedAt: sess.CreatedAt,
		ExpiresAt: sess.ExpiresAt,
	})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, sessionKey(sess.TokenHash), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, tokenHash string) (model.Session, error) {
	value, err := s.client.Get(ctx, sessionKey(tokenHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Session{}, apperr.ErrNotFound
		}
		return model.Session{}, fmt.Errorf("failed to get session: %w", err)
	}
	var stored redisSession
	if err := json.Unmarshal(value, &stored); err != nil {
		return model.Session{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return model.Session{
		TokenHash: tokenHash,
		User:      stored.User,
		CreatedAt: stored.CreatedAt,
		ExpiresAt: stored.ExpiresAt,
	}, nil
}

func (s *RedisStore) Delete(ctx context.Context, tokenHash string) error {
	if err := s.client.Del(ctx, sessionKey(tokenHash)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
