package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"regportal/internal/util"
	"regportal/pkg/domain"
)

// RedisSessionStore keeps sessions in Redis with a TTL, so expiry needs no
// sweeper: the key simply disappears.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisSessionStore builds a Redis-backed session store.
func NewRedisSessionStore(addr, password string, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		ttl:    ttl,
		prefix: "regportal:session:",
	}
}

// NewSession writes a token -> session mapping with TTL.
func (s *RedisSessionStore) NewSession(userID, email string) (string, error) {
	token := util.NewID()
	payload, err := json.Marshal(domain.Session{UserID: userID, Email: email})
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.client.Set(ctx, s.prefix+token, payload, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// GetSession resolves a token to its session. An expired or unknown token
// reports absence, not an error.
func (s *RedisSessionStore) GetSession(token string) (domain.Session, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	val, err := s.client.Get(ctx, s.prefix+token).Bytes()
	if err == redis.Nil {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, err
	}
	var sess domain.Session
	if err := json.Unmarshal(val, &sess); err != nil {
		return domain.Session{}, false, fmt.Errorf("decode session: %w", err)
	}
	return sess, true, nil
}

// DeleteSession removes a token mapping.
func (s *RedisSessionStore) DeleteSession(token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.client.Del(ctx, s.prefix+token).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}
