package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisSessionKey = "bookshelf:session"

// RedisStore keeps the session in a Redis hash, for setups where the
// client runs on a shared host. No TTL: the session lives until logout
// or until the backend rejects its token.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore builds a Redis-backed session store.
func NewRedisStore(addr, password string) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
	}
}

func (s *RedisStore) Save(sess Session) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return s.client.HSet(ctx, redisSessionKey,
		keyUser, sess.Username,
		keyToken, sess.Token,
		keyUserID, sess.UserID,
	).Err()
}

func (s *RedisStore) Load() (Session, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	fields, err := s.client.HGetAll(ctx, redisSessionKey).Result()
	if err != nil {
		return Session{}, err
	}
	return Session{
		UserID:   fields[keyUserID],
		Username: fields[keyUser],
		Token:    fields[keyToken],
	}, nil
}

func (s *RedisStore) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.client.Del(ctx, redisSessionKey).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}
