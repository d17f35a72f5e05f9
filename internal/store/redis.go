package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisTokenKey     = "showpass:auth_token"
	redisPrincipalKey = "showpass:auth_user"
)

// RedisStore keeps credentials in Redis; used by kiosk fleets where a
// device's local disk is wiped between sessions.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Save(ctx context.Context, token string, principal []byte) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisTokenKey, token, 0)
	pipe.Set(ctx, redisPrincipalKey, principal, 0)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Load(ctx context.Context) (string, []byte, error) {
	token, err := s.client.Get(ctx, redisTokenKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil, ErrNotFound
		}
		return "", nil, err
	}
	principal, err := s.client.Get(ctx, redisPrincipalKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil, ErrNotFound
		}
		return "", nil, err
	}
	if token == "" || len(principal) == 0 {
		return "", nil, ErrNotFound
	}
	return token, principal, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, redisTokenKey, redisPrincipalKey).Err()
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
