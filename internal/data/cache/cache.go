package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"kb-engine/internal/config"
	"kb-engine/pkg/logging"
)

// Store wraps one redis client. Unlike a global client map, every consumer is
// handed its own constructed Store so the process owns the lifecycle.
type Store struct {
	client *redis.Client
	logger *logging.Logger
}

func New(client *redis.Client) *Store {
	return &Store{
		client: client,
		logger: logging.New("Cache Store"),
	}
}

// Dial connects and pings. A nil Store (redis offline) is a valid degraded
// handle for the rotator; callers decide whether offline is fatal.
func Dial(ctx context.Context, addr string, db int) *Store {
	logger := logging.New("Cache Store")
	if addr == "" {
		addr = config.Getenv("REDIS_ADDR", config.RedisAddr)
	}
	client := redis.NewClient(&redis.Options{
		Addr:                  addr,
		Password:              config.Getenv("REDIS_PASSWORD", ""),
		DB:                    db,
		ContextTimeoutEnabled: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Error("Redis is offline: ", "error", err.Error())
		return nil
	}

	logger.Info("Redis connected", "addr", addr, "db", db)
	return &Store{client: client, logger: logger}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.client.Set(ctx, key, value, expiration).Err()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// Incr returns the counter value after incrementing and refreshes its TTL.
func (s *Store) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	val, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		s.logger.Warn("could not refresh counter ttl", "key", key, "error", err)
	}
	return val, nil
}

// DelPattern removes every key matching the glob pattern. SCAN, not KEYS, so
// a large keyspace does not stall the server.
func (s *Store) DelPattern(ctx context.Context, pattern string) error {
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	count, err := s.client.Exists(ctx, key).Result()
	return count > 0, err
}

func (s *Store) IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
