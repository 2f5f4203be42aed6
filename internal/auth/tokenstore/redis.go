package tokenstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "refresh:"

// RedisStore keeps the allow-set in Redis so sessions survive process
// restarts and are shared across replicas.
type RedisStore struct {
	rdb *redis.Client
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisStore(cfg RedisConfig) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Add(ctx context.Context, tokenHash string, ttl time.Duration) error {
	return s.rdb.Set(ctx, keyPrefix+tokenHash, "1", ttl).Err()
}

func (s *RedisStore) Has(ctx context.Context, tokenHash string) (bool, error) {
	n, err := s.rdb.Exists(ctx, keyPrefix+tokenHash).Result()

	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (s *RedisStore) Remove(ctx context.Context, tokenHash string) error {
	return s.rdb.Del(ctx, keyPrefix+tokenHash).Err()
}

func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.rdb.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()

	for iter.Next(ctx) {
		if err := s.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}

	return iter.Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
