package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "linkdrop:"
	scanBatch        = 100
)

func init() {
	Register("redis", newRedisStore)
}

// redisStore keeps each entry in its own string key under the configured prefix.
// A TTL is applied with the write, so any Redis or Valkey version works.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger Logger
	prefix string
}

func newRedisStore(cfg ProviderConfig) (Store, error) {
	if cfg.RedisAddress == "" {
		return nil, errors.New("redis store requires an address")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &redisStore{
		client: client,
		ttl:    cfg.TTL,
		logger: cfg.Logger,
		prefix: prefix,
	}, nil
}

func (r *redisStore) key(k string) string {
	return r.prefix + k
}

func (r *redisStore) logError(msg string, err error) {
	if r.logger != nil {
		r.logger.Error(msg, err)
	}
}

func (r *redisStore) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logError("redis store Get failed", err)
		}
		return nil, false
	}
	return val, true
}

func (r *redisStore) Set(key string, value []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// A zero ttl means no expiry
	if err := r.client.Set(ctx, r.key(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis store Set: %w", err)
	}
	return nil
}

func (r *redisStore) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis store Delete: %w", err)
	}
	return nil
}

func (r *redisStore) Contains(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	n, err := r.client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		r.logError("redis store Contains failed", err)
	}
	return err == nil && n > 0
}

func (r *redisStore) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n := 0
	iter := r.client.Scan(ctx, 0, r.prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		r.logError("redis store Len failed", err)
		return 0
	}
	return n
}

func (r *redisStore) Close() error {
	return r.client.Close()
}
