package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/chazu/roomcraft/pkg/snapshot"
	"github.com/go-redis/redis/v8"
)

// RedisStore keeps snapshots as JSON strings under prefix+key.
type RedisStore struct {
	c      *redis.Client
	prefix string
}

// NewRedisStore wraps an existing client.
func NewRedisStore(c *redis.Client, prefix string) *RedisStore {
	return &RedisStore{c: c, prefix: prefix}
}

// Ping checks the connection.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.c.Ping(ctx).Err()
}

// Save stores the snapshot without expiry.
func (r *RedisStore) Save(ctx context.Context, key string, s snapshot.Snapshot) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := snapshot.Encode(s)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return r.c.Set(ctx, r.prefix+key, data, 0).Err()
}

// Load reads the snapshot stored under key.
func (r *RedisStore) Load(ctx context.Context, key string) (snapshot.Snapshot, error) {
	if err := checkKey(key); err != nil {
		return snapshot.Snapshot{}, err
	}
	data, err := r.c.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return snapshot.Snapshot{}, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	return decode(key, data)
}

// List scans for keys under the prefix.
func (r *RedisStore) List(ctx context.Context) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := r.c.Scan(ctx, cursor, r.prefix+"*", 200).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range batch {
			keys = append(keys, strings.TrimPrefix(k, r.prefix))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes key.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return r.c.Del(ctx, r.prefix+key).Err()
}

// Close closes the client.
func (r *RedisStore) Close() error {
	return r.c.Close()
}
