// Package store persists room snapshots under string keys.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/roomcraft/pkg/config"
	"github.com/chazu/roomcraft/pkg/snapshot"
	"github.com/go-redis/redis/v8"
)

var (
	// ErrNotFound is returned when no snapshot is stored under a key.
	ErrNotFound = errors.New("store: no snapshot for key")
	// ErrInvalidKey is returned for empty keys or keys with path separators.
	ErrInvalidKey = errors.New("store: invalid key")
)

// Store is the persistence collaborator for exported snapshots.
type Store interface {
	Save(ctx context.Context, key string, s snapshot.Snapshot) error
	Load(ctx context.Context, key string) (snapshot.Snapshot, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// New opens the backend selected by cfg.
func New(cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		return NewFileStore(cfg.Dir)
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return NewRedisStore(client, cfg.Redis.Prefix), nil
	}
	return nil, fmt.Errorf("%w: %q", config.ErrInvalidBackend, cfg.Backend)
}

func checkKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

func decode(key string, data []byte) (snapshot.Snapshot, error) {
	s, err := snapshot.Decode(data)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("snapshot %q: %w", key, err)
	}
	return s, nil
}
