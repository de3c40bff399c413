package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hms-project/hmsctl/internal/domain"
	"github.com/hms-project/hmsctl/internal/ports"
)

const (
	DefaultPrefix = "hms:"
	pingTimeout   = 5 * time.Second
)

// Store keeps state keys in a shared Redis so several clients can use one session.
type Store struct {
	client *redis.Client
	prefix string
}

var _ ports.BatchKeyValueStore = (*Store)(nil)

// NewStore connects to redisURL and checks the connection before returning.
func NewStore(ctx context.Context, redisURL string, prefix string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewStoreWithClient(client, prefix), nil
}

func NewStoreWithClient(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(name string) string {
	return s.prefix + name
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("value %q: %w", key, domain.ErrKeyNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get value %q: %w", key, err)
	}

	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("set value %q: %w", key, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("remove value %q: %w", key, err)
	}
	return nil
}

// Apply sends the mutation as one MULTI/EXEC transaction.
func (s *Store) Apply(ctx context.Context, mutation ports.Mutation) error {
	if mutation.Empty() {
		return nil
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range mutation.Set {
			pipe.Set(ctx, s.key(key), value, 0)
		}
		if len(mutation.Remove) > 0 {
			keys := make([]string, 0, len(mutation.Remove))
			for _, key := range mutation.Remove {
				keys = append(keys, s.key(key))
			}
			pipe.Del(ctx, keys...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply mutation: %w", err)
	}

	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
