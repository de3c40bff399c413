package chain

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/hms-project/hmsctl/internal/domain"
	"github.com/hms-project/hmsctl/internal/ports"
)

// Store reads and writes the primary backend and falls back to the secondary one when the primary fails.
// Every key written to the primary is cleared from the fallback so a stale fallback copy cannot come back.
type Store struct {
	primary  ports.KeyValueStore
	fallback ports.KeyValueStore
}

var _ ports.BatchKeyValueStore = (*Store)(nil)

var (
	errNilPrimaryStore  = errors.New("primary state store is nil")
	errNilFallbackStore = errors.New("fallback state store is nil")
)

func NewStore(primary ports.KeyValueStore, fallback ports.KeyValueStore) *Store {
	store, err := NewStoreChecked(primary, fallback)
	if err != nil {
		panic(err)
	}

	return store
}

func NewStoreChecked(primary ports.KeyValueStore, fallback ports.KeyValueStore) (*Store, error) {
	if primary == nil {
		return nil, errNilPrimaryStore
	}
	if fallback == nil {
		return nil, errNilFallbackStore
	}

	return &Store{primary: primary, fallback: fallback}, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.primary.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if shouldSkipFallback(err) {
		return "", err
	}

	fallbackValue, fallbackErr := s.fallback.Get(ctx, key)
	if fallbackErr == nil {
		return fallbackValue, nil
	}
	if errors.Is(err, domain.ErrKeyNotFound) && errors.Is(fallbackErr, domain.ErrKeyNotFound) {
		return "", fallbackErr
	}

	return "", fmt.Errorf("primary backend get failed: %w; fallback backend get failed: %w", err, fallbackErr)
}

func (s *Store) Set(ctx context.Context, key string, value string) error {
	return s.Apply(ctx, ports.Mutation{Set: map[string]string{key: value}})
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return s.Apply(ctx, ports.Mutation{Remove: []string{key}})
}

func (s *Store) Apply(ctx context.Context, mutation ports.Mutation) error {
	if mutation.Empty() {
		return nil
	}

	err := apply(ctx, s.primary, mutation)
	if err != nil && shouldSkipFallback(err) {
		return err
	}

	if err == nil {
		// The fallback may hold copies written while the primary was down.
		s.clearFallback(ctx, touchedKeys(mutation))
		return nil
	}

	fallbackErr := apply(ctx, s.fallback, mutation)
	if fallbackErr == nil {
		return nil
	}

	return fmt.Errorf("primary backend write failed: %w; fallback backend write failed: %w", err, fallbackErr)
}

func apply(ctx context.Context, store ports.KeyValueStore, mutation ports.Mutation) error {
	if batch, ok := store.(ports.BatchKeyValueStore); ok {
		return batch.Apply(ctx, mutation)
	}

	return ports.ApplyInOrder(ctx, store, mutation)
}

// clearFallback is best effort: a key missing from the fallback must not keep the others there.
func (s *Store) clearFallback(ctx context.Context, keys []string) {
	if batch, ok := s.fallback.(ports.BatchKeyValueStore); ok {
		if err := batch.Apply(ctx, ports.Mutation{Remove: keys}); err == nil {
			return
		}
	}
	for _, key := range keys {
		_ = s.fallback.Remove(ctx, key)
	}
}

func touchedKeys(mutation ports.Mutation) []string {
	keys := make([]string, 0, len(mutation.Set)+len(mutation.Remove))
	for key := range mutation.Set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return append(keys, mutation.Remove...)
}

func shouldSkipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
