package ports

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/hms-project/hmsctl/internal/domain"
)

// KeyValueStore is durable string storage. Get returns domain.ErrKeyNotFound for absent keys.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
}

// Mutation is a group of writes applied together.
type Mutation struct {
	Set    map[string]string
	Remove []string
}

func (m Mutation) Empty() bool {
	return len(m.Set) == 0 && len(m.Remove) == 0
}

// BatchKeyValueStore applies a Mutation as a single all-or-nothing write.
type BatchKeyValueStore interface {
	KeyValueStore
	Apply(ctx context.Context, mutation Mutation) error
}

type priorValue struct {
	key     string
	value   string
	present bool
}

// ApplyInOrder writes a mutation one key at a time on a store without batch support: sets in key
// order, then removals. When a write fails the keys already written are restored to their prior values.
func ApplyInOrder(ctx context.Context, store KeyValueStore, mutation Mutation) error {
	setKeys := make([]string, 0, len(mutation.Set))
	for key := range mutation.Set {
		setKeys = append(setKeys, key)
	}
	sort.Strings(setKeys)

	prior := make(map[string]priorValue, len(setKeys)+len(mutation.Remove))
	for _, key := range slices.Concat(setKeys, mutation.Remove) {
		if _, seen := prior[key]; seen {
			continue
		}
		value, err := store.Get(ctx, key)
		switch {
		case err == nil:
			prior[key] = priorValue{key: key, value: value, present: true}
		case errors.Is(err, domain.ErrKeyNotFound):
			prior[key] = priorValue{key: key}
		default:
			return fmt.Errorf("read %q before write: %w", key, err)
		}
	}

	var written []priorValue
	for _, key := range setKeys {
		if err := store.Set(ctx, key, mutation.Set[key]); err != nil {
			return rollbackAfter(ctx, store, written, fmt.Errorf("set %q: %w", key, err))
		}
		written = append(written, prior[key])
	}
	for _, key := range mutation.Remove {
		if err := store.Remove(ctx, key); err != nil && !errors.Is(err, domain.ErrKeyNotFound) {
			return rollbackAfter(ctx, store, written, fmt.Errorf("remove %q: %w", key, err))
		}
		written = append(written, prior[key])
	}

	return nil
}

func rollbackAfter(ctx context.Context, store KeyValueStore, written []priorValue, cause error) error {
	var rollbackErr error
	for i := len(written) - 1; i >= 0; i-- {
		previous := written[i]
		var err error
		if previous.present {
			err = store.Set(ctx, previous.key, previous.value)
		} else {
			err = store.Remove(ctx, previous.key)
			if errors.Is(err, domain.ErrKeyNotFound) {
				err = nil
			}
		}
		if err != nil {
			rollbackErr = errors.Join(rollbackErr, fmt.Errorf("restore %q: %w", previous.key, err))
		}
	}

	if rollbackErr != nil {
		return fmt.Errorf("apply mutation and roll back earlier writes: %w", errors.Join(cause, rollbackErr))
	}
	return fmt.Errorf("apply mutation: %w", cause)
}
