package application

import (
	"context"
	"fmt"

	"github.com/hms-project/hmsctl/internal/ports"
)

// applyMutation uses the store's batch write when it has one and falls back to ordered single writes
// that roll back on failure.
func applyMutation(ctx context.Context, store ports.KeyValueStore, mutation ports.Mutation) error {
	if mutation.Empty() {
		return nil
	}

	if batch, ok := store.(ports.BatchKeyValueStore); ok {
		if err := batch.Apply(ctx, mutation); err != nil {
			return fmt.Errorf("apply batch: %w", err)
		}
		return nil
	}

	return ports.ApplyInOrder(ctx, store, mutation)
}
