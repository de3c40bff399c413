package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hms-project/hmsctl/internal/domain"
	"github.com/hms-project/hmsctl/internal/ports"
)

func setupTestRedis(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	store, err := NewStore(context.Background(), "redis://"+server.Addr(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store, server
}

func TestNewStoreRejectsBadURL(t *testing.T) {
	t.Parallel()

	_, err := NewStore(context.Background(), "not a url", "")
	require.Error(t, err)
	assert.ErrorContains(t, err, "parse redis url")
}

func TestNewStoreFailsWhenServerIsDown(t *testing.T) {
	t.Parallel()

	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	_, err := NewStore(context.Background(), "redis://"+addr, "")
	require.Error(t, err)
	assert.ErrorContains(t, err, "connect to redis")
}

func TestStoreRoundTripUsesPrefix(t *testing.T) {
	t.Parallel()

	store, server := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "token", "abc"))

	got, err := store.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	raw, err := server.Get("hms:token")
	require.NoError(t, err)
	assert.Equal(t, "abc", raw)

	require.NoError(t, store.Remove(ctx, "token"))
	require.NoError(t, store.Remove(ctx, "token"))

	_, err = store.Get(ctx, "token")
	require.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestStoreApplySetsAndRemovesTogether(t *testing.T) {
	t.Parallel()

	store, server := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, server.Set("hms:headNurseFlag", "1"))

	err := store.Apply(ctx, ports.Mutation{
		Set:    map[string]string{"token": "abc", "role": "护士"},
		Remove: []string{"headNurseFlag"},
	})
	require.NoError(t, err)

	assert.True(t, server.Exists("hms:token"))
	assert.True(t, server.Exists("hms:role"))
	assert.False(t, server.Exists("hms:headNurseFlag"))
}

func TestStoreReportsServerErrors(t *testing.T) {
	t.Parallel()

	store, server := setupTestRedis(t)
	server.SetError("READONLY replica")

	err := store.Set(context.Background(), "token", "abc")
	require.Error(t, err)
	assert.ErrorContains(t, err, "set value")
	assert.NotErrorIs(t, err, domain.ErrKeyNotFound)
}
