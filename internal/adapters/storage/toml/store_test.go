package toml

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hms-project/hmsctl/internal/domain"
	"github.com/hms-project/hmsctl/internal/ports"
)

func newTestStore(t *testing.T, statePath string) *Store {
	t.Helper()

	config := viper.New()
	config.Set("storage.path", statePath)

	store, err := NewStore(config)
	require.NoError(t, err)
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t, filepath.Join(t.TempDir(), "state.toml"))

	require.NoError(t, store.Set(ctx, "token", "abc"))
	require.NoError(t, store.Set(ctx, "role", "患者"))

	got, err := store.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	require.NoError(t, store.Remove(ctx, "token"))
	_, err = store.Get(ctx, "token")
	require.ErrorIs(t, err, domain.ErrKeyNotFound)

	got, err = store.Get(ctx, "role")
	require.NoError(t, err)
	assert.Equal(t, "患者", got)
}

func TestStoreApplyWritesMutationOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	statePath := filepath.Join(t.TempDir(), "state.toml")
	store := newTestStore(t, statePath)
	require.NoError(t, store.Set(ctx, "headNurseFlag", "1"))

	err := store.Apply(ctx, ports.Mutation{
		Set:    map[string]string{"token": "abc", "subjectId": "13800000001"},
		Remove: []string{"headNurseFlag", "never-set"},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(statePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "version = 1")
	assert.Contains(t, string(data), "subjectId = '13800000001'")
	assert.NotContains(t, string(data), "headNurseFlag")

	entries, err := os.ReadDir(filepath.Dir(statePath))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStoreMissingFileBehaviors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	statePath := filepath.Join(t.TempDir(), "missing", "state.toml")
	store := newTestStore(t, statePath)

	_, err := store.Get(ctx, "token")
	require.ErrorIs(t, err, domain.ErrKeyNotFound)

	require.NoError(t, store.Remove(ctx, "token"))
	_, err = os.Stat(statePath)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestStoreCreatesDefaultPathAndEnforcesPermissions(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)

	store, err := NewStore(viper.New())
	require.NoError(t, err)

	require.NoError(t, store.Set(context.Background(), "token", "abc"))

	statePath := filepath.Join(homeDir, ".hms", "state.toml")
	assert.Equal(t, statePath, store.Path())
	info, err := os.Stat(statePath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStoreMalformedTOMLReturnsError(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	require.NoError(t, os.WriteFile(statePath, []byte("entries = ["), 0o600))

	_, err := newTestStore(t, statePath).Get(context.Background(), "token")
	require.Error(t, err)
	assert.ErrorContains(t, err, "decode state file")
}

func TestStoreFutureSchemaVersionReturnsError(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	require.NoError(t, os.WriteFile(statePath, []byte(strings.Join([]string{
		"version = 999",
		"",
		"[entries]",
		"token = 'abc'",
		"",
	}, "\n")), 0o600))

	_, err := newTestStore(t, statePath).Get(context.Background(), "token")
	require.Error(t, err)
	assert.ErrorContains(t, err, "unsupported state schema version")
}

func TestStoreCanceledContextReturnsContextError(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, filepath.Join(t.TempDir(), "state.toml"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Set(ctx, "token", "abc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestStoreConcurrentWritesAcrossInstancesPreserveAllKeys(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	storeA := newTestStore(t, statePath)
	storeB := newTestStore(t, statePath)

	const perStoreWrites = 50
	start := make(chan struct{})
	errCh := make(chan error, perStoreWrites*2)
	var wg sync.WaitGroup
	wg.Add(2)

	write := func(store *Store, prefix string) {
		defer wg.Done()
		<-start
		for i := 0; i < perStoreWrites; i++ {
			errCh <- store.Set(context.Background(), prefix+strconv.Itoa(i), "v")
		}
	}
	go write(storeA, "a-")
	go write(storeB, "b-")

	close(start)
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	data, err := os.ReadFile(statePath)
	require.NoError(t, err)
	for i := 0; i < perStoreWrites; i++ {
		assert.Contains(t, string(data), "a-"+strconv.Itoa(i)+" = 'v'")
		assert.Contains(t, string(data), "b-"+strconv.Itoa(i)+" = 'v'")
	}
}
