package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hms-project/hmsctl/internal/domain"
)

func TestStoreRejectsInvalidKeys(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	testCases := []struct {
		name    string
		key     string
		wantErr string
	}{
		{name: "empty", key: "", wantErr: "state key is empty"},
		{name: "whitespace", key: "   ", wantErr: "state key is empty"},
		{name: "absolute", key: "/absolute/path", wantErr: "invalid state key"},
		{name: "traversal", key: "../escape", wantErr: "invalid state key"},
		{name: "deep traversal", key: "../../token", wantErr: "invalid state key"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := store.Set(context.Background(), tc.key, "value")
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestStoreSetGetRoundTripAndPermissions(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewStore(root)

	require.NoError(t, store.Set(context.Background(), "ignoredExpiredTaskIds", "[1,2]"))
	require.NoError(t, store.Set(context.Background(), "ignoredExpiredTaskIds", "[1,2,3]"))

	got, err := store.Get(context.Background(), "ignoredExpiredTaskIds")
	require.NoError(t, err)
	assert.Equal(t, "[1,2,3]", got)

	info, err := os.Stat(filepath.Join(root, "ignoredExpiredTaskIds"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(valueFileMode), info.Mode().Perm())

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStoreGetMissingKeyReturnsNotFound(t *testing.T) {
	t.Parallel()

	_, err := NewStore(t.TempDir()).Get(context.Background(), "token")
	require.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestStoreRemoveIsIdempotentWhenKeyMissing(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	require.NoError(t, store.Set(context.Background(), "token", "abc"))

	require.NoError(t, store.Remove(context.Background(), "token"))
	require.NoError(t, store.Remove(context.Background(), "token"))

	_, err := store.Get(context.Background(), "token")
	require.ErrorIs(t, err, domain.ErrKeyNotFound)
}
