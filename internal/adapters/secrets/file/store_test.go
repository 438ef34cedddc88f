package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/essencia-app/essencia-cli/internal/domain"
)

func TestPutGetRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "access_token", "tok-1"))

	got, err := store.Get(ctx, "access_token")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got)

	require.NoError(t, store.Put(ctx, "access_token", "tok-2"))
	got, err = store.Get(ctx, "access_token")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", got)
}

func TestGetMissingKeyReturnsNotFound(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())

	_, err := store.Get(context.Background(), "refresh_token")
	require.ErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "access_token", "tok-1"))
	require.NoError(t, store.Delete(ctx, "access_token"))
	require.NoError(t, store.Delete(ctx, "access_token"))

	_, err := store.Get(ctx, "access_token")
	require.ErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestTokenFilesArePrivate(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "tokens")
	store := NewStore(root)
	require.NoError(t, store.Put(context.Background(), "access_token", "tok-1"))

	dirInfo, err := os.Stat(root)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())

	fileInfo, err := os.Stat(filepath.Join(root, "access_token"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fileInfo.Mode().Perm())
}

func TestRejectsKeysThatEscapeTheStore(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	ctx := context.Background()

	for _, key := range []string{"", "  ", ".", "..", "../outside", "nested/key"} {
		assert.Error(t, store.Put(ctx, key, "v"), "key %q", key)
	}
}

func TestPutHonorsCancelledContext(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, store.Put(ctx, "access_token", "tok-1"), context.Canceled)
}
