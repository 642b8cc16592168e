package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "vrsleep/session-identity", "AGE-SECRET-KEY-1TEST"))

	value, err := store.Get(ctx, "vrsleep/session-identity")
	require.NoError(t, err)
	assert.Equal(t, "AGE-SECRET-KEY-1TEST", value)

	require.NoError(t, store.Delete(ctx, "vrsleep/session-identity"))
	_, err = store.Get(ctx, "vrsleep/session-identity")
	require.Error(t, err)
}

func TestFileStoreSecretFileMode(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(root)
	require.NoError(t, store.Put(context.Background(), "k", "v"))

	info, err := os.Stat(filepath.Join(root, "k"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	store := NewFileStore(t.TempDir())
	ctx := context.Background()

	require.Error(t, store.Put(ctx, "../outside", "v"))
	require.Error(t, store.Put(ctx, "/etc/passwd", "v"))
	require.Error(t, store.Put(ctx, "  ", "v"))
	require.Error(t, store.Put(ctx, ".", "v"))
}

func TestFileStoreDeleteMissingIsIdempotent(t *testing.T) {
	store := NewFileStore(t.TempDir())
	require.NoError(t, store.Delete(context.Background(), "never-written"))
}

type failingStore struct {
	err error
}

func (s failingStore) Put(context.Context, string, string) error { return s.err }
func (s failingStore) Get(context.Context, string) (string, error) {
	return "", s.err
}
func (s failingStore) Delete(context.Context, string) error { return s.err }

func TestChainFallsBackWhenPrimaryFails(t *testing.T) {
	fallback := NewFileStore(t.TempDir())
	chain, err := NewChain(failingStore{err: errors.New("pass unavailable")}, fallback)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, chain.Put(ctx, "k", "v"))

	value, err := chain.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)

	require.NoError(t, chain.Delete(ctx, "k"))
}

func TestChainSkipsFallbackOnContextCancellation(t *testing.T) {
	fallback := NewFileStore(t.TempDir())
	chain, err := NewChain(failingStore{err: context.Canceled}, fallback)
	require.NoError(t, err)

	err = chain.Put(context.Background(), "k", "v")
	require.ErrorIs(t, err, context.Canceled)

	// the fallback was never consulted
	_, err = fallback.Get(context.Background(), "k")
	require.Error(t, err)
}

func TestChainReportsBothFailures(t *testing.T) {
	chain, err := NewChain(failingStore{err: errors.New("primary down")}, failingStore{err: errors.New("fallback down")})
	require.NoError(t, err)

	_, err = chain.Get(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary")
	assert.Contains(t, err.Error(), "fallback")
}

func TestNewChainRequiresBothStores(t *testing.T) {
	_, err := NewChain(nil, NewFileStore(t.TempDir()))
	require.Error(t, err)
	_, err = NewChain(NewFileStore(t.TempDir()), nil)
	require.Error(t, err)
}
