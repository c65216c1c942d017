package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestSQLite(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storefront.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s, _ := setupTestSQLite(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "cart")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "cart", []byte(`[{"id":1}]`)))
	v, err := s.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, string(v))

	// overwrite
	require.NoError(t, s.Set(ctx, "cart", []byte(`[]`)))
	v, err = s.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(v))

	require.NoError(t, s.Delete(ctx, "cart"))
	_, err = s.Get(ctx, "cart")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	s, path := setupTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "token", []byte("jwt")))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	v, err := reopened.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "jwt", string(v))
}

func TestSQLiteStore_MigrationsAreIdempotent(t *testing.T) {
	s, _ := setupTestSQLite(t)
	assert.NoError(t, s.RunMigrations())
}
