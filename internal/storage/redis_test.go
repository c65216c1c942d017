package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisStore instance
func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client), mr
}

func TestRedisStore_Get(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("storefront:token", "abc"))

	v, err := store.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(v))
}

func TestRedisStore_GetMissing(t *testing.T) {
	store, _ := setupTestRedis(t)

	v, err := store.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, v)
}

func TestRedisStore_SetWithoutTTL(t *testing.T) {
	store, mr := setupTestRedis(t)

	require.NoError(t, store.Set(context.Background(), "cart", []byte(`[]`)))

	stored, err := mr.Get("storefront:cart")
	require.NoError(t, err)
	assert.Equal(t, `[]`, stored)
	assert.Equal(t, time.Duration(0), mr.TTL("storefront:cart"))
}

func TestRedisStore_SetWithTTL(t *testing.T) {
	store, mr := setupTestRedis(t)

	require.NoError(t, store.WithTTL(time.Hour).Set(context.Background(), "cart", []byte(`[]`)))
	assert.Equal(t, time.Hour, mr.TTL("storefront:cart"))
}

func TestRedisStore_Delete(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("storefront:token", "abc"))
	assert.True(t, mr.Exists("storefront:token"))

	require.NoError(t, store.Delete(ctx, "token"))
	assert.False(t, mr.Exists("storefront:token"))

	// deleting a missing key is not an error
	assert.NoError(t, store.Delete(ctx, "token"))
}

func TestRedisStore_ServerDown(t *testing.T) {
	store, mr := setupTestRedis(t)
	mr.Close()

	_, err := store.Get(context.Background(), "token")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, "redis get failed")
}
