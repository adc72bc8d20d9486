package kvstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisWithClient(client, "test")
}

func TestRedis_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestRedis(t)

	require.NoError(t, store.Set(ctx, "session", []byte(`{"user":"u1"}`)))

	got, err := store.Get(ctx, "session")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"user":"u1"}`), got)

	require.NoError(t, store.Delete(ctx, "session"))
	_, err = store.Get(ctx, "session")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedis_KeysAreNamespaced(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisWithClient(client, "geotask")
	require.NoError(t, store.Set(ctx, "session", []byte("blob")))

	raw, err := mr.Get("geotask:session")
	require.NoError(t, err)
	assert.Equal(t, "blob", raw)
}

func TestRedis_GetMissing(t *testing.T) {
	store := newTestRedis(t)
	_, err := store.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrNotFound)
}
