package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return NewRedisStore(rdb, "portal", ttl), mr
}

func TestNamespaceGetSetDelete(t *testing.T) {
	store, _ := newTestStore(t, 0)
	ctx := context.Background()
	ns := store.Namespace("sid-1")

	_, err := ns.Get(ctx, "token")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, ns.Set(ctx, "token", "abc"))
	val, err := ns.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "abc", val)

	require.NoError(t, ns.Delete(ctx, "token"))
	_, err = ns.Get(ctx, "token")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNamespaceClearOnlyTouchesOwnKeys(t *testing.T) {
	store, mr := newTestStore(t, 0)
	ctx := context.Background()
	mine := store.Namespace("sid-1")
	other := store.Namespace("sid-2")

	for i := 0; i < 250; i++ {
		require.NoError(t, mine.Set(ctx, fmt.Sprintf("cache:tools:%d", i), "x"))
	}
	require.NoError(t, mine.Set(ctx, "user", "{}"))
	require.NoError(t, other.Set(ctx, "user", "{}"))

	require.NoError(t, mine.Clear(ctx))

	assert.Equal(t, []string{"portal:ns:sid-2:user"}, mr.Keys())

	require.NoError(t, mine.Clear(ctx))
}

func TestNamespaceTTL(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	ctx := context.Background()
	ns := store.Namespace("sid-1")

	require.NoError(t, ns.Set(ctx, "token", "abc"))
	mr.FastForward(2 * time.Hour)

	_, err := ns.Get(ctx, "token")
	assert.ErrorIs(t, err, ErrNotFound)
}
