package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/dairy-portal/internal/config"
)

func TestRedisNamespacesShareClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	r := NewRedis(context.Background(), config.RedisConfig{Addr: mr.Addr()}, zap.NewNop())
	t.Cleanup(r.Close)
	require.NoError(t, r.Ping(context.Background()))
	assert.Equal(t, mr.Addr(), r.Addr())

	ns := r.Namespaces("portal", time.Hour).Namespace("sid-1")
	require.NoError(t, ns.Set(context.Background(), "token", "tok"))

	assert.True(t, mr.Exists("portal:ns:sid-1:token"))
	assert.Equal(t, time.Hour, mr.TTL("portal:ns:sid-1:token"))
}

func TestRedisUnreachableIsNotFatal(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	core, logs := observer.New(zap.WarnLevel)
	r := NewRedis(context.Background(), config.RedisConfig{Addr: addr}, zap.New(core))
	t.Cleanup(r.Close)

	require.Equal(t, 1, logs.FilterMessage("unable to reach redis").Len())
	assert.Error(t, r.Ping(context.Background()))
}

func TestRedisNotConfigured(t *testing.T) {
	var r *Redis
	assert.ErrorIs(t, r.Ping(context.Background()), errRedisNotConfigured)
	assert.Empty(t, r.Addr())
	r.Close()
}
