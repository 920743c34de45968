package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/dairy-portal/internal/config"
	"github.com/spec-kit/dairy-portal/internal/storage"
)

const redisDialTimeout = 3 * time.Second

var errRedisNotConfigured = errors.New("redis client not configured")

// Redis owns the go-redis client shared by every session namespace.
type Redis struct {
	Client *redis.Client
	addr   string
}

// NewRedis connects to Redis. An unreachable server is logged, not fatal:
// session restores then degrade to empty sessions until it comes back.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: redisDialTimeout,
	})
	r := &Redis{Client: client, addr: cfg.Addr}

	pingCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := r.Ping(pingCtx); err != nil {
		logger.Warn("unable to reach redis", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	}
	return r
}

// Namespaces returns the per-session key areas stored under prefix.
func (r *Redis) Namespaces(prefix string, ttl time.Duration) *storage.RedisStore {
	return storage.NewRedisStore(r.Client, prefix, ttl)
}

// Addr reports the configured server address.
func (r *Redis) Addr() string {
	if r == nil {
		return ""
	}
	return r.addr
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errRedisNotConfigured
	}
	return r.Client.Ping(ctx).Err()
}
