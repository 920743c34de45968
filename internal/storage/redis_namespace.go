package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 100

// RedisStore keeps namespaces as prefixed keys in Redis.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore builds a provider. A zero ttl keeps keys until cleared.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// Namespace returns the area for the given session id.
func (s *RedisStore) Namespace(id string) Namespace {
	return &redisNamespace{store: s, base: fmt.Sprintf("%s:ns:%s:", s.prefix, id)}
}

type redisNamespace struct {
	store *RedisStore
	base  string
}

func (n *redisNamespace) key(k string) string {
	return n.base + k
}

func (n *redisNamespace) Get(ctx context.Context, key string) (string, error) {
	val, err := n.store.client.Get(ctx, n.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (n *redisNamespace) Set(ctx context.Context, key, value string) error {
	return n.store.client.Set(ctx, n.key(key), value, n.store.ttl).Err()
}

func (n *redisNamespace) Delete(ctx context.Context, key string) error {
	return n.store.client.Del(ctx, n.key(key)).Err()
}

func (n *redisNamespace) Clear(ctx context.Context) error {
	iter := n.store.client.Scan(ctx, 0, n.base+"*", scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := n.store.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return n.store.client.Del(ctx, batch...).Err()
	}
	return nil
}
