// Package storage provides the durable per-browser key/value namespace the
// portal persists session state and view caches into.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("storage: key not found")

// Namespace is a flat key/value area owned by one browser session.
type Namespace interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Clear removes every key in the namespace, not only the session keys.
	Clear(ctx context.Context) error
}

// Provider hands out namespaces by session id.
type Provider interface {
	Namespace(id string) Namespace
}
