// Package kvstore wraps the shared key-value store used for idempotency
// keys, WebSocket presence, and offline reminder queues. All three concerns
// are call sites over the same client, not three separate stores.
package kvstore

import (
	"context"
	"time"
)

// Store is the minimal primitive set every call site needs.
type Store interface {
	// Get returns the stored value and whether the key existed.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// ListAppend appends value to the list stored at key, creating it if absent.
	ListAppend(ctx context.Context, key, value string) error
	// ListDrain returns every element of the list at key, in append order,
	// and deletes the key. Returns an empty slice if the key did not exist.
	ListDrain(ctx context.Context, key string) ([]string, error)
}
