package cache

import (
	"context"
	"time"
)

// Cache is the subset of Redis the service relies on: plain string keys
// plus a token-guarded lock.
type Cache interface {
	BasicOps
	LockOps

	Ping(ctx context.Context) error
	Close() error
}

// BasicOps defines basic key-value operations
type BasicOps interface {
	// Get returns "" with a nil error when the key does not exist
	Get(ctx context.Context, key string) (string, error)

	// Set stores a key-value pair; ttl 0 means no expiry
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// SetNX sets the value only if the key does not exist
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)

	Del(ctx context.Context, keys ...string) error

	// TTL returns -2 if the key does not exist, -1 if it has no expiry
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// LockOps defines a simple owner-token lock.
type LockOps interface {
	// TryLock acquires key for token; false means someone else holds it
	TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)

	// Unlock releases key only while it is still held by token
	Unlock(ctx context.Context, key, token string) error
}
