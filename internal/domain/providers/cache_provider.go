package providers

import (
	"context"
	"errors"
)

// ErrCacheMiss is returned by Get when the key is absent or expired
var ErrCacheMiss = errors.New("cache miss")

// CacheProvider defines the interface for short-lived key/value storage
type CacheProvider interface {
	// Get retrieves a value; a missing key yields an error wrapping ErrCacheMiss
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with expiration, replacing any previous value
	Set(ctx context.Context, key string, value []byte, expirationSeconds int) error

	// Delete removes a value
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists
	Exists(ctx context.Context, key string) (bool, error)
}
