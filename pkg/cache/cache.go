// Package cache stores computed results, such as framework pack selections,
// between runs.
//
// [Cache] is a byte store with per-entry TTLs. [FileCache] persists entries
// under a directory for the CLI and [MemoryCache] keeps a bounded LRU in
// process. A [Keyer] builds the keys so every caller derives the same key
// for the same input.
package cache

import (
	"context"
	"time"
)

// Default TTLs.
const (
	// TTLSelection bounds how long a framework pack selection is reused.
	// Selections only depend on their inputs, which are part of the key.
	TTLSelection = 7 * 24 * time.Hour

	// TTLFeedIndex bounds how long a feed's version list is trusted.
	TTLFeedIndex = 24 * time.Hour
)

// Cache is a key/value byte store.
type Cache interface {
	// Get returns the value for key and whether it was present and fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of 0 never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
