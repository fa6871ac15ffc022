// Package store defines the byte-store abstraction boundcache uses for
// entries that live outside the bounded core: an overflow target for
// eviction victims, or a read-through source for GetOrLoad.
//
// Implementations must be safe for concurrent use and byte-for-byte
// transparent: Get must return exactly the []byte previously passed to Set
// for the same key, with no added metadata and no re-encoding. In-process
// stores (Ristretto, BigCache) are suitable as overflow targets; remote
// stores (Redis) should only back the read-through path, where blocking is
// the caller's problem.
package store

import (
	"context"
	"time"
)

// Store is a minimal byte store with TTLs.
type Store interface {
	// Get returns (value, true, nil) on hit and (nil, false, nil) on miss.
	// IO/remote failures return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL (ttl <= 0 means no expiry).
	// Implementations may ignore cost. Returns ok=false when the write was
	// rejected under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
