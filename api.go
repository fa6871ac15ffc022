package boundcache

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/boundcache/codec"
	st "github.com/unkn0wn-root/boundcache/store"
)

// SizeFunc estimates the in-memory byte footprint of a value. It must be
// deterministic: structurally equal values yield equal sizes. Return ok=false
// when the value cannot be sized; the cache then charges FallbackValueBytes.
type SizeFunc[V any] func(value V) (bytes int64, ok bool)

// LoaderFunc produces the value for a missing key in GetOrLoad. It runs
// outside the cache lock and may block; cancellation is the caller's job via
// ctx. Return ok=false for "no value" without error.
type LoaderFunc[V any] func(ctx context.Context, key string) (value V, ok bool, err error)

// Cache is a bounded in-process cache for values of type V.
// All methods are safe for concurrent use.
type Cache[V any] interface {
	// Set stores value under key with the configured default TTL.
	Set(key string, value V) error
	// SetWithTTL stores value under key. ttl > 0 sets an absolute deadline;
	// ttl <= 0 means the entry never expires.
	SetWithTTL(key string, value V, ttl time.Duration) error

	// Get returns the live value for key. Expired entries are removed on
	// access and reported as a miss.
	Get(key string) (V, bool)
	// Has reports whether a live entry exists without refreshing recency
	// or touching hit/miss counters. Expired entries are still removed.
	Has(key string) bool
	// Delete removes key. Reports whether a live entry was removed.
	Delete(key string) bool
	// Clear removes every entry and pending expiry.
	Clear()

	// GetOrLoad returns the cached value, or the overflow store's copy, or
	// the loader's result (stored on success). load runs outside the cache
	// lock: racing callers on the same missing key may each invoke it, and
	// the last write wins. A loader error leaves the key absent so a later
	// call can retry.
	GetOrLoad(ctx context.Context, key string, load LoaderFunc[V]) (V, bool, error)

	// Preload bulk-inserts entries with a shared TTL (same semantics as
	// SetWithTTL per entry).
	Preload(entries map[string]V, ttl time.Duration) error
	// Export snapshots all non-expired entries.
	Export() map[string]Exported[V]

	// Stats returns a snapshot of the running counters and derived rates.
	Stats() Stats
	// DetailedInfo returns up to limit entry views ranked by access count
	// descending. limit <= 0 applies DefaultDetailLimit.
	DetailedInfo(limit int) []EntryView
	// TopEntries returns the n most-accessed keys. n <= 0 applies
	// DefaultTopN.
	TopEntries(n int) []EntryRank

	// Len returns the number of stored entries, expired-but-unswept included.
	Len() int
	// Keys returns keys ordered most- to least-recently used.
	Keys() []string
	// Cleanup removes all expired entries now and returns how many.
	Cleanup() int

	// Close stops the sweep goroutine. Idempotent; mutations after Close
	// return ErrClosed while reads keep serving (lazy expiry still applies).
	Close() error
}

// Exported is one entry of an Export snapshot.
type Exported[V any] struct {
	Value     V
	CreatedAt time.Time
	ExpiresAt time.Time // zero when the entry never expires
}

// Options tune a Cache. MaxEntries and MaxMemoryBytes are required and
// validated eagerly; the rest have sensible defaults.
type Options[V any] struct {
	// Required
	MaxEntries     int   // hard entry-count bound, > 0
	MaxMemoryBytes int64 // estimated-bytes budget, > 0

	DefaultTTL    time.Duration // applied by Set; 0 => entries never expire
	SweepInterval time.Duration // expiry sweep period; 0 => 1m

	Logger   Logger      // nil => NopLogger
	Events   Sink        // nil => NopSink
	Codec    c.Codec[V]  // sizes values and encodes overflow spills; optional
	Size     SizeFunc[V] // overrides Codec-based sizing when set
	Clock    Clock       // nil => system clock; inject a fake in tests
	Overflow st.Store    // optional victim store for evicted entries; contents are cache-managed and framed
}

// New constructs a Cache and starts its sweep goroutine.
func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}

// StoreLoader adapts a byte store plus codec into a LoaderFunc, for
// read-through from a shared backend (typically Redis) via GetOrLoad.
func StoreLoader[V any](s st.Store, dec c.Codec[V]) LoaderFunc[V] {
	return func(ctx context.Context, key string) (V, bool, error) {
		var zero V
		raw, ok, err := s.Get(ctx, key)
		if err != nil || !ok {
			return zero, false, err
		}
		v, err := dec.Decode(raw)
		if err != nil {
			return zero, false, err
		}
		return v, true, nil
	}
}
