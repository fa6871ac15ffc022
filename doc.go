// Package boundcache implements a bounded, in-process key-value cache with
// per-entry TTL expiry, LRU eviction, and a separate memory-budget eviction
// policy. All mutable state lives behind a single mutex; every public
// operation returns with the accounting invariants intact (entry count <=
// MaxEntries, tracked memory == sum of live entry sizes).
//
// Components:
//   - Codec[V]: (de)serializes V <-> []byte. Drives size estimation and the
//     optional overflow spill.
//   - Store: byte store with TTL (e.g. Ristretto, BigCache, Redis), usable as
//     an overflow target for evicted entries or as a read-through source.
//   - Sink: receives one structured Event per completed state change
//     (set/hit/miss/evict/expire/cleanup).
//
// Eviction runs before every insert in two phases: a memory pass that evicts
// least-recently-used entries until the new entry's bytes fit, then a count
// pass that evicts a single LRU victim if the entry limit is reached. The two
// passes guard different resources and are intentionally not unified.
//
// Expiry is enforced three ways: lazily on Get/Has, by a deadline min-heap
// drained on a periodic sweep, and on demand via Cleanup. Proactive deletion
// lands no later than one sweep interval after the deadline; reads never
// observe an expired entry regardless of sweep timing.
//
// With an Overflow store configured, eviction victims spill there (framed
// with their deadline, so promotion restores the remaining TTL) and
// GetOrLoad promotes them back before consulting the loader. The cache owns
// the spilled copies: Delete, Clear, and an overwriting Set purge them, so a
// key never resolves to a value the caller has since replaced or removed.
package boundcache
