package boundcache

import "time"

const (
	defaultSweepInterval = time.Minute

	// DefaultDetailLimit caps DetailedInfo when the caller passes limit <= 0.
	DefaultDetailLimit = 50
	// DefaultTopN caps TopEntries when the caller passes n <= 0.
	DefaultTopN = 10

	// EntryOverheadBytes is charged per entry on top of key and value bytes,
	// covering map/bookkeeping overhead. An estimate, kept constant so that
	// accounting stays deterministic.
	EntryOverheadBytes = 64
	// FallbackValueBytes is charged for values that cannot be sized
	// (no SizeFunc, no Codec, or the codec failed to encode).
	FallbackValueBytes = 256
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
