// Package codec converts values V <-> []byte. In boundcache a codec serves
// two jobs: its encoded length is the deterministic value-size estimate for
// memory accounting, and it frames values written to an overflow or
// read-through Store. Encodings must be deterministic for structurally
// equal inputs or eviction accounting drifts.
package codec

// Codec encodes/decodes values V to []byte.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
