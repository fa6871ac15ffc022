package codec

import "fmt"

// Limit wraps another codec to reject oversized payloads at Decode time.
// Encode is forwarded to Inner unchanged; MaxDecode <= 0 disables the check.
// Meant for values read back from a shared overflow store, where the bytes
// are not necessarily ones this process wrote.
type Limit[V any] struct {
	// Inner is the wrapped codec. It must be set.
	Inner interface {
		Encode(V) ([]byte, error)
		Decode([]byte) (V, error)
	}
	// MaxDecode is the maximum permitted payload length in bytes for
	// Decode. Longer payloads fail without invoking Inner.
	MaxDecode int
}

func (c Limit[V]) Encode(v V) ([]byte, error) { return c.Inner.Encode(v) }
func (c Limit[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("payload too large: %d > %d", len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}
