package codec

// Bytes is an identity codec for []byte values. Encode/Decode return the
// input unchanged, so the size estimate is the exact payload length.
type Bytes struct{}

func (Bytes) Encode(b []byte) ([]byte, error) { return b, nil }
func (Bytes) Decode(b []byte) ([]byte, error) { return b, nil }

// String is a trivial codec for Go string values: a byte conversion each
// way. Assumes UTF-8 by convention and performs no validation.
type String struct{}

func (String) Encode(s string) ([]byte, error) { return []byte(s), nil }
func (String) Decode(b []byte) (string, error) { return string(b), nil }
