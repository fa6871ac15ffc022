package boundcache

// estimateSize charges key bytes plus value bytes plus a fixed per-entry
// overhead. Value bytes come from the explicit SizeFunc when configured,
// else from the codec's encoded length, else from the fallback constant.
// The estimate is deterministic for structurally equal inputs and
// non-decreasing in input length, so eviction accounting stays consistent
// across repeated inserts of equivalent values.
//
// A value that cannot be sized is not an error: it costs FallbackValueBytes
// and the fallback is logged at Debug for observability.
func (c *cache[V]) estimateSize(key string, value V) int64 {
	var vb int64
	switch {
	case c.sizeOf != nil:
		b, ok := c.sizeOf(value)
		if !ok || b < 0 {
			c.log.Debug("value not sizable, using fallback estimate", Fields{"key": key})
			b = FallbackValueBytes
		}
		vb = b
	case c.codec != nil:
		raw, err := c.codec.Encode(value)
		if err != nil {
			c.log.Debug("value not sizable, using fallback estimate", Fields{"key": key, "err": err})
			vb = FallbackValueBytes
		} else {
			vb = int64(len(raw))
		}
	default:
		vb = FallbackValueBytes
	}
	return int64(len(key)) + vb + EntryOverheadBytes
}
