package boundcache

import (
	"context"
	"encoding/binary"
	"errors"
	"time"
)

// Spilled entries travel through the overflow store in a small frame that
// carries their absolute deadline, so promotion can restore the remaining
// TTL instead of restamping the entry. Layout: one version byte, eight
// bytes big-endian unix nanoseconds (zero means no deadline), then the
// codec-encoded value.
const (
	spillFrameVersion = 0x1
	spillFrameHeader  = 9
)

var errSpillFrame = errors.New("boundcache: malformed overflow frame")

func frameSpill(raw []byte, expiresAt time.Time) []byte {
	buf := make([]byte, spillFrameHeader+len(raw))
	buf[0] = spillFrameVersion
	if !expiresAt.IsZero() {
		binary.BigEndian.PutUint64(buf[1:spillFrameHeader], uint64(expiresAt.UnixNano()))
	}
	copy(buf[spillFrameHeader:], raw)
	return buf
}

func unframeSpill(b []byte) ([]byte, time.Time, error) {
	if len(b) < spillFrameHeader || b[0] != spillFrameVersion {
		return nil, time.Time{}, errSpillFrame
	}
	var expiresAt time.Time
	if ns := binary.BigEndian.Uint64(b[1:spillFrameHeader]); ns != 0 {
		expiresAt = time.Unix(0, int64(ns))
	}
	return b[spillFrameHeader:], expiresAt, nil
}

// spill writes evicted entries to the overflow store, outside the cache
// lock. Best effort: encode or store failures are logged and dropped.
func (c *cache[V]) spill(victims []spilled[V]) {
	if c.overflow == nil || c.codec == nil || len(victims) == 0 {
		return
	}
	ctx := context.Background()
	now := c.clock.Now()
	for _, s := range victims {
		var ttl time.Duration
		if !s.expiresAt.IsZero() {
			ttl = s.expiresAt.Sub(now)
			if ttl <= 0 {
				continue // already dead, nothing worth keeping
			}
		}
		raw, err := c.codec.Encode(s.value)
		if err != nil {
			c.log.Debug("overflow spill skipped (encode)", Fields{"key": s.key, "err": err})
			continue
		}
		framed := frameSpill(raw, s.expiresAt)
		ok, err := c.overflow.Set(ctx, s.key, framed, int64(len(framed)), ttl)
		if err != nil || !ok {
			c.log.Debug("overflow spill rejected", Fields{"key": s.key, "err": err})
		}
	}
}

// promote pulls a previously spilled entry back into the cache with its
// remaining TTL and removes the overflow copy, so a key has at most one
// live copy. Unusable entries (malformed frame, undecodable payload, past
// deadline) are purged on sight.
func (c *cache[V]) promote(ctx context.Context, key string) (V, bool) {
	var zero V
	if c.overflow == nil || c.codec == nil {
		return zero, false
	}
	b, ok, err := c.overflow.Get(ctx, key)
	if err != nil || !ok {
		return zero, false
	}
	raw, expiresAt, err := unframeSpill(b)
	if err != nil {
		c.log.Debug("overflow entry purged (frame)", Fields{"key": key, "err": err})
		c.dropOverflow(key)
		return zero, false
	}
	var ttl time.Duration
	if !expiresAt.IsZero() {
		if ttl = expiresAt.Sub(c.clock.Now()); ttl <= 0 {
			c.dropOverflow(key)
			return zero, false
		}
	}
	v, err := c.codec.Decode(raw)
	if err != nil {
		c.log.Debug("overflow entry purged (decode)", Fields{"key": key, "err": err})
		c.dropOverflow(key)
		return zero, false
	}
	c.dropOverflow(key)
	_ = c.SetWithTTL(key, v, ttl)
	return v, true
}

// dropOverflow removes keys from the overflow store and clears their spill
// marks. Best effort; Del on an absent key is a no-op.
func (c *cache[V]) dropOverflow(keys ...string) {
	if c.overflow == nil || len(keys) == 0 {
		return
	}
	c.mu.Lock()
	for _, k := range keys {
		delete(c.spilledKeys, k)
	}
	c.mu.Unlock()

	ctx := context.Background()
	for _, k := range keys {
		if err := c.overflow.Del(ctx, k); err != nil {
			c.log.Debug("overflow delete failed", Fields{"key": k, "err": err})
		}
	}
}
