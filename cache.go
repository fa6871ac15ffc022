package boundcache

import (
	"container/heap"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	cd "github.com/unkn0wn-root/boundcache/codec"
	st "github.com/unkn0wn-root/boundcache/store"
)

// entry is the stored form of one key. touch is the recency index: a
// monotonic sequence bumped on every insert and hit, so LRU comparisons
// never tie even under a coarse clock. expSeq is the expiry arm token; a
// pending heap item deletes the entry only while the tokens still match.
type entry[V any] struct {
	value        V
	createdAt    time.Time
	expiresAt    time.Time // zero => never expires
	lastAccessed time.Time
	accessCount  uint64
	size         int64
	touch        uint64
	expSeq       uint64
}

func (e *entry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !e.expiresAt.After(now)
}

// spilled carries an evicted entry out of the lock so the overflow write
// never blocks other cache users.
type spilled[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

type cache[V any] struct {
	maxEntries int
	maxMemory  int64
	defaultTTL time.Duration
	sweepEvery time.Duration

	log      Logger
	events   Sink
	codec    cd.Codec[V]
	sizeOf   SizeFunc[V]
	clock    Clock
	overflow st.Store

	mu          sync.Mutex
	entries     map[string]*entry[V]
	spilledKeys map[string]struct{} // keys with a live copy in the overflow store
	expq        expiryHeap
	memory      int64 // == sum of entries[*].size, always
	seq         uint64
	startedAt   time.Time
	closed      bool

	hits        uint64
	misses      uint64
	sets        uint64
	deletes     uint64
	evictions   uint64
	expirations uint64

	ticker    *time.Ticker
	stopCh    chan struct{}
	closeWg   sync.WaitGroup
	closeOnce sync.Once
}

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.MaxEntries <= 0 {
		return nil, configErr("MaxEntries", opts.MaxEntries, "must be > 0")
	}
	if opts.MaxMemoryBytes <= 0 {
		return nil, configErr("MaxMemoryBytes", opts.MaxMemoryBytes, "must be > 0")
	}
	if opts.DefaultTTL < 0 {
		return nil, configErr("DefaultTTL", opts.DefaultTTL, "must be >= 0")
	}
	if opts.SweepInterval < 0 {
		return nil, configErr("SweepInterval", opts.SweepInterval, "must be >= 0")
	}

	c := &cache[V]{
		maxEntries:  opts.MaxEntries,
		maxMemory:   opts.MaxMemoryBytes,
		defaultTTL:  opts.DefaultTTL,
		codec:       opts.Codec,
		sizeOf:      opts.Size,
		overflow:    opts.Overflow,
		entries:     make(map[string]*entry[V]),
		spilledKeys: make(map[string]struct{}),
	}

	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.events = coalesce[Sink](opts.Events, NopSink{})
	c.clock = coalesce[Clock](opts.Clock, systemClock{})
	c.sweepEvery = coalesce[time.Duration](opts.SweepInterval, defaultSweepInterval)
	c.startedAt = c.clock.Now()

	c.ticker = time.NewTicker(c.sweepEvery)
	c.stopCh = make(chan struct{})
	c.closeWg.Add(1)
	go c.sweepLoop()

	return c, nil
}

func (c *cache[V]) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		close(c.stopCh)
		c.closeWg.Wait()
		c.ticker.Stop()
	})
	return nil
}

func (c *cache[V]) Set(key string, value V) error {
	return c.SetWithTTL(key, value, c.defaultTTL)
}

func (c *cache[V]) SetWithTTL(key string, value V, ttl time.Duration) error {
	size := c.estimateSize(key, value) // outside the lock; pure
	now := c.clock.Now()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	// An overwrite releases the old entry first (size contribution and
	// pending expiry), so the net delta is attributable to the new entry.
	if old, ok := c.entries[key]; ok {
		c.removeLocked(key, old)
	}

	// A write supersedes any copy a past eviction spilled; purge it so a
	// later promotion cannot resurrect the older value.
	_, hadSpill := c.spilledKeys[key]
	delete(c.spilledKeys, key)

	victims := c.evictForLocked(size)

	e := &entry[V]{
		value:        value,
		createdAt:    now,
		lastAccessed: now,
		size:         size,
	}
	c.seq++
	e.touch = c.seq
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
		c.seq++
		e.expSeq = c.seq
		heap.Push(&c.expq, expiryItem{at: e.expiresAt, seq: e.expSeq, key: key})
	}
	c.entries[key] = e
	c.memory += size
	c.sets++
	c.emit(EventSet, key, size, ttl)
	c.mu.Unlock()

	if hadSpill {
		c.dropOverflow(key)
	}
	c.spill(victims)
	return nil
}

// evictForLocked makes room for an insert of newSize bytes. Two passes, in
// this order: a memory pass that walks live entries oldest-access first and
// evicts until the freed bytes cover the shortfall, then a count pass that
// evicts exactly one LRU victim when the entry limit is reached. The passes
// guard different resources and stay separate on purpose. An entry larger
// than the whole budget drains the store and is admitted anyway.
func (c *cache[V]) evictForLocked(newSize int64) []spilled[V] {
	var victims []spilled[V]

	if c.memory+newSize > c.maxMemory {
		target := c.memory + newSize - c.maxMemory

		type cand struct {
			key string
			e   *entry[V]
		}
		order := make([]cand, 0, len(c.entries))
		for k, e := range c.entries {
			order = append(order, cand{k, e})
		}
		sort.Slice(order, func(i, j int) bool { return order[i].e.touch < order[j].e.touch })

		var freed int64
		for _, v := range order {
			if freed >= target {
				break
			}
			freed += v.e.size
			victims = append(victims, spilled[V]{v.key, v.e.value, v.e.expiresAt})
			c.removeLocked(v.key, v.e)
			c.evictions++
			c.emit(EventEvict, v.key, v.e.size, 0)
		}
	}

	if len(c.entries) >= c.maxEntries {
		var (
			vk string
			ve *entry[V]
		)
		for k, e := range c.entries {
			if ve == nil || e.touch < ve.touch {
				vk, ve = k, e
			}
		}
		if ve != nil {
			victims = append(victims, spilled[V]{vk, ve.value, ve.expiresAt})
			c.removeLocked(vk, ve)
			c.evictions++
			c.emit(EventEvict, vk, ve.size, 0)
		}
	}

	if c.overflow != nil {
		for _, v := range victims {
			c.spilledKeys[v.key] = struct{}{}
		}
	}
	return victims
}

// removeLocked unlinks an entry and its size contribution. A pending heap
// item for the entry becomes stale and is skipped by the sweep because the
// expSeq token no longer resolves.
func (c *cache[V]) removeLocked(key string, e *entry[V]) {
	delete(c.entries, key)
	c.memory -= e.size
}

func (c *cache[V]) Get(key string) (V, bool) {
	var zero V
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		c.emit(EventMiss, key, 0, 0)
		return zero, false
	}
	if e.expired(now) {
		c.removeLocked(key, e)
		c.expirations++
		c.emit(EventExpire, key, e.size, 0)
		c.misses++
		c.emit(EventMiss, key, 0, 0)
		return zero, false
	}

	e.lastAccessed = now
	e.accessCount++
	c.seq++
	e.touch = c.seq
	c.hits++
	c.emit(EventHit, key, e.size, 0)
	return e.value, true
}

func (c *cache[V]) Has(key string) bool {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	if e.expired(now) {
		c.removeLocked(key, e)
		c.expirations++
		c.emit(EventExpire, key, e.size, 0)
		return false
	}
	return true
}

func (c *cache[V]) Delete(key string) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	e, ok := c.entries[key]
	if ok {
		c.removeLocked(key, e)
		c.deletes++ // user deletes only; expiry and eviction count separately
	}
	_, hadSpill := c.spilledKeys[key]
	c.mu.Unlock()

	// A delete is terminal even for a copy a past eviction spilled.
	if hadSpill {
		c.dropOverflow(key)
	}
	return ok
}

func (c *cache[V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry[V])
	c.expq = c.expq[:0] // cancels every pending expiry
	c.memory = 0

	spilledNow := make([]string, 0, len(c.spilledKeys))
	for k := range c.spilledKeys {
		spilledNow = append(spilledNow, k)
	}
	c.mu.Unlock()

	// Clear is terminal for spilled copies too.
	c.dropOverflow(spilledNow...)
}

func (c *cache[V]) GetOrLoad(ctx context.Context, key string, load LoaderFunc[V]) (V, bool, error) {
	var zero V

	if v, ok := c.Get(key); ok {
		return v, true, nil
	}

	// Previously evicted entries may still live in the overflow store;
	// promote them back before paying for a load.
	if v, ok := c.promote(ctx, key); ok {
		return v, true, nil
	}

	if load == nil {
		return zero, false, errors.New("boundcache: nil loader")
	}
	v, ok, err := load(ctx, key)
	if err != nil {
		// Key stays absent so a later caller can retry cleanly.
		return zero, false, err
	}
	if !ok {
		return zero, false, nil
	}
	// Best effort: racing loaders overwrite each other, last write wins.
	_ = c.Set(key, v)
	return v, true, nil
}

func (c *cache[V]) Preload(entries map[string]V, ttl time.Duration) error {
	// Deterministic insertion order keeps eviction cascades reproducible.
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := c.SetWithTTL(k, entries[k], ttl); err != nil {
			return err
		}
	}
	return nil
}

func (c *cache[V]) Export() map[string]Exported[V] {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]Exported[V], len(c.entries))
	for k, e := range c.entries {
		if e.expired(now) {
			continue
		}
		out[k] = Exported[V]{Value: e.value, CreatedAt: e.createdAt, ExpiresAt: e.expiresAt}
	}
	return out
}

func (c *cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *cache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	type rec struct {
		key   string
		touch uint64
	}
	order := make([]rec, 0, len(c.entries))
	for k, e := range c.entries {
		order = append(order, rec{k, e.touch})
	}
	sort.Slice(order, func(i, j int) bool { return order[i].touch > order[j].touch })

	out := make([]string, len(order))
	for i, r := range order {
		out[i] = r.key
	}
	return out
}
