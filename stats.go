package boundcache

import (
	"sort"
	"time"
)

// Stats is a point-in-time snapshot of the cache counters and derived
// rates. Deletes counts caller-initiated removals only; expiry and eviction
// removals are tracked by their own counters.
type Stats struct {
	Hits        uint64
	Misses      uint64
	Sets        uint64
	Deletes     uint64
	Evictions   uint64
	Expirations uint64

	Entries          int
	MemoryUsageBytes int64
	MaxEntries       int
	MaxMemoryBytes   int64

	Uptime            time.Duration
	HitRate           float64 // hits / (hits + misses); 0 with no lookups
	MemoryUtilization float64 // MemoryUsageBytes / MaxMemoryBytes
}

// EntryView is the introspection record for one entry. Expired marks an
// entry past its deadline that no sweep or read has removed yet.
type EntryView struct {
	Key          string
	SizeBytes    int64
	AccessCount  uint64
	Age          time.Duration
	Idle         time.Duration // since last access
	TTLRemaining time.Duration // 0 when HasTTL is false or already due
	HasTTL       bool
	Expired      bool
}

// EntryRank is the short form of EntryView: key and access count only.
type EntryRank struct {
	Key         string
	AccessCount uint64
}

func (c *cache[V]) Stats() Stats {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Hits:             c.hits,
		Misses:           c.misses,
		Sets:             c.sets,
		Deletes:          c.deletes,
		Evictions:        c.evictions,
		Expirations:      c.expirations,
		Entries:          len(c.entries),
		MemoryUsageBytes: c.memory,
		MaxEntries:       c.maxEntries,
		MaxMemoryBytes:   c.maxMemory,
		Uptime:           now.Sub(c.startedAt),
	}
	if lookups := c.hits + c.misses; lookups > 0 {
		s.HitRate = float64(c.hits) / float64(lookups)
	}
	s.MemoryUtilization = float64(c.memory) / float64(c.maxMemory)
	return s
}

// DetailedInfo reports up to limit entries ranked by access count
// descending (ties by key). It is a pure observer: expired-but-unswept
// entries are reported with Expired set rather than removed.
func (c *cache[V]) DetailedInfo(limit int) []EntryView {
	if limit <= 0 {
		limit = DefaultDetailLimit
	}
	now := c.clock.Now()

	c.mu.Lock()
	views := make([]EntryView, 0, len(c.entries))
	for k, e := range c.entries {
		v := EntryView{
			Key:         k,
			SizeBytes:   e.size,
			AccessCount: e.accessCount,
			Age:         now.Sub(e.createdAt),
			Idle:        now.Sub(e.lastAccessed),
			HasTTL:      !e.expiresAt.IsZero(),
			Expired:     e.expired(now),
		}
		if v.HasTTL && !v.Expired {
			v.TTLRemaining = e.expiresAt.Sub(now)
		}
		views = append(views, v)
	}
	c.mu.Unlock()

	sort.Slice(views, func(i, j int) bool {
		if views[i].AccessCount != views[j].AccessCount {
			return views[i].AccessCount > views[j].AccessCount
		}
		return views[i].Key < views[j].Key
	})
	if len(views) > limit {
		views = views[:limit]
	}
	return views
}

// TopEntries is the DetailedInfo ranking without the detail payload.
func (c *cache[V]) TopEntries(n int) []EntryRank {
	if n <= 0 {
		n = DefaultTopN
	}

	c.mu.Lock()
	ranks := make([]EntryRank, 0, len(c.entries))
	for k, e := range c.entries {
		ranks = append(ranks, EntryRank{Key: k, AccessCount: e.accessCount})
	}
	c.mu.Unlock()

	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].AccessCount != ranks[j].AccessCount {
			return ranks[i].AccessCount > ranks[j].AccessCount
		}
		return ranks[i].Key < ranks[j].Key
	})
	if len(ranks) > n {
		ranks = ranks[:n]
	}
	return ranks
}
