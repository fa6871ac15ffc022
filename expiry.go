package boundcache

import (
	"container/heap"
	"time"
)

// expiryItem is one armed deadline. Items are never removed on cancel;
// instead the owning entry's expSeq token moves on and the stale item is
// skipped when it surfaces. That keeps Delete/overwrite O(1) and makes it
// impossible for an old deadline to kill a newer entry under the same key.
type expiryItem struct {
	at  time.Time
	seq uint64
	key string
}

type expiryHeap []expiryItem

func (h expiryHeap) Len() int           { return len(h) }
func (h expiryHeap) Less(i, j int) bool { return h[i].at.Before(h[j].at) }
func (h expiryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *expiryHeap) Push(x any)        { *h = append(*h, x.(expiryItem)) }
func (h *expiryHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// sweepLoop drains due deadlines once per sweep interval. Proactive expiry
// precision is therefore "no later than one interval after the deadline";
// Get/Has enforce correctness on the hot path regardless.
func (c *cache[V]) sweepLoop() {
	defer c.closeWg.Done()
	for {
		select {
		case <-c.ticker.C:
			c.Cleanup()
		case <-c.stopCh:
			return
		}
	}
}

// Cleanup removes every entry whose deadline has passed and returns the
// number removed. Runs the same pass the background sweep runs; tests with
// a fake clock call it directly after advancing time.
func (c *cache[V]) Cleanup() int {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed, freed := c.sweepLocked(now)
	if removed > 0 {
		c.emit(EventCleanup, "", freed, 0)
	}
	return removed
}

func (c *cache[V]) sweepLocked(now time.Time) (removed int, freed int64) {
	for c.expq.Len() > 0 {
		it := c.expq[0]
		if it.at.After(now) {
			break // heap order: nothing else is due yet
		}
		heap.Pop(&c.expq)

		e, ok := c.entries[it.key]
		if !ok || e.expSeq != it.seq {
			continue // canceled or re-armed under the same key
		}
		c.removeLocked(it.key, e)
		c.expirations++
		c.emit(EventExpire, it.key, e.size, 0)
		removed++
		freed += e.size
	}
	return removed, freed
}
