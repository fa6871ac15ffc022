package boundcache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	cd "github.com/unkn0wn-root/boundcache/codec"
	st "github.com/unkn0wn-root/boundcache/store"
)

type memEntry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

// memStore is an in-memory store.Store for tests.
type memStore struct {
	mu sync.Mutex
	m  map[string]memEntry
}

var _ st.Store = (*memStore)(nil)

func newMemStore() *memStore { return &memStore{m: make(map[string]memEntry)} }

func (s *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[key]
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(s.m, key)
		return nil, false, nil
	}
	return e.v, true, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	s.mu.Lock()
	s.m[key] = memEntry{v: value, exp: exp}
	s.mu.Unlock()
	return true, nil
}

func (s *memStore) Del(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}

func (s *memStore) Close(_ context.Context) error { return nil }

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

func TestGetOrLoadHitSkipsLoader(t *testing.T) {
	cc, _, _ := newTestCache(t, nil)
	_ = cc.Set("k", "cached")

	v, ok, err := cc.GetOrLoad(context.Background(), "k", func(context.Context, string) (string, bool, error) {
		t.Fatalf("loader must not run on a cache hit")
		return "", false, nil
	})
	if err != nil || !ok || v != "cached" {
		t.Fatalf("GetOrLoad hit: v=%q ok=%v err=%v", v, ok, err)
	}
}

func TestGetOrLoadStoresResult(t *testing.T) {
	cc, _, _ := newTestCache(t, nil)

	calls := 0
	load := func(_ context.Context, key string) (string, bool, error) {
		calls++
		return "loaded:" + key, true, nil
	}

	v, ok, err := cc.GetOrLoad(context.Background(), "k", load)
	if err != nil || !ok || v != "loaded:k" {
		t.Fatalf("GetOrLoad: v=%q ok=%v err=%v", v, ok, err)
	}
	// Second call is served from the cache.
	if _, _, err := cc.GetOrLoad(context.Background(), "k", load); err != nil {
		t.Fatalf("GetOrLoad again: %v", err)
	}
	if calls != 1 {
		t.Fatalf("loader ran %d times, want 1", calls)
	}
}

// A failed compute leaves the key absent so a later caller can retry.
func TestGetOrLoadFailureLeavesKeyAbsent(t *testing.T) {
	cc, _, _ := newTestCache(t, nil)
	boom := errors.New("backend down")

	_, ok, err := cc.GetOrLoad(context.Background(), "k", func(context.Context, string) (string, bool, error) {
		return "", false, boom
	})
	if ok || !errors.Is(err, boom) {
		t.Fatalf("expected loader error to propagate, ok=%v err=%v", ok, err)
	}
	if cc.Has("k") {
		t.Fatalf("failed load must not leave a partial entry")
	}

	// Retry with a working loader succeeds.
	v, ok, err := cc.GetOrLoad(context.Background(), "k", func(context.Context, string) (string, bool, error) {
		return "recovered", true, nil
	})
	if err != nil || !ok || v != "recovered" {
		t.Fatalf("retry: v=%q ok=%v err=%v", v, ok, err)
	}
}

func TestGetOrLoadMissWithoutError(t *testing.T) {
	cc, _, _ := newTestCache(t, nil)

	_, ok, err := cc.GetOrLoad(context.Background(), "k", func(context.Context, string) (string, bool, error) {
		return "", false, nil
	})
	if ok || err != nil {
		t.Fatalf("expected clean miss, ok=%v err=%v", ok, err)
	}
	if cc.Has("k") {
		t.Fatalf("clean miss must not store anything")
	}
}

// Eviction victims spill to the overflow store and promote back on demand.
func TestOverflowSpillAndPromote(t *testing.T) {
	ms := newMemStore()
	cc, _, _ := newTestCache(t, func(o *Options[string]) {
		o.MaxEntries = 1
		o.Overflow = ms
	})

	_ = cc.Set("a", "A")
	_ = cc.Set("b", "B") // evicts a, which spills to the overflow store

	if ms.len() != 1 {
		t.Fatalf("expected one spilled entry, got %d", ms.len())
	}

	// GetOrLoad finds a in the overflow store; the loader must not run.
	v, ok, err := cc.GetOrLoad(context.Background(), "a", func(context.Context, string) (string, bool, error) {
		t.Fatalf("loader must not run when the overflow store has the key")
		return "", false, nil
	})
	if err != nil || !ok || v != "A" {
		t.Fatalf("promote from overflow: v=%q ok=%v err=%v", v, ok, err)
	}
	// Promotion re-inserted a, evicting b in turn.
	if _, ok := cc.Get("a"); !ok {
		t.Fatalf("promoted entry should be cached")
	}
	assertAccounting(t, cc)
}

// User deletes and expiries do not spill; only eviction victims do.
func TestOnlyEvictionsSpill(t *testing.T) {
	ms := newMemStore()
	cc, clk, _ := newTestCache(t, func(o *Options[string]) {
		o.Overflow = ms
	})

	_ = cc.Set("deleted", "D")
	cc.Delete("deleted")

	_ = cc.SetWithTTL("expired", "E", 5*time.Millisecond)
	clk.Advance(10 * time.Millisecond)
	cc.Cleanup()

	if ms.len() != 0 {
		t.Fatalf("delete/expiry must not spill, store has %d entries", ms.len())
	}
}

// A corrupt overflow payload is dropped and the loader takes over.
func TestOverflowCorruptSelfHeals(t *testing.T) {
	ms := newMemStore()
	cc, _, _ := newTestCache(t, func(o *Options[string]) {
		o.Codec = failCodec{}
		o.Overflow = ms
	})

	_, _ = ms.Set(context.Background(), "k", []byte("whatever"), 1, 0)

	v, ok, err := cc.GetOrLoad(context.Background(), "k", func(context.Context, string) (string, bool, error) {
		return "from loader", true, nil
	})
	if err != nil || !ok || v != "from loader" {
		t.Fatalf("GetOrLoad with corrupt overflow: v=%q ok=%v err=%v", v, ok, err)
	}
	if ms.len() != 0 {
		t.Fatalf("corrupt overflow entry was not deleted")
	}
}

// A user delete is terminal even when an earlier eviction spilled the entry
// to the overflow store.
func TestDeletePurgesOverflowCopy(t *testing.T) {
	ms := newMemStore()
	cc, _, _ := newTestCache(t, func(o *Options[string]) {
		o.MaxEntries = 1
		o.Overflow = ms
	})
	notFound := func(context.Context, string) (string, bool, error) { return "", false, nil }

	_ = cc.Set("a", "stale")
	_ = cc.Set("b", "B") // evicts a into the overflow store

	// a lives only in the overflow store; Delete must still purge it there.
	if cc.Delete("a") {
		t.Fatalf("Delete should report false for an evicted key")
	}
	if v, ok, err := cc.GetOrLoad(context.Background(), "a", notFound); ok || err != nil {
		t.Fatalf("deleted key came back from overflow: v=%q ok=%v err=%v", v, ok, err)
	}

	// Same once the entry has been promoted back into the cache.
	_ = cc.Set("a", "stale") // evicts b
	_ = cc.Set("c", "C")     // evicts a again, spilling it
	if _, ok, _ := cc.GetOrLoad(context.Background(), "a", nil); !ok {
		t.Fatalf("promotion should find the spilled entry")
	}
	if !cc.Delete("a") {
		t.Fatalf("Delete should remove the promoted entry")
	}
	if v, ok, err := cc.GetOrLoad(context.Background(), "a", notFound); ok || err != nil {
		t.Fatalf("deleted key resurrected: v=%q ok=%v err=%v", v, ok, err)
	}
}

// Clear tears down spilled copies along with the in-core entries.
func TestClearPurgesOverflow(t *testing.T) {
	ms := newMemStore()
	cc, _, _ := newTestCache(t, func(o *Options[string]) {
		o.MaxEntries = 1
		o.Overflow = ms
	})

	_ = cc.Set("a", "A")
	_ = cc.Set("b", "B") // evicts a into the overflow store

	cc.Clear()
	if ms.len() != 0 {
		t.Fatalf("Clear left %d overflow entries", ms.len())
	}
	v, ok, err := cc.GetOrLoad(context.Background(), "a", func(context.Context, string) (string, bool, error) {
		return "fresh", true, nil
	})
	if err != nil || !ok || v != "fresh" {
		t.Fatalf("after Clear the loader must repopulate: v=%q ok=%v err=%v", v, ok, err)
	}
}

// Overwriting a key purges the copy a past eviction spilled, so the older
// value cannot resurface after the overwrite expires.
func TestSetPurgesStaleOverflowCopy(t *testing.T) {
	ms := newMemStore()
	cc, clk, _ := newTestCache(t, func(o *Options[string]) {
		o.MaxEntries = 1
		o.Overflow = ms
	})

	_ = cc.SetWithTTL("a", "old", time.Hour)
	_ = cc.Set("b", "B")                               // evicts a into the overflow store
	_ = cc.SetWithTTL("a", "new", 10*time.Millisecond) // evicts b, purges the stale spill

	if _, ok, _ := ms.Get(context.Background(), "a"); ok {
		t.Fatalf("overwrite left a stale overflow copy")
	}

	clk.Advance(20 * time.Millisecond)
	notFound := func(context.Context, string) (string, bool, error) { return "", false, nil }
	if v, ok, err := cc.GetOrLoad(context.Background(), "a", notFound); ok || err != nil {
		t.Fatalf("stale value resurfaced: v=%q ok=%v err=%v", v, ok, err)
	}
}

// Promotion restores the remaining TTL the entry carried at eviction time
// rather than restamping it with the default.
func TestPromotionCarriesRemainingTTL(t *testing.T) {
	ms := newMemStore()
	cc, clk, _ := newTestCache(t, func(o *Options[string]) {
		o.MaxEntries = 1
		o.Overflow = ms
	})

	_ = cc.SetWithTTL("a", "A", time.Hour)
	_ = cc.Set("b", "B") // evicts a into the overflow store

	clk.Advance(40 * time.Minute)
	v, ok, err := cc.GetOrLoad(context.Background(), "a", nil)
	if err != nil || !ok || v != "A" {
		t.Fatalf("promote: v=%q ok=%v err=%v", v, ok, err)
	}
	if _, ok, _ := ms.Get(context.Background(), "a"); ok {
		t.Fatalf("promotion must remove the overflow copy")
	}

	// The promoted entry keeps its original deadline, not a fresh default.
	clk.Advance(30 * time.Minute)
	if _, ok := cc.Get("a"); ok {
		t.Fatalf("promoted entry outlived its original deadline")
	}
}

func TestPromotionSkipsDeadOverflowEntry(t *testing.T) {
	ms := newMemStore()
	cc, clk, _ := newTestCache(t, func(o *Options[string]) {
		o.MaxEntries = 1
		o.Overflow = ms
	})

	_ = cc.SetWithTTL("a", "A", time.Hour)
	_ = cc.Set("b", "B") // evicts a into the overflow store

	clk.Advance(2 * time.Hour)
	_, ok, err := cc.GetOrLoad(context.Background(), "a", func(context.Context, string) (string, bool, error) {
		return "", false, nil
	})
	if ok || err != nil {
		t.Fatalf("expired overflow entry must not promote: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := ms.Get(context.Background(), "a"); ok {
		t.Fatalf("dead overflow entry was not purged")
	}
}

func TestStoreLoader(t *testing.T) {
	ms := newMemStore()
	_, _ = ms.Set(context.Background(), "k", []byte("remote value"), 1, 0)

	cc, _, _ := newTestCache(t, nil)
	load := StoreLoader[string](ms, cd.String{})

	v, ok, err := cc.GetOrLoad(context.Background(), "k", load)
	if err != nil || !ok || v != "remote value" {
		t.Fatalf("StoreLoader: v=%q ok=%v err=%v", v, ok, err)
	}

	_, ok, err = cc.GetOrLoad(context.Background(), "absent", load)
	if ok || err != nil {
		t.Fatalf("StoreLoader miss: ok=%v err=%v", ok, err)
	}
}
