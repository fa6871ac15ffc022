package boundcache

import "time"

// Event names, one per completed state change.
const (
	EventSet     = "set"
	EventHit     = "hit"
	EventMiss    = "miss"
	EventEvict   = "evict"
	EventExpire  = "expire"
	EventCleanup = "cleanup"
)

// Event describes one completed cache state change. Entries and MemoryBytes
// are the aggregate state immediately after the change, so a consumer can
// reconstruct the accounting stream without querying the cache.
type Event struct {
	Event     string
	Key       string        // empty for cleanup summaries
	SizeBytes int64         // entry size; freed bytes for cleanup
	TTL       time.Duration // set only

	Entries     int
	MemoryBytes int64
}

// Sink receives events synchronously, with the cache lock held.
// Implementations MUST be cheap and non-blocking.
type Sink interface {
	Emit(Event)
}

// NopSink is the default no-op sink.
type NopSink struct{}

func (NopSink) Emit(Event) {}

// LogSink forwards events to a Logger at Debug level, which makes any of the
// log/ adapters double as an event consumer.
type LogSink struct{ L Logger }

func (s LogSink) Emit(ev Event) {
	f := Fields{
		"event":   ev.Event,
		"entries": ev.Entries,
		"memory":  ev.MemoryBytes,
	}
	if ev.Key != "" {
		f["key"] = ev.Key
	}
	if ev.SizeBytes > 0 {
		f["size"] = ev.SizeBytes
	}
	if ev.TTL > 0 {
		f["ttl"] = ev.TTL
	}
	s.L.Debug("cache "+ev.Event, f)
}

// emit snapshots the aggregates under c.mu so the event stream is
// linearizable with the operations that produced it.
func (c *cache[V]) emit(name, key string, size int64, ttl time.Duration) {
	c.events.Emit(Event{
		Event:       name,
		Key:         key,
		SizeBytes:   size,
		TTL:         ttl,
		Entries:     len(c.entries),
		MemoryBytes: c.memory,
	})
}
