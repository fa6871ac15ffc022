package boundcache

import "time"

// Clock abstracts the time source used for TTL and recency decisions.
// Inject a fake in tests to advance virtual time instead of sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
