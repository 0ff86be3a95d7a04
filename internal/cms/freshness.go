package cms

import "time"

// Freshness is the per-call caching directive.
//
// NoStore always reads from the live API and never touches the cache.
// Otherwise a cached response younger than MaxAge may be served.
type Freshness struct {
	NoStore bool
	MaxAge  time.Duration
}

// NoStore forces a fresh read.
func NoStore() Freshness {
	return Freshness{NoStore: true}
}

// Revalidate allows a cached response up to d old.
func Revalidate(d time.Duration) Freshness {
	return Freshness{MaxAge: d}
}

func (f Freshness) cacheable() bool {
	return !f.NoStore && f.MaxAge > 0
}
