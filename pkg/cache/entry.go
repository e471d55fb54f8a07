package cache

import (
	"time"

	"github.com/Sternrassler/chroma-viewer/pkg/chroma"
)

// Entry is a cached whole-collection fetch.
type Entry struct {
	// Result is the fetch as returned by the store
	Result *chroma.GetResult `json:"result"`

	// Expires is when the entry becomes stale
	Expires time.Time `json:"expires"`

	// CachedAt is when we cached this fetch
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired returns true if the cache entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
