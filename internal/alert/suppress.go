package alert

import (
	"sync"
	"time"

	"github.com/couchcryptid/lightning-alert/internal/tilesystem"
	"github.com/jellydator/ttlcache/v3"
)

// Suppressor remembers which buckets have already raised an alert. Only the
// first strike in a bucket alerts; later strikes are suppressed until the
// window expires. A zero window suppresses for the life of the process.
type Suppressor struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[tilesystem.QuadKey, time.Time]
	ttl   time.Duration
}

// NewSuppressor creates a Suppressor with the given window.
func NewSuppressor(window time.Duration) *Suppressor {
	ttl := window
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[tilesystem.QuadKey, time.Time](),
	)
	go cache.Start()

	return &Suppressor{cache: cache, ttl: ttl}
}

// Allow reports whether a strike in bucket should alert, and if so records
// the bucket as alerted.
func (s *Suppressor) Allow(bucket tilesystem.QuadKey, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache.Get(bucket) != nil {
		return false
	}
	s.cache.Set(bucket, at, s.ttl)
	return true
}

// Len returns the number of buckets currently suppressed.
func (s *Suppressor) Len() int {
	return s.cache.Len()
}

// Close stops the expiry goroutine.
func (s *Suppressor) Close() {
	s.cache.Stop()
}
