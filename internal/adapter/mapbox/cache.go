package mapbox

import (
	"context"
	"time"

	"github.com/couchcryptid/lightning-alert/internal/domain"
	"github.com/couchcryptid/lightning-alert/internal/observability"
	"github.com/couchcryptid/lightning-alert/internal/tilesystem"
	"github.com/jellydator/ttlcache/v3"
)

// cacheLevel is the detail level of the tile used as the cache key. Strikes
// within the same level-16 tile (roughly 600m at the equator) share a place.
const cacheLevel = 16

// CachedGeocoder wraps a Geocoder with a bounded, expiring in-memory cache.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *ttlcache.Cache[tilesystem.QuadKey, domain.GeocodingResult]
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, ttl time.Duration, metrics *observability.Metrics) *CachedGeocoder {
	cache := ttlcache.New(
		ttlcache.WithCapacity[tilesystem.QuadKey, domain.GeocodingResult](uint64(maxEntries)),
		ttlcache.WithTTL[tilesystem.QuadKey, domain.GeocodingResult](ttl),
	)
	return &CachedGeocoder{inner: inner, cache: cache, metrics: metrics}
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	key := tilesystem.KeyFor(lat, lon, cacheLevel)
	if item := c.cache.Get(key); item != nil {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return item.Value(), nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	result, err := c.inner.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return result, err
	}
	// Only cache non-empty results so transient "not found" responses can be retried.
	if result.FormattedAddress != "" {
		c.cache.Set(key, result, ttlcache.DefaultTTL)
	}
	return result, nil
}

// Len returns the number of cached places.
func (c *CachedGeocoder) Len() int {
	return c.cache.Len()
}
