package geocache

import (
	"context"
	"log/slog"

	"github.com/USA-RedDragon/camper-server/internal/metrics"
)

type ReverseGeocoder interface {
	CityName(ctx context.Context, lat, lng float64) (string, error)
}

// CachedGeocoder answers from the cache and falls back to the upstream geocoder on a miss.
type CachedGeocoder struct {
	cache    *Cache
	upstream ReverseGeocoder
	metrics  *metrics.Metrics
}

func NewCachedGeocoder(cache *Cache, upstream ReverseGeocoder, m *metrics.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		cache:    cache,
		upstream: upstream,
		metrics:  m,
	}
}

func (g *CachedGeocoder) CityName(ctx context.Context, lat, lng float64) (string, error) {
	city, _, err := g.Lookup(ctx, lat, lng)
	return city, err
}

// Lookup is CityName that also reports whether the cache answered.
func (g *CachedGeocoder) Lookup(ctx context.Context, lat, lng float64) (string, bool, error) {
	if entry, ok := g.cache.Get(lat, lng); ok {
		g.metrics.IncrementGeocodeCache(true)
		return entry.City, true, nil
	}
	g.metrics.IncrementGeocodeCache(false)

	city, err := g.upstream.CityName(ctx, lat, lng)
	if err != nil {
		return "", false, err
	}
	g.cache.Set(lat, lng, city)
	if err := g.cache.Flush(ctx); err != nil {
		slog.Error("Failed to persist geocoding cache", "error", err)
	}
	return city, false, nil
}
