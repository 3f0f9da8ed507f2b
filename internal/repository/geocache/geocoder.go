// Package geocache shares resolved ZIP locations across sessions.
package geocache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pawmatch/internal/db"
	"github.com/kailas-cloud/pawmatch/internal/domain"
	"github.com/kailas-cloud/pawmatch/internal/domain/location"
)

var cacheKeyPrefix = domain.KeyPrefix + "zip:"

// DefaultTTL keeps a location for 30 days. ZIP metadata rarely changes.
const DefaultTTL = 30 * 24 * time.Hour

// Geocoder resolves ZIP codes.
type Geocoder interface {
	Locations(ctx context.Context, zips []string) ([]location.Location, error)
}

// store is the consumer interface for the location cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedGeocoder caches found locations in a key-value store.
// Unknown zips are never cached.
type CachedGeocoder struct {
	inner      Geocoder
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with labels "cache" and "result", passed explicitly.
func New(
	inner Geocoder,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedGeocoder {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CachedGeocoder{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Locations returns cached entries and asks the inner geocoder for the rest in one call.
// Results follow the order of zips; unknown zips are omitted.
func (c *CachedGeocoder) Locations(ctx context.Context, zips []string) ([]location.Location, error) {
	found := make(map[string]location.Location, len(zips))
	var missing []string
	for _, z := range zips {
		if loc, ok := c.getFromCache(ctx, z); ok {
			c.incCache("hit")
			found[z] = loc
			continue
		}
		c.incCache("miss")
		missing = append(missing, z)
	}

	if len(missing) > 0 {
		locs, err := c.inner.Locations(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("resolve zips: %w", err)
		}
		for _, loc := range locs {
			if loc.ZipCode == "" {
				continue
			}
			found[loc.ZipCode] = loc
			c.putToCache(ctx, loc)
		}
	}

	out := make([]location.Location, 0, len(found))
	for _, z := range zips {
		if loc, ok := found[z]; ok {
			out = append(out, loc)
		}
	}
	return out, nil
}

func (c *CachedGeocoder) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues("geo", result).Inc()
	}
}

func cacheKey(zip string) string {
	return cacheKeyPrefix + zip
}

func (c *CachedGeocoder) getFromCache(ctx context.Context, zip string) (location.Location, bool) {
	data, err := c.store.Get(ctx, cacheKey(zip))
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached location", zap.String("zip", zip), zap.Error(err))
		}
		return location.Location{}, false
	}

	var loc location.Location
	if err := json.Unmarshal(data, &loc); err != nil || loc.ZipCode != zip {
		c.logger.Warn("Failed to parse cached location", zap.String("zip", zip), zap.Error(err))
		return location.Location{}, false
	}
	return loc, true
}

func (c *CachedGeocoder) putToCache(ctx context.Context, loc location.Location) {
	data, err := json.Marshal(loc)
	if err != nil {
		return
	}
	if err := c.store.SetWithTTL(ctx, cacheKey(loc.ZipCode), data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache location", zap.String("zip", loc.ZipCode), zap.Error(err))
	}
}
