// Package breedcache shares the breed list across sessions.
package breedcache

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
)

var cacheKey = domain.KeyPrefix + "breeds"

// DefaultTTL matches how long a breed list is considered fresh.
const DefaultTTL = 5 * time.Minute

// Source lists breed names.
type Source interface {
	Breeds(ctx context.Context) ([]string, error)
}

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedBreeds serves the breed list from a key-value store.
type CachedBreeds struct {
	inner      Source
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
func New(inner Source, s store, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *CachedBreeds {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CachedBreeds{inner: inner, store: s, ttl: ttl, cacheTotal: cacheTotal, logger: logger}
}

// Breeds returns the cached list or fetches and caches it. Empty lists are not cached.
func (c *CachedBreeds) Breeds(ctx context.Context) ([]string, error) {
	if breeds, ok := c.get(ctx); ok {
		c.incCache("hit")
		return breeds, nil
	}
	c.incCache("miss")

	breeds, err := c.inner.Breeds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list breeds: %w", err)
	}
	if len(breeds) > 0 {
		c.put(ctx, breeds)
	}
	return breeds, nil
}

func (c *CachedBreeds) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues("breeds", result).Inc()
	}
}

func (c *CachedBreeds) get(ctx context.Context) ([]string, bool) {
	data, err := c.store.Get(ctx, cacheKey)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached breeds", zap.Error(err))
		}
		return nil, false
	}
	var breeds []string
	if err := json.Unmarshal(data, &breeds); err != nil || len(breeds) == 0 {
		return nil, false
	}
	return breeds, true
}

func (c *CachedBreeds) put(ctx context.Context, breeds []string) {
	data, err := json.Marshal(breeds)
	if err != nil {
		return
	}
	if err := c.store.SetWithTTL(ctx, cacheKey, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache breeds", zap.Error(err))
	}
}
