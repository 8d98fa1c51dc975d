package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/compliance-gate/internal/adapter/metrics"
	"github.com/V4T54L/compliance-gate/internal/domain"
)

const exportCacheKeyPrefix = "hact:export:"

// CachedHACTExporter is a read-through cache in front of a domain.HACTExporter.
// Only delivered records are cached; not-found results and faults always go to
// the underlying collaborator. Cache failures degrade to a direct call.
type CachedHACTExporter struct {
	next    domain.HACTExporter
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.GatewayMetrics
}

// NewCachedHACTExporter wraps next with a cache entry lifetime of ttl.
func NewCachedHACTExporter(next domain.HACTExporter, client *redis.Client, ttl time.Duration, logger *slog.Logger, m *metrics.GatewayMetrics) *CachedHACTExporter {
	return &CachedHACTExporter{
		next:    next,
		client:  client,
		ttl:     ttl,
		logger:  logger.With("component", "hact_export_cache"),
		metrics: m,
	}
}

func (c *CachedHACTExporter) ExportProperty(ctx context.Context, id string) (*domain.HACTRecord, error) {
	return c.export(ctx, domain.EntityProperty, id, c.next.ExportProperty)
}

func (c *CachedHACTExporter) ExportTenant(ctx context.Context, id string) (*domain.HACTRecord, error) {
	return c.export(ctx, domain.EntityTenant, id, c.next.ExportTenant)
}

func (c *CachedHACTExporter) ExportCase(ctx context.Context, id string) (*domain.HACTRecord, error) {
	return c.export(ctx, domain.EntityCase, id, c.next.ExportCase)
}

func exportCacheKey(entity domain.EntityType, id string) string {
	return exportCacheKeyPrefix + string(entity) + ":" + id
}

func (c *CachedHACTExporter) export(ctx context.Context, entity domain.EntityType, id string, load func(context.Context, string) (*domain.HACTRecord, error)) (*domain.HACTRecord, error) {
	key := exportCacheKey(entity, id)

	// 1. Try the cache
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var rec domain.HACTRecord
		if err := json.Unmarshal(raw, &rec); err == nil {
			c.hit()
			return &rec, nil
		}
		c.logger.Warn("Discarding undecodable cache entry", "key", key)
	case errors.Is(err, redis.Nil):
	default:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("HACT export cache unavailable, loading directly", "error", err)
	}

	// 2. Miss: load from the collaborator
	c.miss()
	rec, err := load(ctx, id)
	if err != nil {
		return nil, err
	}

	// 3. Populate the cache
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal HACT record for cache: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to cache HACT export", "key", key, "error", err)
	}
	return rec, nil
}

// Invalidate drops the cached export of one entity.
func (c *CachedHACTExporter) Invalidate(ctx context.Context, entity domain.EntityType, id string) error {
	return c.client.Del(ctx, exportCacheKey(entity, id)).Err()
}

func (c *CachedHACTExporter) hit() {
	if c.metrics != nil {
		c.metrics.ExportCacheHits.Inc()
	}
}

func (c *CachedHACTExporter) miss() {
	if c.metrics != nil {
		c.metrics.ExportCacheMisses.Inc()
	}
}
