package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/compliance-gate/internal/adapter/metrics"
	"github.com/V4T54L/compliance-gate/internal/domain"
	"github.com/V4T54L/compliance-gate/internal/domain/mocks"
)

func newBackingExporter() *mocks.MockHACTExporter {
	return &mocks.MockHACTExporter{
		Records: map[domain.EntityType]map[string]*domain.HACTRecord{
			domain.EntityProperty: {
				"42": {EntityType: domain.EntityProperty, ID: "42", Document: json.RawMessage(`{"uprn":"100023336956"}`)},
			},
			domain.EntityCase: {
				"c-1": {EntityType: domain.EntityCase, ID: "c-1", Document: json.RawMessage(`{"caseRef":"C1"}`)},
			},
		},
	}
}

func TestCachedHACTExporter_ReadThrough(t *testing.T) {
	mr, client := setupRedis(t)
	ctx := context.Background()
	backing := newBackingExporter()
	m := metrics.NewGatewayMetrics(prometheus.NewRegistry())
	cache := NewCachedHACTExporter(backing, client, time.Minute, newTestLogger(), m)

	rec, err := cache.ExportProperty(ctx, "42")
	require.NoError(t, err)
	assert.JSONEq(t, `{"uprn":"100023336956"}`, string(rec.Document))
	assert.True(t, mr.Exists("hact:export:property:42"))

	rec, err = cache.ExportProperty(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "42", rec.ID)
	assert.Equal(t, domain.EntityProperty, rec.EntityType)

	assert.Equal(t, 1, backing.CallCount())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ExportCacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ExportCacheMisses))

	// Expired entries are reloaded.
	mr.FastForward(2 * time.Minute)
	_, err = cache.ExportProperty(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, 2, backing.CallCount())
}

func TestCachedHACTExporter_KeysByEntityType(t *testing.T) {
	_, client := setupRedis(t)
	ctx := context.Background()
	backing := newBackingExporter()
	cache := NewCachedHACTExporter(backing, client, time.Minute, newTestLogger(), nil)

	_, err := cache.ExportCase(ctx, "c-1")
	require.NoError(t, err)

	// Same id under a different entity type is a separate entry.
	_, err = cache.ExportTenant(ctx, "c-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 2, backing.CallCount())
}

func TestCachedHACTExporter_NotFoundIsNotCached(t *testing.T) {
	mr, client := setupRedis(t)
	ctx := context.Background()
	backing := newBackingExporter()
	cache := NewCachedHACTExporter(backing, client, time.Minute, newTestLogger(), nil)

	for i := 0; i < 2; i++ {
		_, err := cache.ExportProperty(ctx, "99")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}
	assert.Equal(t, 2, backing.CallCount())
	assert.False(t, mr.Exists("hact:export:property:99"))
}

func TestCachedHACTExporter_Invalidate(t *testing.T) {
	_, client := setupRedis(t)
	ctx := context.Background()
	backing := newBackingExporter()
	cache := NewCachedHACTExporter(backing, client, time.Minute, newTestLogger(), nil)

	_, err := cache.ExportProperty(ctx, "42")
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, domain.EntityProperty, "42"))
	_, err = cache.ExportProperty(ctx, "42")
	require.NoError(t, err)

	assert.Equal(t, 2, backing.CallCount())
}

func TestCachedHACTExporter_RedisDown(t *testing.T) {
	mr, client := setupRedis(t)
	backing := newBackingExporter()
	cache := NewCachedHACTExporter(backing, client, time.Minute, newTestLogger(), nil)

	mr.Close()
	rec, err := cache.ExportProperty(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "42", rec.ID)
	assert.Equal(t, 1, backing.CallCount())
}
