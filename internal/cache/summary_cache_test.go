package cache_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"wisefido-hrm/internal/cache"
	"wisefido-hrm/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func TestSummaryCache_UpdateSummary_WritesJSON(t *testing.T) {
	kv := newFakeKVStore()
	sc := cache.NewSummaryCache(kv, 5*time.Minute, zap.NewNop())

	summary := models.Summary{
		SessionID:      "session-1",
		HeartRateCount: 3,
		RRCount:        2,
		MinHeartRate:   intPtr(60),
		MaxHeartRate:   intPtr(80),
		MeanHeartRate:  floatPtr(70),
		RMSSDMs:        floatPtr(12.5),
		HRVStatus:      models.HRVStatusOK,
	}
	require.NoError(t, sc.UpdateSummary(context.Background(), summary))

	raw, err := kv.Get(context.Background(), "hrm:session:session-1:summary")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, kv.ttls["hrm:session:session-1:summary"])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, 12.5, decoded["rmssd_ms"])
	assert.Equal(t, "ok", decoded["hrv_status"])
}

func TestSummaryCache_InsufficientDataOmitsRMSSD(t *testing.T) {
	kv := newFakeKVStore()
	sc := cache.NewSummaryCache(kv, 0, zap.NewNop())

	require.NoError(t, sc.UpdateSummary(context.Background(), models.Summary{
		SessionID: "empty",
		HRVStatus: models.HRVStatusInsufficientData,
	}))

	got, err := sc.GetSummary(context.Background(), "empty")
	require.NoError(t, err)
	assert.True(t, got.EmptySession())
	assert.True(t, got.InsufficientRR())
	assert.Nil(t, got.MinHeartRate)
	assert.Equal(t, models.HRVStatusInsufficientData, got.HRVStatus)
}

func TestSummaryCache_GetSummary_Miss(t *testing.T) {
	sc := cache.NewSummaryCache(newFakeKVStore(), time.Minute, zap.NewNop())

	_, err := sc.GetSummary(context.Background(), "nope")
	assert.True(t, errors.Is(err, cache.ErrCacheMiss))
}

func TestSummaryCache_RedisRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	sc := cache.NewSummaryCache(cache.NewRedisKVStore(client), time.Minute, zap.NewNop())

	summary := models.Summary{
		SessionID:      "session-2",
		HeartRateCount: 1,
		MinHeartRate:   intPtr(72),
		MaxHeartRate:   intPtr(72),
		MeanHeartRate:  floatPtr(72),
		HRVStatus:      models.HRVStatusInsufficientData,
	}
	require.NoError(t, sc.UpdateSummary(context.Background(), summary))
	assert.Equal(t, time.Minute, mr.TTL("hrm:session:session-2:summary"))

	got, err := sc.GetSummary(context.Background(), "session-2")
	require.NoError(t, err)
	assert.Equal(t, summary, *got)

	mr.FastForward(2 * time.Minute)
	_, err = sc.GetSummary(context.Background(), "session-2")
	assert.True(t, errors.Is(err, cache.ErrCacheMiss))
}
