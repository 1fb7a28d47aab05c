package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"wisefido-hrm/internal/cache"
	"wisefido-hrm/internal/models"
	"wisefido-hrm/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*models.ReadingEvent
	err    error
}

func (r *recordingPublisher) PublishReading(_ context.Context, event *models.ReadingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func notification(payload ...byte) models.Notification {
	return models.Notification{Address: "aa:bb", Payload: payload, ReceivedAt: time.UnixMilli(1700000000000)}
}

func TestIngestor_SkipsMalformedAndSummarizes(t *testing.T) {
	pub := &recordingPublisher{}
	ing := NewIngestor(pub, nil, DeviceInfo{DeviceID: "device-1", Address: "aa:bb"}, time.Minute, zap.NewNop())

	ch := make(chan models.Notification, 8)
	ch <- notification(0x10, 60, 0x00, 0x04)
	ch <- notification()
	ch <- notification(0x01, 0x46)
	ch <- notification(0x10, 70, 0x00, 0x04, 0x00, 0x04)
	ch <- notification(0x00, 80)
	close(ch)

	agg := session.NewAggregator("session-1")
	summary, stats := ing.Run(context.Background(), ch, agg)

	assert.Equal(t, StopSourceClosed, stats.StopReason)
	assert.Equal(t, 5, stats.Received)
	assert.Equal(t, 3, stats.Recorded)
	assert.Equal(t, 2, stats.Skipped)

	assert.Equal(t, "session-1", summary.SessionID)
	assert.Equal(t, 60, *summary.MinHeartRate)
	assert.Equal(t, 80, *summary.MaxHeartRate)
	assert.Equal(t, 70.0, *summary.MeanHeartRate)
	require.NotNil(t, summary.RMSSDMs)
	assert.Equal(t, 0.0, *summary.RMSSDMs)
	assert.True(t, agg.Closed())

	require.Len(t, pub.events, 3)
	assert.Equal(t, uint16(60), pub.events[0].HeartRate)
	assert.Equal(t, "device-1", pub.events[0].DeviceID)
	assert.Equal(t, "session-1", pub.events[0].SessionID)
	assert.Equal(t, int64(1700000000000), pub.events[0].Timestamp)
	assert.Equal(t, []float64{1.0, 1.0}, pub.events[1].RRIntervals)
}

func TestIngestor_DurationElapsed(t *testing.T) {
	ing := NewIngestor(nil, nil, DeviceInfo{}, 30*time.Millisecond, zap.NewNop())

	ch := make(chan models.Notification, 1)
	ch <- notification(0x00, 72)

	summary, stats := ing.Run(context.Background(), ch, session.NewAggregator("s"))

	assert.Equal(t, StopDurationElapsed, stats.StopReason)
	assert.Equal(t, 1, summary.HeartRateCount)
	assert.True(t, summary.InsufficientRR())
}

func TestIngestor_Cancelled(t *testing.T) {
	ing := NewIngestor(nil, nil, DeviceInfo{}, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, stats := ing.Run(ctx, make(chan models.Notification), session.NewAggregator("s"))

	assert.Equal(t, StopCancelled, stats.StopReason)
	assert.True(t, summary.EmptySession())
	assert.Equal(t, models.HRVStatusInsufficientData, summary.HRVStatus)
}

func TestIngestor_PublishErrorDoesNotAbort(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("redis down")}
	ing := NewIngestor(pub, nil, DeviceInfo{}, time.Minute, zap.NewNop())

	ch := make(chan models.Notification, 2)
	ch <- notification(0x00, 60)
	ch <- notification(0x00, 62)
	close(ch)

	summary, stats := ing.Run(context.Background(), ch, session.NewAggregator("s"))

	assert.Equal(t, 2, stats.Recorded)
	assert.Equal(t, 2, summary.HeartRateCount)
	assert.Len(t, pub.events, 2)
}

func TestIngestor_CachesSummary(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	summaries := cache.NewSummaryCache(cache.NewRedisKVStore(client), time.Minute, zap.NewNop())
	ing := NewIngestor(nil, summaries, DeviceInfo{}, time.Minute, zap.NewNop())

	ch := make(chan models.Notification, 1)
	ch <- notification(0x00, 65)
	close(ch)

	summary, _ := ing.Run(context.Background(), ch, session.NewAggregator("session-9"))

	cached, err := summaries.GetSummary(context.Background(), "session-9")
	require.NoError(t, err)
	assert.Equal(t, summary, *cached)
}
