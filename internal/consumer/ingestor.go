package consumer

import (
	"context"
	"time"

	"wisefido-hrm/internal/cache"
	"wisefido-hrm/internal/decoder"
	"wisefido-hrm/internal/models"
	"wisefido-hrm/internal/publisher"
	"wisefido-hrm/internal/session"

	"go.uber.org/zap"
)

// 会话结束原因
const (
	StopDurationElapsed = "duration_elapsed"
	StopCancelled       = "cancelled"
	StopSourceClosed    = "source_closed"
)

const summaryWriteTimeout = 5 * time.Second

// Stats 单次会话的采集计数
type Stats struct {
	Received   int
	Recorded   int
	Skipped    int // 解码失败被跳过的通知
	StopReason string
}

// DeviceInfo 发布读数时附带的设备信息（设备注册表未启用时只有地址）
type DeviceInfo struct {
	DeviceID string
	TenantID string
	Address  string
}

// Ingestor 采集循环：拉取原始通知 -> 解码 -> 累加 -> 发布
// 会话时长由循环自身的定时器控制，解码器和累加器不感知时间。
type Ingestor struct {
	publisher publisher.ReadingPublisher
	summaries *cache.SummaryCache
	device    DeviceInfo
	duration  time.Duration
	logger    *zap.Logger
}

// NewIngestor 创建采集循环
// pub、summaries 可为 nil，表示不发布读数 / 不缓存统计。
func NewIngestor(
	pub publisher.ReadingPublisher,
	summaries *cache.SummaryCache,
	device DeviceInfo,
	duration time.Duration,
	logger *zap.Logger,
) *Ingestor {
	return &Ingestor{
		publisher: pub,
		summaries: summaries,
		device:    device,
		duration:  duration,
		logger:    logger,
	}
}

// Run 运行一次采集会话直到时长到期、ctx 取消或通知通道关闭
// 结束时关闭累加器，计算一次统计结果并写入缓存。
func (i *Ingestor) Run(ctx context.Context, notifications <-chan models.Notification, agg *session.Aggregator) (models.Summary, Stats) {
	var stats Stats

	timer := time.NewTimer(i.duration)
	defer timer.Stop()

	i.logger.Info("Collection session started",
		zap.String("session_id", agg.SessionID()),
		zap.String("address", i.device.Address),
		zap.Duration("duration", i.duration),
	)

ForLoop:
	for {
		select {
		case <-ctx.Done():
			stats.StopReason = StopCancelled
			break ForLoop
		case <-timer.C:
			stats.StopReason = StopDurationElapsed
			break ForLoop
		case n, ok := <-notifications:
			if !ok {
				stats.StopReason = StopSourceClosed
				break ForLoop
			}
			stats.Received++
			if i.ingest(ctx, agg, n) {
				stats.Recorded++
			} else {
				stats.Skipped++
			}
		}
	}

	agg.Close()
	summary := agg.Summarize()

	if i.summaries != nil {
		writeCtx, cancel := context.WithTimeout(context.Background(), summaryWriteTimeout)
		if err := i.summaries.UpdateSummary(writeCtx, summary); err != nil {
			i.logger.Error("Failed to cache session summary",
				zap.String("session_id", summary.SessionID),
				zap.Error(err),
			)
		}
		cancel()
	}

	i.logger.Info("Collection session ended",
		zap.String("session_id", summary.SessionID),
		zap.String("reason", stats.StopReason),
		zap.Int("received", stats.Received),
		zap.Int("recorded", stats.Recorded),
		zap.Int("skipped", stats.Skipped),
	)
	return summary, stats
}

// ingest 处理一条通知，返回是否被记录
// 畸形数据包只跳过，不中断会话。
func (i *Ingestor) ingest(ctx context.Context, agg *session.Aggregator, n models.Notification) bool {
	reading, err := decoder.Decode(n.Payload)
	if err != nil {
		i.logger.Warn("Skipping malformed notification",
			zap.String("session_id", agg.SessionID()),
			zap.Binary("payload", n.Payload),
			zap.Error(err),
		)
		return false
	}

	reading.ReceivedAt = n.ReceivedAt
	if reading.ReceivedAt.IsZero() {
		reading.ReceivedAt = time.Now()
	}

	if !agg.Record(reading) {
		return false
	}

	i.logger.Debug("Recorded heart rate reading",
		zap.String("session_id", agg.SessionID()),
		zap.Uint16("heart_rate", reading.HeartRate),
		zap.Float64s("rr_intervals", reading.RRIntervals),
	)

	if i.publisher != nil {
		event := &models.ReadingEvent{
			SessionID:   agg.SessionID(),
			DeviceID:    i.device.DeviceID,
			TenantID:    i.device.TenantID,
			Address:     i.device.Address,
			HeartRate:   reading.HeartRate,
			RRIntervals: reading.RRIntervals,
			Timestamp:   reading.ReceivedAt.UnixMilli(),
		}
		if err := i.publisher.PublishReading(ctx, event); err != nil {
			i.logger.Warn("Failed to publish reading",
				zap.String("session_id", agg.SessionID()),
				zap.Error(err),
			)
		}
	}
	return true
}
