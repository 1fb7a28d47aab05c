package publisher

import (
	"context"
	"fmt"

	rediscommon "wisefido-hrm/common/redis"
	"wisefido-hrm/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// StreamPublisher 发布读数到 Redis Streams
type StreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
	logger *zap.Logger
}

// NewStreamPublisher 创建 Redis Streams 发布器
func NewStreamPublisher(client *redis.Client, stream string, maxLen int64, logger *zap.Logger) *StreamPublisher {
	return &StreamPublisher{
		client: client,
		stream: stream,
		maxLen: maxLen,
		logger: logger,
	}
}

func (p *StreamPublisher) PublishReading(ctx context.Context, event *models.ReadingEvent) error {
	streamID, err := rediscommon.PublishJSONToStream(ctx, p.client, p.stream, p.maxLen, event)
	if err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", p.stream, err)
	}

	p.logger.Debug("Published reading to Redis Streams",
		zap.String("session_id", event.SessionID),
		zap.String("stream", p.stream),
		zap.String("stream_id", streamID),
	)
	return nil
}
