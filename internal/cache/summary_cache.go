package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wisefido-hrm/internal/models"

	"go.uber.org/zap"
)

// SummaryCache 会话统计缓存，供展示端读取最近一次会话的结果
type SummaryCache struct {
	kv     KVStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewSummaryCache 创建会话统计缓存
func NewSummaryCache(kv KVStore, ttl time.Duration, logger *zap.Logger) *SummaryCache {
	return &SummaryCache{
		kv:     kv,
		ttl:    ttl,
		logger: logger,
	}
}

func summaryKey(sessionID string) string {
	return fmt.Sprintf("hrm:session:%s:summary", sessionID)
}

// UpdateSummary 写入会话统计
func (c *SummaryCache) UpdateSummary(ctx context.Context, summary models.Summary) error {
	key := summaryKey(summary.SessionID)

	jsonData, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	if err := c.kv.Set(ctx, key, string(jsonData), c.ttl); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}

	c.logger.Debug("Updated session summary cache",
		zap.String("session_id", summary.SessionID),
		zap.String("key", key),
	)
	return nil
}

// GetSummary 读取会话统计
func (c *SummaryCache) GetSummary(ctx context.Context, sessionID string) (*models.Summary, error) {
	val, err := c.kv.Get(ctx, summaryKey(sessionID))
	if err != nil {
		return nil, err
	}

	var summary models.Summary
	if err := json.Unmarshal([]byte(val), &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	return &summary, nil
}
