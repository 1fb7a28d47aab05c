package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"wisefido-hrm/internal/models"
)

// natsConn *nats.Conn 中用到的方法
type natsConn interface {
	Publish(subj string, data []byte) error
}

// NATSPublisher 以 JSON 发布读数到 NATS 主题
type NATSPublisher struct {
	conn    natsConn
	subject string
}

// NewNATSPublisher 创建 NATS 发布器，conn 通常为 *nats.Conn
func NewNATSPublisher(conn natsConn, subject string) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject}
}

func (p *NATSPublisher) PublishReading(_ context.Context, event *models.ReadingEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}
	if err := p.conn.Publish(p.subject, b); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", p.subject, err)
	}
	return nil
}
