package nats

import (
	"fmt"
	"time"

	"wisefido-hrm/common/config"

	"github.com/nats-io/nats.go"
)

// Connect 连接 NATS（无限重连，适合长时间采集会话）
func Connect(cfg *config.NATSConfig) (*nats.Conn, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	nc, err := nats.Connect(
		cfg.URL,
		nats.Name(cfg.Name),
		nats.Timeout(timeout),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS %s: %w", cfg.URL, err)
	}
	return nc, nil
}
