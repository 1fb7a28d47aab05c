package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	mqttcommon "wisefido-hrm/common/mqtt"
	"wisefido-hrm/internal/models"

	"go.uber.org/zap"
)

// subscriber *mqttcommon.Client 中用到的方法
type subscriber interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// MQTTSource 通过 BLE→MQTT 网关接收原始通知
// 主题格式: hrm/{address}/notify，只转发目标外设的通知。
type MQTTSource struct {
	client  subscriber
	topic   string
	qos     byte
	address string
	logger  *zap.Logger
	pipe    *pipe
}

// NewMQTTSource 创建 MQTT 通知来源
func NewMQTTSource(client subscriber, topic string, qos byte, address string, bufferSize int, logger *zap.Logger) *MQTTSource {
	return &MQTTSource{
		client:  client,
		topic:   topic,
		qos:     qos,
		address: normalizeAddress(address),
		logger:  logger,
		pipe:    newPipe(bufferSize),
	}
}

// Start 订阅通知主题
func (s *MQTTSource) Start(ctx context.Context) error {
	if err := s.client.Subscribe(s.topic, s.qos, s.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to notify topic: %w", err)
	}

	s.logger.Info("MQTT source started",
		zap.String("topic", s.topic),
		zap.String("address", s.address),
	)
	return nil
}

func (s *MQTTSource) Notifications() <-chan models.Notification {
	return s.pipe.out
}

// Stop 取消订阅并关闭通知通道
func (s *MQTTSource) Stop(ctx context.Context) error {
	if !s.pipe.shutdown() {
		return nil
	}

	err := s.client.Unsubscribe(s.topic)
	s.pipe.closeOut()
	if err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}

	s.logger.Info("MQTT source stopped")
	return nil
}

// handleMessage 处理MQTT消息
// paho 按顺序回调（OrderMatters），阻塞 push 即保持到达顺序。
func (s *MQTTSource) handleMessage(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return fmt.Errorf("invalid topic format: %s", topic)
	}

	address := normalizeAddress(parts[1])
	if address != s.address {
		s.logger.Debug("Ignoring notification from other peripheral",
			zap.String("topic", topic),
			zap.String("address", address),
		)
		return nil
	}

	s.pipe.push(models.Notification{
		Address:    address,
		Payload:    append([]byte(nil), payload...),
		ReceivedAt: time.Now(),
	})
	return nil
}

// normalizeAddress 统一为小写冒号分隔形式，网关主题中可能使用 "-" 分隔
func normalizeAddress(addr string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(addr)), "-", ":")
}
