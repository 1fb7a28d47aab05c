package models

import "time"

// Notification 传输层交付的一条原始 Heart Rate Measurement 通知
type Notification struct {
	Address    string // 外设地址（MAC 或平台 UUID）
	Payload    []byte // 完整的特征值，不会是分片
	ReceivedAt time.Time
}

// Reading 一条通知解码后的结果
type Reading struct {
	HeartRate   uint16    `json:"heart_rate"`   // bpm
	RRIntervals []float64 `json:"rr_intervals"` // 秒，按 payload 中出现顺序

	ContactSupported bool    `json:"contact_supported"`
	ContactDetected  bool    `json:"contact_detected"`
	EnergyExpended   *uint16 `json:"energy_expended,omitempty"` // kJ

	// ReceivedAt 由采集循环填写，解码器不设置
	ReceivedAt time.Time `json:"received_at"`
}

// ReadingEvent 发布到 Redis Streams / NATS 的单条读数
type ReadingEvent struct {
	SessionID   string    `json:"session_id"`
	DeviceID    string    `json:"device_id,omitempty"`
	TenantID    string    `json:"tenant_id,omitempty"`
	Address     string    `json:"address"`
	HeartRate   uint16    `json:"heart_rate"`
	RRIntervals []float64 `json:"rr_intervals,omitempty"`
	Timestamp   int64     `json:"timestamp"` // Unix 毫秒
}
