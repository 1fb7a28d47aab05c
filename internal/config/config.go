package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"wisefido-hrm/common/config"

	"github.com/joho/godotenv"
)

const (
	SourceMQTT = "mqtt"
	SourceBLE  = "ble"
)

// Config 心率采集服务配置
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig
	NATS     config.NATSConfig

	// 心率采集服务特定配置
	HRM struct {
		// 目标外设地址（MAC，macOS 下为平台 UUID）
		DeviceAddress string

		// 原始通知来源："mqtt"（BLE 网关转发）或 "ble"（本机蓝牙适配器）
		Source string

		// 单次采集会话时长，到时自动结束
		SessionDuration time.Duration

		// BLE 扫描超时
		ScanTimeout time.Duration

		// 通知缓冲区大小
		BufferSize int

		Topics struct {
			Notify string // 如 "hrm/+/notify"
		}

		// 是否通过 PostgreSQL 设备表解析外设
		DeviceRegistry bool

		Publish struct {
			Stream       string // Redis Streams 名称，HRM_READING_STREAM 显式设为空则不发布
			StreamMaxLen int64
			NATSSubject  string // NATS 主题，为空则不发布
		}

		// 会话统计缓存 TTL
		SummaryTTL time.Duration
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
// 存在 .env 时先加载（不覆盖已设置的环境变量）
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}

	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.Database = "owlrd"
	cfg.Database.SSLMode = "disable"
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "wisefido-hrm"
	cfg.MQTT.QoS = 1
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.NATS.URL = "nats://127.0.0.1:4222"
	cfg.NATS.Name = "wisefido-hrm"
	cfg.NATS.LoadFromEnv("NATS")

	cfg.HRM.DeviceAddress = getEnv("HRM_DEVICE_ADDRESS", "")
	cfg.HRM.Source = getEnv("HRM_SOURCE", SourceMQTT)
	cfg.HRM.SessionDuration = getDuration("HRM_SESSION_DURATION", 60*time.Second)
	cfg.HRM.ScanTimeout = getDuration("HRM_SCAN_TIMEOUT", 30*time.Second)
	cfg.HRM.BufferSize = getInt("HRM_BUFFER_SIZE", 64)
	cfg.HRM.Topics.Notify = getEnv("HRM_TOPIC_NOTIFY", "hrm/+/notify")
	cfg.HRM.DeviceRegistry = getEnv("HRM_DEVICE_REGISTRY", "false") == "true"
	cfg.HRM.Publish.Stream = lookupEnv("HRM_READING_STREAM", "hrm:reading:stream")
	cfg.HRM.Publish.StreamMaxLen = int64(getInt("HRM_READING_STREAM_MAXLEN", 10000))
	cfg.HRM.Publish.NATSSubject = getEnv("HRM_NATS_SUBJECT", "")
	cfg.HRM.SummaryTTL = getDuration("HRM_SUMMARY_TTL", 10*time.Minute)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.HRM.DeviceAddress == "" {
		return fmt.Errorf("HRM_DEVICE_ADDRESS is required")
	}
	if c.HRM.Source != SourceMQTT && c.HRM.Source != SourceBLE {
		return fmt.Errorf("invalid HRM_SOURCE %q, expected %q or %q", c.HRM.Source, SourceMQTT, SourceBLE)
	}
	if c.HRM.SessionDuration <= 0 {
		return fmt.Errorf("HRM_SESSION_DURATION must be positive, got %s", c.HRM.SessionDuration)
	}
	if c.HRM.BufferSize <= 0 {
		return fmt.Errorf("HRM_BUFFER_SIZE must be positive, got %d", c.HRM.BufferSize)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// lookupEnv 与 getEnv 不同，已设置的空值会被保留
func lookupEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return d
	}
	return defaultValue
}
