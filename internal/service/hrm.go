package service

import (
	"context"
	"database/sql"
	"fmt"

	"wisefido-hrm/common/database"
	mqttcommon "wisefido-hrm/common/mqtt"
	natscommon "wisefido-hrm/common/nats"
	rediscommon "wisefido-hrm/common/redis"
	"wisefido-hrm/internal/cache"
	"wisefido-hrm/internal/config"
	"wisefido-hrm/internal/consumer"
	"wisefido-hrm/internal/models"
	"wisefido-hrm/internal/publisher"
	"wisefido-hrm/internal/repository"
	"wisefido-hrm/internal/session"
	"wisefido-hrm/internal/source"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"
)

// HRMService 心率采集服务
type HRMService struct {
	config     *config.Config
	logger     *zap.Logger
	db         *sql.DB
	redis      *redis.Client
	nats       *nats.Conn
	mqttClient *mqttcommon.Client
	source     source.Source
	ingestor   *consumer.Ingestor
}

// NewHRMService 创建心率采集服务
func NewHRMService(cfg *config.Config, logger *zap.Logger) (*HRMService, error) {
	s := &HRMService{
		config: cfg,
		logger: logger,
	}

	device, err := s.resolveDevice()
	if err != nil {
		s.Stop(context.Background())
		return nil, err
	}

	// 初始化Redis
	if s.redis, err = rediscommon.Connect(context.Background(), &cfg.Redis); err != nil {
		s.Stop(context.Background())
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	pub, err := s.buildPublisher()
	if err != nil {
		s.Stop(context.Background())
		return nil, err
	}

	if s.source, err = s.buildSource(); err != nil {
		s.Stop(context.Background())
		return nil, err
	}

	summaries := cache.NewSummaryCache(cache.NewRedisKVStore(s.redis), cfg.HRM.SummaryTTL, logger)
	s.ingestor = consumer.NewIngestor(pub, summaries, device, cfg.HRM.SessionDuration, logger)

	return s, nil
}

// resolveDevice 设备注册表启用时从 PostgreSQL 解析外设
func (s *HRMService) resolveDevice() (consumer.DeviceInfo, error) {
	info := consumer.DeviceInfo{Address: s.config.HRM.DeviceAddress}
	if !s.config.HRM.DeviceRegistry {
		return info, nil
	}

	db, err := database.NewPostgresDB(&s.config.Database)
	if err != nil {
		return info, fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = db

	device, err := repository.NewDeviceRepository(db, s.logger).GetDeviceByAddress(s.config.HRM.DeviceAddress)
	if err != nil {
		return info, err
	}

	info.DeviceID = device.DeviceID
	info.TenantID = device.TenantID
	s.logger.Info("Heart rate device resolved",
		zap.String("device_id", device.DeviceID),
		zap.String("device_name", device.DeviceName),
		zap.String("status", device.Status),
	)
	return info, nil
}

func (s *HRMService) buildPublisher() (publisher.ReadingPublisher, error) {
	var pubs publisher.MultiPublisher

	if stream := s.config.HRM.Publish.Stream; stream != "" {
		pubs = append(pubs, publisher.NewStreamPublisher(s.redis, stream, s.config.HRM.Publish.StreamMaxLen, s.logger))
	}

	if subject := s.config.HRM.Publish.NATSSubject; subject != "" {
		nc, err := natscommon.Connect(&s.config.NATS)
		if err != nil {
			return nil, err
		}
		s.nats = nc
		pubs = append(pubs, publisher.NewNATSPublisher(nc, subject))
	}

	if len(pubs) == 0 {
		return nil, nil
	}
	return pubs, nil
}

func (s *HRMService) buildSource() (source.Source, error) {
	cfg := s.config.HRM
	switch cfg.Source {
	case config.SourceBLE:
		return source.NewBLESource(bluetooth.DefaultAdapter, cfg.DeviceAddress, cfg.ScanTimeout, cfg.BufferSize, s.logger), nil
	default:
		client, err := mqttcommon.NewClient(&s.config.MQTT, s.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MQTT: %w", err)
		}
		s.mqttClient = client
		return source.NewMQTTSource(client, cfg.Topics.Notify, s.config.MQTT.QoS, cfg.DeviceAddress, cfg.BufferSize, s.logger), nil
	}
}

// Run 运行一次采集会话，每次运行使用新的累加器
func (s *HRMService) Run(ctx context.Context) (models.Summary, consumer.Stats, error) {
	if err := s.source.Start(ctx); err != nil {
		return models.Summary{}, consumer.Stats{}, fmt.Errorf("failed to start source: %w", err)
	}

	agg := session.NewAggregator(uuid.New().String())
	summary, stats := s.ingestor.Run(ctx, s.source.Notifications(), agg)

	if err := s.source.Stop(context.Background()); err != nil {
		s.logger.Error("Error stopping source", zap.Error(err))
	}
	return summary, stats, nil
}

// Stop 停止服务，释放连接
func (s *HRMService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping hrm service")

	if s.source != nil {
		if err := s.source.Stop(ctx); err != nil {
			s.logger.Error("Error stopping source", zap.Error(err))
		}
	}

	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}

	if s.nats != nil {
		if err := s.nats.Drain(); err != nil {
			s.logger.Warn("Error draining NATS connection", zap.Error(err))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("Error closing redis client", zap.Error(err))
		}
	}

	if s.db != nil {
		database.Close(s.db)
	}

	s.logger.Info("Hrm service stopped")
	return nil
}
