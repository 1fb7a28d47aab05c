package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	logpkg "wisefido-hrm/common/logger"
	"wisefido-hrm/internal/config"
	"wisefido-hrm/internal/service"

	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	log, err := logpkg.NewLogger(cfg.Log.Level, cfg.Log.Format, "wisefido-hrm")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting wisefido-hrm service",
		zap.String("source", cfg.HRM.Source),
		zap.String("address", cfg.HRM.DeviceAddress),
		zap.Duration("session_duration", cfg.HRM.SessionDuration),
	)

	svc, err := service.NewHRMService(cfg, log)
	if err != nil {
		log.Fatal("Failed to create hrm service", zap.Error(err))
	}

	// 收到中断信号即提前结束会话
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, stats, runErr := svc.Run(ctx)
	if runErr != nil {
		log.Error("Collection session failed", zap.Error(runErr))
	} else {
		fields := []zap.Field{
			zap.String("session_id", summary.SessionID),
			zap.String("stop_reason", stats.StopReason),
			zap.Int("heart_rate_samples", summary.HeartRateCount),
			zap.Int("rr_samples", summary.RRCount),
			zap.Int("skipped_packets", stats.Skipped),
			zap.String("hrv_status", summary.HRVStatus),
		}
		if summary.EmptySession() {
			fields = append(fields, zap.Bool("empty_session", true))
		} else {
			fields = append(fields,
				zap.Int("min_heart_rate", *summary.MinHeartRate),
				zap.Int("max_heart_rate", *summary.MaxHeartRate),
				zap.Float64("mean_heart_rate", *summary.MeanHeartRate),
			)
		}
		if !summary.InsufficientRR() {
			fields = append(fields, zap.Float64("rmssd_ms", *summary.RMSSDMs))
		}
		log.Info("Session summary", fields...)
	}

	if err := svc.Stop(context.Background()); err != nil {
		log.Error("Error during shutdown", zap.Error(err))
	}
	log.Info("Service stopped")

	if runErr != nil {
		log.Sync()
		os.Exit(1)
	}
}
