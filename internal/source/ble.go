package source

import (
	"context"
	"fmt"
	"time"

	"wisefido-hrm/internal/models"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"
)

const bleConnectTimeout = 10 * time.Second

// BLESource 直接通过本机蓝牙适配器订阅 Heart Rate Measurement 通知
type BLESource struct {
	adapter     *bluetooth.Adapter
	address     string
	scanTimeout time.Duration
	logger      *zap.Logger
	pipe        *pipe

	connected bool
	device    bluetooth.Device
	char      bluetooth.DeviceCharacteristic
}

// NewBLESource 创建蓝牙通知来源，adapter 通常为 bluetooth.DefaultAdapter
func NewBLESource(adapter *bluetooth.Adapter, address string, scanTimeout time.Duration, bufferSize int, logger *zap.Logger) *BLESource {
	return &BLESource{
		adapter:     adapter,
		address:     normalizeAddress(address),
		scanTimeout: scanTimeout,
		logger:      logger,
		pipe:        newPipe(bufferSize),
	}
}

// Start 扫描、连接外设并开启通知
func (s *BLESource) Start(ctx context.Context) error {
	if err := s.adapter.Enable(); err != nil {
		return fmt.Errorf("could not enable adapter: %w", err)
	}

	addr, err := s.scan(ctx)
	if err != nil {
		return err
	}

	s.device, err = s.adapter.Connect(addr, bluetooth.ConnectionParams{
		ConnectionTimeout: bluetooth.NewDuration(bleConnectTimeout),
	})
	if err != nil {
		return fmt.Errorf("could not connect to %q: %w", s.address, err)
	}
	s.logger.Info("Connected to heart rate peripheral", zap.String("address", s.address))

	s.char, err = s.discoverMeasurement()
	if err != nil {
		s.disconnect()
		return err
	}

	if err := s.char.EnableNotifications(s.handleNotification); err != nil {
		s.disconnect()
		return fmt.Errorf("could not enable heart rate notifications: %w", err)
	}
	s.connected = true
	return nil
}

func (s *BLESource) scan(ctx context.Context) (bluetooth.Address, error) {
	var found bluetooth.Address
	errCh := make(chan error, 1)

	ctx, cancel := context.WithTimeout(ctx, s.scanTimeout)
	defer cancel()

	go func() {
		err := s.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if normalizeAddress(result.Address.String()) != s.address {
				return
			}
			found = result.Address
			if err := adapter.StopScan(); err != nil {
				s.logger.Warn("Stop scan problem", zap.Error(err))
			}
		})
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return found, fmt.Errorf("could not find peripheral %q: %w", s.address, err)
		}
		s.logger.Info("Found heart rate peripheral", zap.String("address", s.address))
		return found, nil
	case <-ctx.Done():
		if err := s.adapter.StopScan(); err != nil {
			s.logger.Warn("Stop scan problem", zap.Error(err))
		}
		return bluetooth.Address{}, fmt.Errorf("timeout scanning for %q: %w", s.address, ctx.Err())
	}
}

func (s *BLESource) discoverMeasurement() (bluetooth.DeviceCharacteristic, error) {
	var char bluetooth.DeviceCharacteristic

	services, err := s.device.DiscoverServices([]bluetooth.UUID{bluetooth.ServiceUUIDHeartRate})
	if err != nil {
		return char, fmt.Errorf("failed to discover heart rate service: %w", err)
	}
	if len(services) == 0 {
		return char, fmt.Errorf("could not find heart rate service")
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{bluetooth.CharacteristicUUIDHeartRateMeasurement})
	if err != nil {
		return char, fmt.Errorf("failed to discover heart rate measurement characteristic: %w", err)
	}
	if len(chars) == 0 {
		return char, fmt.Errorf("could not find heart rate measurement characteristic")
	}
	return chars[0], nil
}

// disconnect Start 失败路径上断开连接
func (s *BLESource) disconnect() {
	if err := s.device.Disconnect(); err != nil {
		s.logger.Warn("Failed to disconnect from peripheral", zap.String("address", s.address), zap.Error(err))
	}
}

// handleNotification 蓝牙栈可能复用 buf，必须复制
func (s *BLESource) handleNotification(buf []byte) {
	s.pipe.push(models.Notification{
		Address:    s.address,
		Payload:    append([]byte(nil), buf...),
		ReceivedAt: time.Now(),
	})
}

func (s *BLESource) Notifications() <-chan models.Notification {
	return s.pipe.out
}

// Stop 关闭通知并断开连接
func (s *BLESource) Stop(ctx context.Context) error {
	if !s.pipe.shutdown() {
		return nil
	}
	if !s.connected {
		s.pipe.closeOut()
		return nil
	}

	if err := s.char.EnableNotifications(nil); err != nil {
		s.logger.Warn("Failed to disable notifications", zap.Error(err))
	}
	err := s.device.Disconnect()
	s.pipe.closeOut()
	if err != nil {
		return fmt.Errorf("could not disconnect from peripheral: %w", err)
	}

	s.logger.Info("Disconnected from heart rate peripheral", zap.String("address", s.address))
	return nil
}
