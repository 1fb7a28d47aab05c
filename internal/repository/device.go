package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrDeviceNotFound 设备未在注册表中
var ErrDeviceNotFound = errors.New("device not found")

// DeviceRepository 设备仓库（心率外设注册表）
type DeviceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDeviceRepository 创建设备仓库
func NewDeviceRepository(db *sql.DB, logger *zap.Logger) *DeviceRepository {
	return &DeviceRepository{
		db:     db,
		logger: logger,
	}
}

// GetDeviceByAddress 根据蓝牙地址获取设备（地址大小写不敏感）
func (r *DeviceRepository) GetDeviceByAddress(address string) (*Device, error) {
	query := `
		SELECT
			d.device_id,
			d.tenant_id,
			d.serial_number,
			d.ble_address,
			d.device_name,
			d.status
		FROM devices d
		WHERE lower(d.ble_address) = $1
		LIMIT 1
	`

	device := &Device{}
	err := r.db.QueryRow(query, strings.ToLower(address)).Scan(
		&device.DeviceID,
		&device.TenantID,
		&device.SerialNumber,
		&device.Address,
		&device.DeviceName,
		&device.Status,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, address)
		}
		return nil, fmt.Errorf("failed to query device: %w", err)
	}

	r.logger.Debug("Resolved heart rate device",
		zap.String("address", address),
		zap.String("device_id", device.DeviceID),
	)
	return device, nil
}

// Device 设备模型
type Device struct {
	DeviceID     string
	TenantID     string
	SerialNumber string
	Address      string
	DeviceName   string
	Status       string
}
