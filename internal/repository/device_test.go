package repository

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDeviceRepository_GetDeviceByAddress(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDeviceRepository(db, zap.NewNop())

	mock.ExpectQuery(`SELECT\s+d.device_id`).
		WithArgs("aa:bb:cc:dd:ee:ff").
		WillReturnRows(sqlmock.NewRows([]string{
			"device_id", "tenant_id", "serial_number", "ble_address", "device_name", "status",
		}).AddRow("device-1", "tenant-1", "SN-001", "AA:BB:CC:DD:EE:FF", "Chest Strap", "online"))

	device, err := repo.GetDeviceByAddress("AA:BB:CC:DD:EE:FF")
	require.NoError(t, err)
	assert.Equal(t, "device-1", device.DeviceID)
	assert.Equal(t, "tenant-1", device.TenantID)
	assert.Equal(t, "Chest Strap", device.DeviceName)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeviceRepository_GetDeviceByAddress_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDeviceRepository(db, zap.NewNop())

	mock.ExpectQuery(`SELECT\s+d.device_id`).
		WithArgs("11:22:33:44:55:66").
		WillReturnRows(sqlmock.NewRows([]string{
			"device_id", "tenant_id", "serial_number", "ble_address", "device_name", "status",
		}))

	device, err := repo.GetDeviceByAddress("11:22:33:44:55:66")
	assert.Nil(t, device)
	assert.True(t, errors.Is(err, ErrDeviceNotFound))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeviceRepository_GetDeviceByAddress_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDeviceRepository(db, zap.NewNop())

	mock.ExpectQuery(`SELECT\s+d.device_id`).
		WithArgs("11:22:33:44:55:66").
		WillReturnError(errors.New("connection reset"))

	_, err = repo.GetDeviceByAddress("11:22:33:44:55:66")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrDeviceNotFound))
	assert.Contains(t, err.Error(), "failed to query device")
}
