package database

import (
	"context"

	"github.com/nandanugg/geofence-tracker/module/core/domain"
)

type DeviceRepository interface {
	// GetDevice returns domain.ErrUnknownDevice when id does not exist.
	GetDevice(ctx context.Context, deviceID string) (*domain.Device, error)
	// SaveLocation upserts the last known position and appends it to the
	// location history in one transaction.
	SaveLocation(ctx context.Context, deviceID string, pos domain.Position) error
	GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.DeviceLocation, error)
	ListDevices(ctx context.Context) ([]domain.Device, error)
}
