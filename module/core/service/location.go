package service

import (
	"context"

	"github.com/nandanugg/geofence-tracker/module/core/domain"
	"github.com/nandanugg/geofence-tracker/module/core/internal/repository/database"
)

// LocationService is the read side used by the HTTP handlers and the
// WebSocket subscribe check.
type LocationService struct {
	repo database.DeviceRepository
}

func NewLocationService(repo database.DeviceRepository) *LocationService {
	return &LocationService{repo: repo}
}

func (s *LocationService) GetDevice(ctx context.Context, deviceID string) (*domain.Device, error) {
	return s.repo.GetDevice(ctx, deviceID)
}

func (s *LocationService) GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.DeviceLocation, error) {
	return s.repo.GetHistory(ctx, query)
}

func (s *LocationService) GetAllDevices(ctx context.Context) ([]domain.Device, error) {
	return s.repo.ListDevices(ctx)
}
