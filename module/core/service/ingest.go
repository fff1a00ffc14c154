package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/nandanugg/geofence-tracker/module/core/domain"
	"github.com/nandanugg/geofence-tracker/module/core/internal/repository/database"
	"github.com/nandanugg/geofence-tracker/module/core/internal/repository/publisher"
)

// Broadcaster delivers accepted fixes to live subscribers. It must not
// return errors; delivery is best effort.
type Broadcaster interface {
	Dispatch(deviceID string, pos domain.Position, transitions []domain.GeofenceTransition)
}

// IngestPipeline accepts fixes, detects geofence transitions against the
// device's previous position, persists the new position and fans the
// result out. Fixes for one device are serialized; different devices run
// in parallel.
type IngestPipeline struct {
	repo      database.DeviceRepository
	evaluator *GeofenceEvaluator
	broadcast Broadcaster
	alerts    publisher.GeofencePublisher
	locks     *deviceLocks
	now       func() time.Time
	logger    *zap.Logger
}

// NewIngestPipeline wires the pipeline. alerts may be nil when no event bus
// is configured.
func NewIngestPipeline(repo database.DeviceRepository, broadcast Broadcaster, alerts publisher.GeofencePublisher, logger *zap.Logger) *IngestPipeline {
	return &IngestPipeline{
		repo:      repo,
		evaluator: NewGeofenceEvaluator(),
		broadcast: broadcast,
		alerts:    alerts,
		locks:     newDeviceLocks(),
		now:       time.Now,
		logger:    logger.Named("ingest"),
	}
}

// Accept runs one fix through the pipeline and returns the transitions it
// produced. Validation, unknown device and persistence errors are returned;
// delivery problems are only logged.
func (p *IngestPipeline) Accept(ctx context.Context, fix *domain.LocationFix) ([]domain.GeofenceTransition, error) {
	coord, err := validateFix(fix)
	if err != nil {
		return nil, err
	}

	pos := domain.Position{
		Coordinate: coord,
		Altitude:   fix.Altitude,
		Speed:      fix.Speed,
		Accuracy:   fix.Accuracy,
		Timestamp:  fix.Timestamp,
	}
	if pos.Timestamp.IsZero() {
		pos.Timestamp = p.now()
	}

	transitions, err := p.apply(ctx, fix.DeviceID, pos)
	if err != nil {
		return nil, err
	}

	p.broadcast.Dispatch(fix.DeviceID, pos, transitions)
	p.publishAlerts(ctx, fix.DeviceID, pos, transitions)

	return transitions, nil
}

// apply is the read-evaluate-write section that must not interleave for
// the same device.
func (p *IngestPipeline) apply(ctx context.Context, deviceID string, pos domain.Position) ([]domain.GeofenceTransition, error) {
	unlock := p.locks.Lock(deviceID)
	defer unlock()

	device, err := p.repo.GetDevice(ctx, deviceID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownDevice) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: load device %s: %w", domain.ErrPersistence, deviceID, err)
	}

	var prev *domain.Coordinate
	if device.LastLocation != nil {
		c := device.LastLocation.Coordinate
		prev = &c
	}
	transitions := p.evaluator.Evaluate(prev, pos.Coordinate, device.Geofences)

	if err := p.repo.SaveLocation(ctx, deviceID, pos); err != nil {
		if errors.Is(err, domain.ErrUnknownDevice) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: save location %s: %w", domain.ErrPersistence, deviceID, err)
	}

	if len(transitions) > 0 {
		p.logger.Info("geofence transitions",
			zap.String("device_id", deviceID),
			zap.Int("count", len(transitions)),
		)
	}
	return transitions, nil
}

func (p *IngestPipeline) publishAlerts(ctx context.Context, deviceID string, pos domain.Position, transitions []domain.GeofenceTransition) {
	if p.alerts == nil {
		return
	}
	for _, t := range transitions {
		alert := &domain.GeofenceAlert{
			DeviceID:  deviceID,
			Event:     t.Event,
			Geofence:  t.Geofence,
			Position:  pos,
			Timestamp: pos.Timestamp.Unix(),
		}
		if err := p.alerts.PublishAlert(ctx, alert); err != nil {
			p.logger.Warn("publish geofence alert",
				zap.String("device_id", deviceID),
				zap.String("geofence", t.Geofence.Name),
				zap.Error(err),
			)
		}
	}
}

func validateFix(fix *domain.LocationFix) (domain.Coordinate, error) {
	if fix == nil || fix.DeviceID == "" {
		return domain.Coordinate{}, fmt.Errorf("%w: device id required", domain.ErrMalformedMessage)
	}
	if len(fix.Coordinates) != 2 {
		return domain.Coordinate{}, fmt.Errorf("%w: expected [lon, lat], got %d values", domain.ErrInvalidCoordinates, len(fix.Coordinates))
	}

	lon, lat := fix.Coordinates[0], fix.Coordinates[1]
	if !finite(lon) || !finite(lat) {
		return domain.Coordinate{}, fmt.Errorf("%w: coordinates must be finite", domain.ErrInvalidCoordinates)
	}
	if lon < -180 || lon > 180 {
		return domain.Coordinate{}, fmt.Errorf("%w: longitude must be between -180 and 180", domain.ErrInvalidCoordinates)
	}
	if lat < -90 || lat > 90 {
		return domain.Coordinate{}, fmt.Errorf("%w: latitude must be between -90 and 90", domain.ErrInvalidCoordinates)
	}
	return domain.Coordinate{Lon: lon, Lat: lat}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
