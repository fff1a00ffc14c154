package realtime

import (
	"go.uber.org/zap"

	"github.com/nandanugg/geofence-tracker/module/core/domain"
)

// Dispatcher pushes device updates to the subscriber found in the registry.
// Delivery is best effort: missing or closed subscribers are skipped and
// write failures are logged, never returned.
type Dispatcher struct {
	registry *Registry
	logger   *zap.Logger
}

func NewDispatcher(registry *Registry, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, logger: logger.Named("dispatcher")}
}

func (d *Dispatcher) SendLocationUpdate(deviceID string, pos domain.Position) {
	d.send(deviceID, NewLocationUpdate(deviceID, pos))
}

func (d *Dispatcher) SendGeofenceEvent(deviceID string, t domain.GeofenceTransition) {
	d.send(deviceID, NewGeofenceEvent(deviceID, t))
}

// Dispatch sends the location update first, then each transition in order.
func (d *Dispatcher) Dispatch(deviceID string, pos domain.Position, transitions []domain.GeofenceTransition) {
	d.SendLocationUpdate(deviceID, pos)
	for _, t := range transitions {
		d.SendGeofenceEvent(deviceID, t)
	}
}

func (d *Dispatcher) send(deviceID string, msg any) {
	// Lookup takes the registry lock only for the map read; the write
	// below happens without it.
	conn, ok := d.registry.Lookup(deviceID)
	if !ok || !conn.Open() {
		return
	}
	if err := conn.WriteJSON(msg); err != nil {
		d.logger.Warn("dispatch failed", zap.String("device_id", deviceID), zap.Error(err))
	}
}
