package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nandanugg/geofence-tracker/module/core/domain"
	"github.com/nandanugg/geofence-tracker/module/core/internal/repository/publisher"
)

var _ publisher.GeofencePublisher = (*GeofencePublisher)(nil)

const (
	ExchangeName = "fleet.events"
	QueueName    = "geofence_alerts"
)

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type GeofencePublisher struct {
	ch channel
}

func NewGeofencePublisher(conn *amqp.Connection) (*GeofencePublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(QueueName, "", ExchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	return &GeofencePublisher{ch: ch}, nil
}

type alertMessage struct {
	DeviceID  string                `json:"device_id"`
	Event     domain.TransitionType `json:"event"`
	Geofence  alertGeofence         `json:"geofence"`
	Location  alertLocation         `json:"location"`
	Timestamp int64                 `json:"timestamp"`
}

type alertGeofence struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Radius float64 `json:"radius"`
}

type alertLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p *GeofencePublisher) PublishAlert(ctx context.Context, alert *domain.GeofenceAlert) error {
	msg := alertMessage{
		DeviceID: alert.DeviceID,
		Event:    alert.Event,
		Geofence: alertGeofence{
			ID:     alert.Geofence.ID,
			Name:   alert.Geofence.Name,
			Radius: alert.Geofence.RadiusMeters,
		},
		Location: alertLocation{
			Latitude:  alert.Position.Coordinate.Lat,
			Longitude: alert.Position.Coordinate.Lon,
		},
		Timestamp: alert.Timestamp,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	return p.ch.PublishWithContext(ctx, ExchangeName, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}
