package realtime

import (
	"time"

	"github.com/nandanugg/geofence-tracker/module/core/domain"
)

const (
	TypeSubscribe      = "subscribe"
	TypeSubscribed     = "subscribed"
	TypeError          = "error"
	TypeLocationUpdate = "location_update"
	TypeGeofenceEvent  = "geofence_event"
)

type SubscribedMessage struct {
	Type     string `json:"type"`
	DeviceID string `json:"deviceId"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type LocationUpdateMessage struct {
	Type     string       `json:"type"`
	DeviceID string       `json:"deviceId"`
	Data     locationData `json:"data"`
}

type locationData struct {
	Coordinates domain.Coordinate `json:"coordinates"`
	Altitude    *float64          `json:"altitude,omitempty"`
	Speed       *float64          `json:"speed,omitempty"`
	Accuracy    *float64          `json:"accuracy,omitempty"`
	Timestamp   string            `json:"timestamp"`
}

type GeofenceEventMessage struct {
	Type      string                `json:"type"`
	DeviceID  string                `json:"deviceId"`
	EventType domain.TransitionType `json:"eventType"`
	Geofence  geofencePayload       `json:"geofence"`
}

type geofencePayload struct {
	Name   string      `json:"name"`
	Radius float64     `json:"radius"`
	Center centerPoint `json:"center"`
}

type centerPoint struct {
	Coordinates domain.Coordinate `json:"coordinates"`
}

func NewSubscribed(deviceID string) SubscribedMessage {
	return SubscribedMessage{Type: TypeSubscribed, DeviceID: deviceID}
}

func NewError(message string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Message: message}
}

func NewLocationUpdate(deviceID string, pos domain.Position) LocationUpdateMessage {
	return LocationUpdateMessage{
		Type:     TypeLocationUpdate,
		DeviceID: deviceID,
		Data: locationData{
			Coordinates: pos.Coordinate,
			Altitude:    pos.Altitude,
			Speed:       pos.Speed,
			Accuracy:    pos.Accuracy,
			Timestamp:   pos.Timestamp.UTC().Format(time.RFC3339Nano),
		},
	}
}

func NewGeofenceEvent(deviceID string, t domain.GeofenceTransition) GeofenceEventMessage {
	return GeofenceEventMessage{
		Type:      TypeGeofenceEvent,
		DeviceID:  deviceID,
		EventType: t.Event,
		Geofence: geofencePayload{
			Name:   t.Geofence.Name,
			Radius: t.Geofence.RadiusMeters,
			Center: centerPoint{Coordinates: t.Geofence.Center},
		},
	}
}
