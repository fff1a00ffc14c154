package domain

import "time"

// Coordinate is a WGS84 point. It marshals as [lon, lat].
type Coordinate struct {
	Lon float64
	Lat float64
}

// Position is a device's accepted fix as stored on the device record.
type Position struct {
	Coordinate Coordinate `json:"coordinates"`
	Altitude   *float64   `json:"altitude,omitempty"`
	Speed      *float64   `json:"speed,omitempty"`
	Accuracy   *float64   `json:"accuracy,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// LocationFix is a raw fix as handed over by an ingestion collaborator.
// A zero Timestamp means the ingestion time is used.
type LocationFix struct {
	DeviceID    string
	Coordinates []float64
	Altitude    *float64
	Speed       *float64
	Accuracy    *float64
	Timestamp   time.Time
}

type DeviceLocation struct {
	DeviceID string   `json:"device_id"`
	Position Position `json:"position"`
}

type HistoryQuery struct {
	DeviceID string
	Start    time.Time
	End      time.Time
}
