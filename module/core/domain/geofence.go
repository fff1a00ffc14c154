package domain

// Geofence is a circular fence around Center. Radius is in meters.
type Geofence struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Center       Coordinate `json:"center"`
	RadiusMeters float64    `json:"radius"`
}

type TransitionType string

const (
	TransitionEnter TransitionType = "enter"
	TransitionExit  TransitionType = "exit"
)

// GeofenceTransition is a crossing of a single geofence boundary between two
// consecutive fixes of a device.
type GeofenceTransition struct {
	Geofence Geofence       `json:"geofence"`
	Event    TransitionType `json:"event"`
}

// GeofenceAlert is the event bus representation of a transition.
type GeofenceAlert struct {
	DeviceID  string         `json:"device_id"`
	Event     TransitionType `json:"event"`
	Geofence  Geofence       `json:"geofence"`
	Position  Position       `json:"position"`
	Timestamp int64          `json:"timestamp"`
}
