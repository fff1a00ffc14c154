package domain

// Device is owned by the persistence layer. The core only reads its
// geofences and writes back LastLocation.
type Device struct {
	DeviceID     string     `json:"device_id"`
	LastLocation *Position  `json:"last_location,omitempty"`
	Geofences    []Geofence `json:"geofences"`
}
