package domain

import (
	"encoding/json"
	"fmt"
)

func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Lon, c.Lat})
}

func (c *Coordinate) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("coordinates: expected [lon, lat], got %d values", len(pair))
	}
	c.Lon, c.Lat = pair[0], pair[1]
	return nil
}
