package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinate_MarshalsAsLonLatPair(t *testing.T) {
	b, err := json.Marshal(Coordinate{Lon: 106.8456, Lat: -6.2088})
	require.NoError(t, err)
	assert.JSONEq(t, `[106.8456,-6.2088]`, string(b))
}

func TestCoordinate_UnmarshalRejectsWrongArity(t *testing.T) {
	var c Coordinate
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &c))
	assert.Error(t, json.Unmarshal([]byte(`[1,2,3]`), &c))
	assert.Error(t, json.Unmarshal([]byte(`"x"`), &c))

	require.NoError(t, json.Unmarshal([]byte(`[10.5,-3.25]`), &c))
	assert.Equal(t, Coordinate{Lon: 10.5, Lat: -3.25}, c)
}
