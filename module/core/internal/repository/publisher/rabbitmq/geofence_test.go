package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nandanugg/geofence-tracker/module/core/domain"
)

type fakeChannel struct {
	exchange string
	msgs     []amqp.Publishing
	err      error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, _ string, _, _ bool, msg amqp.Publishing) error {
	f.exchange = exchange
	f.msgs = append(f.msgs, msg)
	return f.err
}

func TestPublishAlert(t *testing.T) {
	ch := &fakeChannel{}
	p := &GeofencePublisher{ch: ch}

	err := p.PublishAlert(context.Background(), &domain.GeofenceAlert{
		DeviceID:  "B1234XYZ",
		Event:     domain.TransitionExit,
		Geofence:  domain.Geofence{ID: "gf-1", Name: "Depot", RadiusMeters: 50},
		Position:  domain.Position{Coordinate: domain.Coordinate{Lon: 106.8456, Lat: -6.2088}},
		Timestamp: 1715003456,
	})
	require.NoError(t, err)

	assert.Equal(t, ExchangeName, ch.exchange)
	require.Len(t, ch.msgs, 1)
	assert.Equal(t, "application/json", ch.msgs[0].ContentType)

	var body alertMessage
	require.NoError(t, json.Unmarshal(ch.msgs[0].Body, &body))
	assert.Equal(t, "B1234XYZ", body.DeviceID)
	assert.Equal(t, domain.TransitionExit, body.Event)
	assert.Equal(t, "Depot", body.Geofence.Name)
	assert.Equal(t, -6.2088, body.Location.Latitude)
	assert.Equal(t, int64(1715003456), body.Timestamp)
}

func TestPublishAlert_ChannelError(t *testing.T) {
	p := &GeofencePublisher{ch: &fakeChannel{err: errors.New("channel closed")}}

	err := p.PublishAlert(context.Background(), &domain.GeofenceAlert{DeviceID: "B1234XYZ"})
	assert.Error(t, err)
}
