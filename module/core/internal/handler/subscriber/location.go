package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nandanugg/geofence-tracker/module/core/domain"
)

const topicPattern = "/fleet/device/+/location"

type ingestPipeline interface {
	Accept(ctx context.Context, fix *domain.LocationFix) ([]domain.GeofenceTransition, error)
}

type locationMessage struct {
	DeviceID    string    `json:"device_id" validate:"required"`
	Coordinates []float64 `json:"coordinates" validate:"required,len=2"`
	Altitude    *float64  `json:"altitude,omitempty"`
	Speed       *float64  `json:"speed,omitempty"`
	Accuracy    *float64  `json:"accuracy,omitempty"`
	Timestamp   int64     `json:"timestamp" validate:"gte=0"`
}

type LocationSubscriber struct {
	client   mqtt.Client
	pipeline ingestPipeline
	validate *validator.Validate
	logger   *zap.Logger
}

func NewLocationSubscriber(client mqtt.Client, pipeline ingestPipeline, logger *zap.Logger) *LocationSubscriber {
	return &LocationSubscriber{
		client:   client,
		pipeline: pipeline,
		validate: validator.New(),
		logger:   logger.Named("mqtt-subscriber"),
	}
}

func (s *LocationSubscriber) Start() error {
	token := s.client.Subscribe(topicPattern, 1, func(_ mqtt.Client, msg mqtt.Message) {
		if err := s.handleMessage(msg); err != nil {
			s.logger.Warn("location message rejected", zap.String("topic", msg.Topic()), zap.Error(err))
		}
	})
	token.Wait()
	return token.Error()
}

func (s *LocationSubscriber) handleMessage(msg mqtt.Message) error {
	var raw locationMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedMessage, err)
	}

	if err := s.validate.Struct(&raw); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedMessage, err)
	}

	fix := &domain.LocationFix{
		DeviceID:    raw.DeviceID,
		Coordinates: raw.Coordinates,
		Altitude:    raw.Altitude,
		Speed:       raw.Speed,
		Accuracy:    raw.Accuracy,
	}
	if raw.Timestamp > 0 {
		fix.Timestamp = time.Unix(raw.Timestamp, 0)
	}

	_, err := s.pipeline.Accept(context.Background(), fix)
	if errors.Is(err, domain.ErrUnknownDevice) {
		s.logger.Debug("fix for unknown device dropped", zap.String("device_id", raw.DeviceID))
		return nil
	}
	return err
}
