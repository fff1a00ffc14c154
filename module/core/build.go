package core

import (
	"database/sql"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/nandanugg/geofence-tracker/config"
	handler "github.com/nandanugg/geofence-tracker/module/core/internal/handler/http"
	"github.com/nandanugg/geofence-tracker/module/core/internal/handler/subscriber"
	wshandler "github.com/nandanugg/geofence-tracker/module/core/internal/handler/websocket"
	"github.com/nandanugg/geofence-tracker/module/core/internal/realtime"
	"github.com/nandanugg/geofence-tracker/module/core/internal/repository/database/postgres"
	"github.com/nandanugg/geofence-tracker/module/core/internal/repository/publisher/rabbitmq"
	"github.com/nandanugg/geofence-tracker/module/core/service"
)

type Module struct {
	Pipeline    *service.IngestPipeline
	LocationSvc *service.LocationService
	Registry    *realtime.Registry

	handler    *handler.DeviceHandler
	ws         *wshandler.SubscriptionHandler
	subscriber *subscriber.LocationSubscriber
}

func Build(cfg *config.Config, db *sql.DB, amqpConn *amqp.Connection, mqttClient mqtt.Client, logger *zap.Logger) (*Module, error) {
	deviceRepo := postgres.NewDeviceRepo(db)

	geofencePub, err := rabbitmq.NewGeofencePublisher(amqpConn)
	if err != nil {
		return nil, fmt.Errorf("geofence publisher: %w", err)
	}

	registry := realtime.NewRegistry()
	dispatcher := realtime.NewDispatcher(registry, logger)

	pipeline := service.NewIngestPipeline(deviceRepo, dispatcher, geofencePub, logger)
	locationSvc := service.NewLocationService(deviceRepo)

	return &Module{
		Pipeline:    pipeline,
		LocationSvc: locationSvc,
		Registry:    registry,
		handler:     handler.NewDeviceHandler(pipeline, locationSvc),
		ws:          wshandler.NewSubscriptionHandler(registry, locationSvc, cfg.WSWriteTimeout, logger),
		subscriber:  subscriber.NewLocationSubscriber(mqttClient, pipeline, logger),
	}, nil
}

func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	m.handler.Register(r)
	m.ws.Register(r)
}

func (m *Module) StartSubscribers() error {
	return m.subscriber.Start()
}
