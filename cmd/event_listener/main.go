package main

import (
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/nandanugg/geofence-tracker/config"
)

const (
	exchangeName = "fleet.events"
	queueName    = "geofence_alerts"
)

type alertMessage struct {
	DeviceID string `json:"device_id"`
	Event    string `json:"event"`
	Geofence struct {
		ID     string  `json:"id"`
		Name   string  `json:"name"`
		Radius float64 `json:"radius"`
	} `json:"geofence"`
	Location struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Timestamp int64 `json:"timestamp"`
}

func main() {
	cfg := config.Load()
	cfg.RabbitMQName = "fleet-event-listener"

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	conn, err := config.NewRabbitMQ(cfg)
	if err != nil {
		logger.Fatal("rabbitmq connect", zap.Error(err))
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("rabbitmq channel", zap.Error(err))
	}
	defer func() { _ = ch.Close() }()

	if err := ch.ExchangeDeclare(exchangeName, "fanout", true, false, false, false, nil); err != nil {
		logger.Fatal("declare exchange", zap.Error(err))
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		logger.Fatal("declare queue", zap.Error(err))
	}

	if err := ch.QueueBind(queueName, "", exchangeName, false, nil); err != nil {
		logger.Fatal("bind queue", zap.Error(err))
	}

	msgs, err := ch.Consume(queueName, "", true, false, false, false, nil)
	if err != nil {
		logger.Fatal("consume", zap.Error(err))
	}

	logger.Info("waiting for geofence alerts", zap.String("queue", queueName))

	go func() {
		for msg := range msgs {
			var alert alertMessage
			if err := json.Unmarshal(msg.Body, &alert); err != nil {
				logger.Warn("undecodable alert", zap.Error(err))
				continue
			}
			logger.Info("geofence alert",
				zap.String("device_id", alert.DeviceID),
				zap.String("event", alert.Event),
				zap.String("geofence", alert.Geofence.Name),
				zap.Float64("radius", alert.Geofence.Radius),
				zap.Float64("lat", alert.Location.Latitude),
				zap.Float64("lon", alert.Location.Longitude),
				zap.Int64("timestamp", alert.Timestamp),
			)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
}
