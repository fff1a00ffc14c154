package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/nandanugg/geofence-tracker/config"
)

type locationMessage struct {
	DeviceID    string     `json:"device_id"`
	Coordinates [2]float64 `json:"coordinates"`
	Speed       *float64   `json:"speed,omitempty"`
	Timestamp   int64      `json:"timestamp"`
}

// demo fence center in Jakarta
const (
	centerLat = -6.2088
	centerLon = 106.8456
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <interval_seconds> <device_id>...\n", os.Args[0])
		os.Exit(1)
	}

	intervalSec, err := strconv.Atoi(os.Args[1])
	if err != nil || intervalSec <= 0 {
		fmt.Fprintf(os.Stderr, "error: interval must be a positive integer\n")
		os.Exit(1)
	}
	devices := os.Args[2:]

	cfg := config.Load()
	cfg.MQTTClientID = "fleet-mock-publisher"

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	client, err := config.NewMQTT(cfg, logger)
	if err != nil {
		logger.Fatal("mqtt", zap.Error(err))
	}
	defer client.Disconnect(250)

	logger.Info("publishing",
		zap.String("broker", cfg.MQTTBroker),
		zap.Int("interval_seconds", intervalSec),
		zap.Strings("devices", devices),
	)

	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		id := devices[rand.Intn(len(devices))]

		// drift of roughly 300m around the center so fixes cross a 100m fence
		lat := centerLat + (rand.Float64()-0.5)*0.005
		lon := centerLon + (rand.Float64()-0.5)*0.005
		speed := rand.Float64() * 15

		msg := locationMessage{
			DeviceID:    id,
			Coordinates: [2]float64{lon, lat},
			Speed:       &speed,
			Timestamp:   time.Now().Unix(),
		}

		payload, err := json.Marshal(msg)
		if err != nil {
			logger.Error("marshal", zap.Error(err))
			continue
		}
		topic := fmt.Sprintf("/fleet/device/%s/location", id)

		token := client.Publish(topic, 1, false, payload)
		token.Wait()
		if err := token.Error(); err != nil {
			logger.Warn("publish failed", zap.String("topic", topic), zap.Error(err))
			continue
		}

		logger.Debug("published", zap.String("topic", topic), zap.ByteString("payload", payload))
	}
}
