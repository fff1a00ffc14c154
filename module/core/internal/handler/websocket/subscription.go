package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	ws "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nandanugg/geofence-tracker/module/core/domain"
	"github.com/nandanugg/geofence-tracker/module/core/internal/realtime"
)

// maxFrameBytes bounds inbound frames. Larger frames close the connection
// with 1009 instead of getting an error frame.
const maxFrameBytes = 4096

type deviceLookup interface {
	GetDevice(ctx context.Context, deviceID string) (*domain.Device, error)
}

type inboundMessage struct {
	Type     string `json:"type" validate:"required,eq=subscribe"`
	DeviceID string `json:"deviceId" validate:"required"`
}

// SubscriptionHandler serves the subscribe protocol. Each connection gets
// its own read loop; closing it removes all of its subscriptions.
type SubscriptionHandler struct {
	registry     *realtime.Registry
	devices      deviceLookup
	upgrader     ws.Upgrader
	writeTimeout time.Duration
	validate     *validator.Validate
	logger       *zap.Logger
}

func NewSubscriptionHandler(registry *realtime.Registry, devices deviceLookup, writeTimeout time.Duration, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		registry: registry,
		devices:  devices,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// callers are authenticated upstream
			CheckOrigin: func(*http.Request) bool { return true },
		},
		writeTimeout: writeTimeout,
		validate:     validator.New(),
		logger:       logger.Named("ws"),
	}
}

func (h *SubscriptionHandler) Register(r *gin.RouterGroup) {
	r.GET("/ws", h.Serve)
}

func (h *SubscriptionHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("upgrade failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	cl := newClient(conn, h.writeTimeout)
	defer func() {
		cl.close()
		h.registry.UnsubscribeByConnection(cl)
	}()

	ctx := c.Request.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ws.IsUnexpectedCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway, ws.CloseNoStatusReceived) {
				h.logger.Debug("connection closed", zap.Error(err))
			}
			return
		}
		h.handleFrame(ctx, cl, data)
	}
}

func (h *SubscriptionHandler) handleFrame(ctx context.Context, cl *client, data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.reply(cl, realtime.NewError(domain.ErrMalformedMessage.Error()))
		return
	}
	if err := h.validate.Struct(&msg); err != nil {
		h.reply(cl, realtime.NewError(domain.ErrMalformedMessage.Error()))
		return
	}

	if _, err := h.devices.GetDevice(ctx, msg.DeviceID); err != nil {
		if errors.Is(err, domain.ErrUnknownDevice) {
			h.reply(cl, realtime.NewError("device not found"))
			return
		}
		h.logger.Error("device lookup", zap.String("device_id", msg.DeviceID), zap.Error(err))
		h.reply(cl, realtime.NewError("subscription failed"))
		return
	}

	h.registry.Subscribe(msg.DeviceID, cl)
	h.reply(cl, realtime.NewSubscribed(msg.DeviceID))
}

func (h *SubscriptionHandler) reply(cl *client, msg any) {
	if err := cl.WriteJSON(msg); err != nil {
		h.logger.Debug("reply failed", zap.Error(err))
	}
}
