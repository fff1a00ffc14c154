package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/geofence-tracker/module/core/domain"
)

type ingestPipeline interface {
	Accept(ctx context.Context, fix *domain.LocationFix) ([]domain.GeofenceTransition, error)
}

type locationService interface {
	GetDevice(ctx context.Context, deviceID string) (*domain.Device, error)
	GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.DeviceLocation, error)
	GetAllDevices(ctx context.Context) ([]domain.Device, error)
}

type ingestRequest struct {
	Coordinates []float64  `json:"coordinates" binding:"required,len=2"`
	Altitude    *float64   `json:"altitude"`
	Speed       *float64   `json:"speed"`
	Accuracy    *float64   `json:"accuracy"`
	Timestamp   *time.Time `json:"timestamp"`
}

type ingestResponse struct {
	DeviceID    string                      `json:"device_id"`
	Transitions []domain.GeofenceTransition `json:"transitions"`
}

type locationResponse struct {
	DeviceID  string  `json:"device_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

type DeviceHandler struct {
	pipeline    ingestPipeline
	locationSvc locationService
}

func NewDeviceHandler(pipeline ingestPipeline, locationSvc locationService) *DeviceHandler {
	return &DeviceHandler{pipeline: pipeline, locationSvc: locationSvc}
}

func (h *DeviceHandler) Register(r *gin.RouterGroup) {
	r.GET("/devices", h.GetAllDevices)
	r.POST("/devices/:device_id/locations", h.IngestLocation)
	r.GET("/devices/:device_id/location", h.GetLatestLocation)
	r.GET("/devices/:device_id/history", h.GetHistory)
}

func (h *DeviceHandler) IngestLocation(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location payload"})
		return
	}

	fix := &domain.LocationFix{
		DeviceID:    c.Param("device_id"),
		Coordinates: req.Coordinates,
		Altitude:    req.Altitude,
		Speed:       req.Speed,
		Accuracy:    req.Accuracy,
	}
	if req.Timestamp != nil {
		fix.Timestamp = *req.Timestamp
	}

	transitions, err := h.pipeline.Accept(c.Request.Context(), fix)
	if err != nil {
		status, msg := errorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	if transitions == nil {
		transitions = []domain.GeofenceTransition{}
	}
	c.JSON(http.StatusCreated, ingestResponse{DeviceID: fix.DeviceID, Transitions: transitions})
}

func (h *DeviceHandler) GetAllDevices(c *gin.Context) {
	devices, err := h.locationSvc.GetAllDevices(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch devices"})
		return
	}
	if devices == nil {
		devices = []domain.Device{}
	}

	c.JSON(http.StatusOK, devices)
}

func (h *DeviceHandler) GetLatestLocation(c *gin.Context) {
	deviceID := c.Param("device_id")

	d, err := h.locationSvc.GetDevice(c.Request.Context(), deviceID)
	if err != nil {
		status, msg := errorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	if d.LastLocation == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no location reported"})
		return
	}

	c.JSON(http.StatusOK, toLocationResponse(&domain.DeviceLocation{DeviceID: d.DeviceID, Position: *d.LastLocation}))
}

func (h *DeviceHandler) GetHistory(c *gin.Context) {
	deviceID := c.Param("device_id")

	start, err := strconv.ParseInt(c.Query("start"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start parameter"})
		return
	}

	end, err := strconv.ParseInt(c.Query("end"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end parameter"})
		return
	}

	query := &domain.HistoryQuery{
		DeviceID: deviceID,
		Start:    time.Unix(start, 0),
		End:      time.Unix(end, 0),
	}

	locations, err := h.locationSvc.GetHistory(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch history"})
		return
	}

	results := make([]locationResponse, len(locations))
	for i, dl := range locations {
		results[i] = toLocationResponse(&dl)
	}
	c.JSON(http.StatusOK, results)
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidCoordinates), errors.Is(err, domain.ErrMalformedMessage):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrUnknownDevice):
		return http.StatusNotFound, "device not found"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func toLocationResponse(dl *domain.DeviceLocation) locationResponse {
	return locationResponse{
		DeviceID:  dl.DeviceID,
		Latitude:  dl.Position.Coordinate.Lat,
		Longitude: dl.Position.Coordinate.Lon,
		Timestamp: dl.Position.Timestamp.Unix(),
	}
}
