package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/geofence-tracker/module/core/domain"
)

type mockPipeline struct {
	acceptFn func(ctx context.Context, fix *domain.LocationFix) ([]domain.GeofenceTransition, error)
}

func (m *mockPipeline) Accept(ctx context.Context, fix *domain.LocationFix) ([]domain.GeofenceTransition, error) {
	return m.acceptFn(ctx, fix)
}

type mockLocationService struct {
	getDeviceFn     func(ctx context.Context, deviceID string) (*domain.Device, error)
	getHistoryFn    func(ctx context.Context, query *domain.HistoryQuery) ([]domain.DeviceLocation, error)
	getAllDevicesFn func(ctx context.Context) ([]domain.Device, error)
}

func (m *mockLocationService) GetDevice(ctx context.Context, deviceID string) (*domain.Device, error) {
	return m.getDeviceFn(ctx, deviceID)
}

func (m *mockLocationService) GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.DeviceLocation, error) {
	return m.getHistoryFn(ctx, query)
}

func (m *mockLocationService) GetAllDevices(ctx context.Context) ([]domain.Device, error) {
	return m.getAllDevicesFn(ctx)
}

func setupRouter(p ingestPipeline, svc locationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewDeviceHandler(p, svc)
	h.Register(r.Group(""))
	return r
}

func post(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestIngestLocation_Success(t *testing.T) {
	var got *domain.LocationFix
	p := &mockPipeline{
		acceptFn: func(_ context.Context, fix *domain.LocationFix) ([]domain.GeofenceTransition, error) {
			got = fix
			return []domain.GeofenceTransition{{
				Geofence: domain.Geofence{ID: "gf-1", Name: "Depot", RadiusMeters: 50},
				Event:    domain.TransitionEnter,
			}}, nil
		},
	}

	r := setupRouter(p, &mockLocationService{})
	w := post(r, "/devices/B1234XYZ/locations", `{"coordinates":[106.8456,-6.2088],"speed":8.5,"timestamp":"2024-05-06T13:50:56Z"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if got.DeviceID != "B1234XYZ" {
		t.Errorf("expected B1234XYZ, got %s", got.DeviceID)
	}
	if got.Coordinates[0] != 106.8456 || got.Coordinates[1] != -6.2088 {
		t.Errorf("unexpected coordinates %v", got.Coordinates)
	}
	if got.Speed == nil || *got.Speed != 8.5 {
		t.Errorf("expected speed 8.5, got %v", got.Speed)
	}
	if got.Altitude != nil {
		t.Errorf("expected no altitude, got %v", *got.Altitude)
	}
	if !got.Timestamp.Equal(time.Date(2024, 5, 6, 13, 50, 56, 0, time.UTC)) {
		t.Errorf("unexpected timestamp %v", got.Timestamp)
	}

	var resp ingestResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Transitions) != 1 || resp.Transitions[0].Event != domain.TransitionEnter {
		t.Errorf("unexpected transitions %+v", resp.Transitions)
	}
}

func TestIngestLocation_NoTimestampLeavesZero(t *testing.T) {
	p := &mockPipeline{
		acceptFn: func(_ context.Context, fix *domain.LocationFix) ([]domain.GeofenceTransition, error) {
			if !fix.Timestamp.IsZero() {
				t.Errorf("expected zero timestamp, got %v", fix.Timestamp)
			}
			return nil, nil
		},
	}

	r := setupRouter(p, &mockLocationService{})
	w := post(r, "/devices/B1234XYZ/locations", `{"coordinates":[0,0]}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"transitions":[]`) {
		t.Errorf("expected empty transitions array, got %s", w.Body.String())
	}
}

func TestIngestLocation_BadPayload(t *testing.T) {
	p := &mockPipeline{
		acceptFn: func(context.Context, *domain.LocationFix) ([]domain.GeofenceTransition, error) {
			t.Fatal("Accept should not be called")
			return nil, nil
		},
	}
	r := setupRouter(p, &mockLocationService{})

	for _, body := range []string{`invalid`, `{}`, `{"coordinates":[1]}`, `{"coordinates":[1,2,3]}`} {
		w := post(r, "/devices/B1234XYZ/locations", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, w.Code)
		}
	}
}

func TestIngestLocation_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: latitude out of range", domain.ErrInvalidCoordinates), http.StatusBadRequest},
		{domain.ErrUnknownDevice, http.StatusNotFound},
		{fmt.Errorf("%w: db down", domain.ErrPersistence), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			p := &mockPipeline{
				acceptFn: func(context.Context, *domain.LocationFix) ([]domain.GeofenceTransition, error) {
					return nil, tt.err
				},
			}
			r := setupRouter(p, &mockLocationService{})
			w := post(r, "/devices/B1234XYZ/locations", `{"coordinates":[0,95]}`)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestGetLatestLocation_Success(t *testing.T) {
	ts := time.Unix(1715003456, 0)
	svc := &mockLocationService{
		getDeviceFn: func(_ context.Context, deviceID string) (*domain.Device, error) {
			if deviceID != "B1234XYZ" {
				t.Fatalf("unexpected deviceID: %s", deviceID)
			}
			return &domain.Device{
				DeviceID:     "B1234XYZ",
				LastLocation: &domain.Position{Coordinate: domain.Coordinate{Lon: 106.8456, Lat: -6.2088}, Timestamp: ts},
			}, nil
		},
	}

	r := setupRouter(&mockPipeline{}, svc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/devices/B1234XYZ/location", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp locationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Latitude != -6.2088 {
		t.Errorf("expected -6.2088, got %f", resp.Latitude)
	}
	if resp.Timestamp != 1715003456 {
		t.Errorf("expected 1715003456, got %d", resp.Timestamp)
	}
}

func TestGetLatestLocation_NotFound(t *testing.T) {
	svc := &mockLocationService{
		getDeviceFn: func(_ context.Context, _ string) (*domain.Device, error) {
			return nil, domain.ErrUnknownDevice
		},
	}

	r := setupRouter(&mockPipeline{}, svc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/devices/UNKNOWN/location", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetLatestLocation_NeverReported(t *testing.T) {
	svc := &mockLocationService{
		getDeviceFn: func(_ context.Context, id string) (*domain.Device, error) {
			return &domain.Device{DeviceID: id}, nil
		},
	}

	r := setupRouter(&mockPipeline{}, svc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/devices/NEW1/location", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetHistory_Success(t *testing.T) {
	ts1 := time.Unix(1715000000, 0)
	ts2 := time.Unix(1715005000, 0)
	svc := &mockLocationService{
		getHistoryFn: func(_ context.Context, query *domain.HistoryQuery) ([]domain.DeviceLocation, error) {
			if query.DeviceID != "B1234XYZ" {
				t.Fatalf("unexpected deviceID: %s", query.DeviceID)
			}
			return []domain.DeviceLocation{
				{DeviceID: "B1234XYZ", Position: domain.Position{Coordinate: domain.Coordinate{Lon: 106.8, Lat: -6.2}, Timestamp: ts1}},
				{DeviceID: "B1234XYZ", Position: domain.Position{Coordinate: domain.Coordinate{Lon: 106.9, Lat: -6.3}, Timestamp: ts2}},
			}, nil
		},
	}

	r := setupRouter(&mockPipeline{}, svc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/devices/B1234XYZ/history?start=1715000000&end=1715009999", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp []locationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp))
	}
}

func TestGetHistory_InvalidRange(t *testing.T) {
	r := setupRouter(&mockPipeline{}, &mockLocationService{})

	for _, q := range []string{"start=abc&end=1715009999", "start=1715000000&end=abc"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/devices/B1234XYZ/history?"+q, nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, w.Code)
		}
	}
}

func TestGetHistory_ServiceError(t *testing.T) {
	svc := &mockLocationService{
		getHistoryFn: func(_ context.Context, _ *domain.HistoryQuery) ([]domain.DeviceLocation, error) {
			return nil, errors.New("db error")
		},
	}

	r := setupRouter(&mockPipeline{}, svc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/devices/B1234XYZ/history?start=1715000000&end=1715009999", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestGetAllDevices_Success(t *testing.T) {
	svc := &mockLocationService{
		getAllDevicesFn: func(_ context.Context) ([]domain.Device, error) {
			return []domain.Device{
				{DeviceID: "B1234XYZ"},
				{DeviceID: "B5678ABC"},
			}, nil
		},
	}

	r := setupRouter(&mockPipeline{}, svc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/devices", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp []domain.Device
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(resp))
	}
}

func TestGetAllDevices_Error(t *testing.T) {
	svc := &mockLocationService{
		getAllDevicesFn: func(_ context.Context) ([]domain.Device, error) {
			return nil, errors.New("db error")
		},
	}

	r := setupRouter(&mockPipeline{}, svc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/devices", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
