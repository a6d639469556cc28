package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/triprec/internal/location"
	"github.com/langchou/triprec/internal/repository"
	"github.com/langchou/triprec/internal/service"
	"github.com/langchou/triprec/pkg/ws"
)

type apiFixture struct {
	router   *gin.Engine
	provider *location.PushProvider
	recorder *service.Recorder
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repository.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background(), zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := zap.NewNop()
	carRepo := repository.NewCarRepository(db)
	tripRepo := repository.NewTripRepository(db)
	pointRepo := repository.NewTripPointRepository(db)
	settings := service.NewSettings(logger, repository.NewSettingsRepository(db))

	hub := ws.NewHub(logger)
	go hub.Run()

	recorder := service.NewRecorder(logger, tripRepo, pointRepo, settings, hub)
	provider := location.NewPushProvider()
	adapter := location.NewAdapter(logger, provider, recorder.Sink())

	handler := NewHandler(logger, carRepo, tripRepo, pointRepo, recorder, settings, adapter, provider, hub, 500*time.Millisecond)
	router := gin.New()
	handler.RegisterRoutes(router)

	return &apiFixture{router: router, provider: provider, recorder: recorder}
}

func (fx *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	return w
}

func TestCarEndpoints(t *testing.T) {
	fx := newAPIFixture(t)

	// 缺 nickname 被拒
	w := fx.do(t, http.MethodPost, "/api/cars", map[string]any{"make": "Honda"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}

	w = fx.do(t, http.MethodPost, "/api/cars", map[string]any{"nickname": "daily", "make": "Honda", "model": "City"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		Data struct {
			ID   int64  `json:"id"`
			Type string `json:"type"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Data.ID == 0 || created.Data.Type != "car" {
		t.Fatalf("unexpected created car: %+v", created.Data)
	}

	w = fx.do(t, http.MethodGet, "/api/cars", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}

	// 选中车辆，404 的 id 被拒
	w = fx.do(t, http.MethodPut, "/api/cars/9999/select", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("select missing car: expected 404, got %d", w.Code)
	}
	w = fx.do(t, http.MethodPut, fmt.Sprintf("/api/cars/%d/select", created.Data.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("select: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = fx.do(t, http.MethodDelete, fmt.Sprintf("/api/cars/%d", created.Data.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", w.Code)
	}
}

func TestTripEndpoints(t *testing.T) {
	fx := newAPIFixture(t)

	w := fx.do(t, http.MethodPost, "/api/trip/stop", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("stop without trip: expected 409, got %d", w.Code)
	}

	w = fx.do(t, http.MethodPost, "/api/trip/start", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = fx.do(t, http.MethodPost, "/api/trip/start", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("double start: expected 409, got %d", w.Code)
	}

	w = fx.do(t, http.MethodGet, "/api/recording", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("recording status: expected 200, got %d", w.Code)
	}
	var status struct {
		Data struct {
			Recording bool   `json:"recording"`
			TripID    *int64 `json:"trip_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Data.Recording || status.Data.TripID == nil {
		t.Fatalf("unexpected status: %+v", status.Data)
	}

	w = fx.do(t, http.MethodPost, "/api/trip/stop", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stop: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = fx.do(t, http.MethodGet, "/api/trips", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list trips: expected 200, got %d", w.Code)
	}

	w = fx.do(t, http.MethodGet, fmt.Sprintf("/api/trips/%d", *status.Data.TripID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get trip: expected 200, got %d", w.Code)
	}
	w = fx.do(t, http.MethodGet, "/api/trips/9999", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing trip: expected 404, got %d", w.Code)
	}
}

func TestLocationEndpoints(t *testing.T) {
	fx := newAPIFixture(t)

	w := fx.do(t, http.MethodGet, "/api/location", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("no location yet: expected 404, got %d", w.Code)
	}

	// 坐标越界被拒
	w = fx.do(t, http.MethodPost, "/api/location/fix", map[string]any{"latitude": 91.0, "longitude": 0.0})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("out-of-range fix: expected 400, got %d", w.Code)
	}

	// 采样未启动时上报被接受但不产生位置
	w = fx.do(t, http.MethodPost, "/api/location/fix", map[string]any{"latitude": 10.0, "longitude": 20.0})
	if w.Code != http.StatusOK {
		t.Fatalf("push fix: expected 200, got %d", w.Code)
	}
	w = fx.do(t, http.MethodGet, "/api/location", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("fix before tracking should be dropped, got %d", w.Code)
	}

	w = fx.do(t, http.MethodPost, "/api/tracking/start", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("start tracking: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = fx.do(t, http.MethodPost, "/api/location/fix", map[string]any{"latitude": 10.0, "longitude": 20.0, "speed": 5.0})
	if w.Code != http.StatusOK {
		t.Fatalf("push fix: expected 200, got %d", w.Code)
	}

	w = fx.do(t, http.MethodGet, "/api/location", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get location: expected 200, got %d", w.Code)
	}
	var loc struct {
		Data struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &loc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if loc.Data.Latitude != 10 || loc.Data.Longitude != 20 {
		t.Fatalf("unexpected location: %+v", loc.Data)
	}

	w = fx.do(t, http.MethodPost, "/api/tracking/stop", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stop tracking: expected 200, got %d", w.Code)
	}
}

func TestStartTrackingPermissionDenied(t *testing.T) {
	fx := newAPIFixture(t)
	fx.provider.SetPermission(location.Permission{Foreground: false, Background: false})

	w := fx.do(t, http.MethodPost, "/api/tracking/start", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSetSampleInterval(t *testing.T) {
	fx := newAPIFixture(t)

	w := fx.do(t, http.MethodPut, "/api/settings/interval", map[string]any{"interval_ms": 0})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("zero interval: expected 400, got %d", w.Code)
	}

	w = fx.do(t, http.MethodPut, "/api/settings/interval", map[string]any{"interval_ms": 1000})
	if w.Code != http.StatusOK {
		t.Fatalf("set interval: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// 采样中更新间隔会按新值重启
	w = fx.do(t, http.MethodPost, "/api/tracking/start", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("start tracking: expected 200, got %d", w.Code)
	}
	w = fx.do(t, http.MethodPut, "/api/settings/interval", map[string]any{"interval_ms": 2000})
	if w.Code != http.StatusOK {
		t.Fatalf("set interval while tracking: expected 200, got %d", w.Code)
	}
	if got := fx.provider.Interval(); got != 2*time.Second {
		t.Fatalf("expected provider restarted with 2s, got %v", got)
	}
}

func TestHealthCheck(t *testing.T) {
	fx := newAPIFixture(t)

	w := fx.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Status   string `json:"status"`
		Tracking bool   `json:"tracking"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Tracking {
		t.Fatalf("unexpected health: %+v", body)
	}
}
