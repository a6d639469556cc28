package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/langchou/triprec/internal/location"
	"github.com/langchou/triprec/internal/repository"
	"github.com/langchou/triprec/internal/service"
	"github.com/langchou/triprec/pkg/ws"
)

// Handler HTTP 处理器
type Handler struct {
	logger          *zap.Logger
	carRepo         *repository.CarRepository
	tripRepo        *repository.TripRepository
	pointRepo       *repository.TripPointRepository
	recorder        *service.Recorder
	settings        *service.Settings
	adapter         *location.Adapter
	provider        *location.PushProvider
	wsHub           *ws.Hub
	defaultInterval time.Duration
	upgrader        websocket.Upgrader
}

// NewHandler 创建处理器
func NewHandler(
	logger *zap.Logger,
	carRepo *repository.CarRepository,
	tripRepo *repository.TripRepository,
	pointRepo *repository.TripPointRepository,
	recorder *service.Recorder,
	settings *service.Settings,
	adapter *location.Adapter,
	provider *location.PushProvider,
	wsHub *ws.Hub,
	defaultInterval time.Duration,
) *Handler {
	return &Handler{
		logger:          logger,
		carRepo:         carRepo,
		tripRepo:        tripRepo,
		pointRepo:       pointRepo,
		recorder:        recorder,
		settings:        settings,
		adapter:         adapter,
		provider:        provider,
		wsHub:           wsHub,
		defaultInterval: defaultInterval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 本机 UI 层访问，放开来源检查
			},
		},
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	// API 路由
	api := r.Group("/api")
	{
		// 车辆
		api.GET("/cars", h.ListCars)
		api.POST("/cars", h.CreateCar)
		api.PUT("/cars/:id", h.UpdateCar)
		api.DELETE("/cars/:id", h.DeleteCar)
		api.PUT("/cars/:id/select", h.SelectCar)
		api.DELETE("/selection", h.ClearSelection)

		// 行程
		api.POST("/trip/start", h.StartTrip)
		api.POST("/trip/stop", h.StopTrip)
		api.GET("/trips", h.ListTrips)
		api.GET("/trips/:id", h.GetTrip)
		api.GET("/trips/:id/points", h.GetTripPoints)
		api.DELETE("/trips/:id", h.DeleteTrip)

		// 定位接入与采样控制
		api.POST("/location/fix", h.PushFix)
		api.POST("/location/heading", h.PushHeading)
		api.GET("/location", h.GetLocation)
		api.GET("/recording", h.GetRecordingStatus)
		api.POST("/tracking/start", h.StartTracking)
		api.POST("/tracking/stop", h.StopTracking)
		api.PUT("/settings/interval", h.SetSampleInterval)
	}

	// WebSocket
	r.GET("/ws", h.HandleWebSocket)

	// 健康检查
	r.GET("/health", h.HealthCheck)
}

// HandleWebSocket WebSocket 处理
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	client.Register()

	// 启动读写协程
	go client.ReadPump()
	go client.WritePump()
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"tracking":   h.adapter.Running(),
		"ws_clients": h.wsHub.ClientCount(),
	})
}
