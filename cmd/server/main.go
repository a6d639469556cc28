package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/langchou/triprec/internal/api/handlers"
	"github.com/langchou/triprec/internal/config"
	"github.com/langchou/triprec/internal/location"
	"github.com/langchou/triprec/internal/repository"
	"github.com/langchou/triprec/internal/service"
	"github.com/langchou/triprec/pkg/ws"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	logger.Info("Starting triprec", zap.String("port", cfg.ServerPort), zap.String("db", cfg.DBPath))

	// 创建 context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 打开本地数据库
	db, err := repository.New(cfg.DBPath)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	// 执行数据库迁移
	if err := db.Migrate(ctx, logger); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Info("Database migrated successfully")

	// 创建 Repository
	carRepo := repository.NewCarRepository(db)
	tripRepo := repository.NewTripRepository(db)
	pointRepo := repository.NewTripPointRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	// 创建 WebSocket Hub
	wsHub := ws.NewHub(logger)
	go wsHub.Run()

	// 创建服务
	settings := service.NewSettings(logger, settingsRepo)
	recorder := service.NewRecorder(logger, tripRepo, pointRepo, settings, wsHub)

	// 上次异常退出可能留下未结束的行程，启动时收尾
	if trip, err := tripRepo.GetActive(ctx); err == nil && trip != nil {
		logger.Warn("Found unfinished trip from previous run, closing it", zap.Int64("trip_id", trip.ID))
		if err := tripRepo.Finish(ctx, trip.ID, trip.Distance, trip.MaxSpeed, trip.AvgSpeed); err != nil {
			logger.Error("Failed to close stale trip", zap.Error(err))
		}
	}

	// 定位源与位置流适配器
	provider := location.NewPushProvider()
	adapter := location.NewAdapter(logger, provider, recorder.Sink())

	// 新连上的客户端先收到一份完整快照
	wsHub.SetInitDataProvider(func() *ws.InitData {
		cars, err := carRepo.List(context.Background())
		if err != nil {
			logger.Warn("Failed to load cars for init data", zap.Error(err))
		}
		return &ws.InitData{
			Cars:      cars,
			Recording: recorder.Status(),
			Location:  recorder.CurrentLocation(),
		}
	})

	// 创建 HTTP 处理器
	handler := handlers.NewHandler(
		logger,
		carRepo,
		tripRepo,
		pointRepo,
		recorder,
		settings,
		adapter,
		provider,
		wsHub,
		cfg.SampleInterval,
	)

	// 设置 Gin 模式
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// 注册路由
	handler.RegisterRoutes(router)

	// 启动 HTTP 服务器
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", server.Addr))

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// 停止采样；进行中的行程落库收尾
	adapter.Stop()
	if err := recorder.StopTrip(context.Background()); err != nil && err != service.ErrNoActiveTrip {
		logger.Error("Failed to stop active trip", zap.Error(err))
	}

	// 优雅关闭
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// initLogger 初始化日志
func initLogger(debug bool) *zap.Logger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	logger, _ := config.Build()
	return logger
}

// corsMiddleware CORS 中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
