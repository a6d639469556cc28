package location

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/triprec/internal/models"
)

const (
	// SpeedFloor 低于此地速视为静止，GPS 抖动常被报成 0.x m/s 的移动
	SpeedFloor = 0.25 // m/s

	// HeadingDeadBand 磁航向变化不超过该角度时不下发，避免亚度级抖动刷屏
	HeadingDeadBand = 3.0 // 度
)

// Adapter 位置流适配器
// 把平台的定位/磁航向两条事件流归一成单一采样流：
// 压低静止抖动速度、用磁航向替换 GPS 航向，再交给下游
// 两条流对采样的影响在同一把锁下生效，事件处理完才轮到下一个
type Adapter struct {
	logger   *zap.Logger
	provider Provider
	sink     func(models.LocationSample)

	mu           sync.Mutex
	posSub       Subscription
	headSub      Subscription
	lastHeading  float64
	headingValid bool // 是否已收到过通过死区的磁航向
	lastSample   *models.LocationSample
}

// NewAdapter 创建适配器，sink 接收归一化后的采样
func NewAdapter(logger *zap.Logger, provider Provider, sink func(models.LocationSample)) *Adapter {
	return &Adapter{
		logger:   logger,
		provider: provider,
		sink:     sink,
	}
}

// Start 开始采样
// 前台权限被拒返回 ErrPermissionDenied；后台被拒降级继续
// 已启动时定位订阅不重建，磁航向订阅缺失则补上
func (a *Adapter) Start(ctx context.Context, interval time.Duration) error {
	perm, err := a.provider.RequestPermissions(ctx)
	if err != nil {
		return fmt.Errorf("request location permissions: %w", err)
	}
	if !perm.Background {
		a.logger.Warn("Background location denied, tracking is foreground-only")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.headSub == nil {
		sub, err := a.provider.WatchHeading(a.onHeading)
		if err != nil {
			// 没有磁航向只是退回 GPS 航向，不影响定位
			a.logger.Warn("Heading subscription failed", zap.Error(err))
		} else {
			a.headSub = sub
			a.lastHeading = 0
			a.headingValid = false
		}
	}

	if a.posSub != nil {
		return nil
	}

	sub, err := a.provider.WatchPosition(interval, a.onFix)
	if err != nil {
		return fmt.Errorf("watch position: %w", err)
	}
	a.posSub = sub

	a.logger.Info("Location tracking started", zap.Duration("interval", interval))
	return nil
}

// Stop 停止采样，未启动时为空操作
func (a *Adapter) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.posSub != nil {
		a.posSub.Cancel()
		a.posSub = nil
	}
	if a.headSub != nil {
		a.headSub.Cancel()
		a.headSub = nil
	}
}

// Restart 按新的采样间隔重启，间隔配置变更时调用
func (a *Adapter) Restart(ctx context.Context, interval time.Duration) error {
	a.Stop()
	return a.Start(ctx, interval)
}

// Running 定位订阅是否活跃
func (a *Adapter) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.posSub != nil
}

// onFix 处理一条平台定位
func (a *Adapter) onFix(fix RawFix) {
	a.mu.Lock()
	defer a.mu.Unlock()

	speed := fix.Speed
	if speed != nil && *speed < SpeedFloor {
		zero := 0.0
		speed = &zero
	}

	heading := fix.Heading
	if a.headSub != nil && a.headingValid {
		h := a.lastHeading
		heading = &h
	}

	sample := models.LocationSample{
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
		Speed:     speed,
		Accuracy:  fix.Accuracy,
		Altitude:  fix.Altitude,
		Heading:   heading,
	}

	a.lastSample = &sample
	// 持锁下发，定位与航向对采样的影响严格串行
	a.sink(sample)
}

// onHeading 处理一条磁航向，带死区过滤
func (a *Adapter) onHeading(heading float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if math.Abs(heading-a.lastHeading) <= HeadingDeadBand {
		return
	}
	a.lastHeading = heading
	a.headingValid = true

	// 重发最近一次定位并替换航向，下游据坐标未变识别为纯航向刷新
	if a.lastSample == nil {
		return
	}
	h := heading
	sample := *a.lastSample
	sample.Heading = &h
	a.lastSample = &sample
	a.sink(sample)
}
