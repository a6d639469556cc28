package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/triprec/internal/geo"
	"github.com/langchou/triprec/internal/models"
	"github.com/langchou/triprec/internal/repository"
	"github.com/langchou/triprec/internal/state"
	"github.com/langchou/triprec/pkg/ws"
)

var (
	// ErrTripActive 已有进行中的行程
	ErrTripActive = errors.New("a trip is already active")
	// ErrNoActiveTrip 当前没有进行中的行程
	ErrNoActiveTrip = errors.New("no active trip")
)

// RecordingStatus 录制状态快照（给 API / WebSocket 用）
type RecordingStatus struct {
	Recording bool            `json:"recording"`
	TripID    *int64          `json:"trip_id,omitempty"`
	StartTime *int64          `json:"start_time,omitempty"` // epoch ms
	Distance  float64         `json:"distance"`             // 米
	MaxSpeed  float64         `json:"max_speed"`            // m/s
	Path      []models.LatLng `json:"path,omitempty"`
}

// PathUpdate 轨迹增量消息
type PathUpdate struct {
	TripID   int64         `json:"trip_id"`
	Point    models.LatLng `json:"point"`
	Distance float64       `json:"distance"`
	MaxSpeed float64       `json:"max_speed"`
}

// Recorder 行程录制服务
// 消费归一化采样流，维护实时位置、累计距离、最高速度和内存轨迹，
// 并决定哪些采样落库为轨迹点
// 所有操作经 mu 串行，事件源保证一次只处理一个回调
type Recorder struct {
	logger    *zap.Logger
	machine   *state.Machine
	tripRepo  *repository.TripRepository
	pointRepo *repository.TripPointRepository
	settings  *Settings
	wsHub     *ws.Hub // 可为 nil（测试）

	mu        sync.Mutex
	tripID    int64
	startTime time.Time
	distance  float64 // 米
	maxSpeed  float64 // m/s
	current   *models.LocationSample
	path      []models.LatLng

	subMu       sync.RWMutex
	subscribers []chan models.LocationSample
}

// NewRecorder 创建录制服务
func NewRecorder(
	logger *zap.Logger,
	tripRepo *repository.TripRepository,
	pointRepo *repository.TripPointRepository,
	settings *Settings,
	wsHub *ws.Hub,
) *Recorder {
	r := &Recorder{
		logger:    logger,
		tripRepo:  tripRepo,
		pointRepo: pointRepo,
		settings:  settings,
		wsHub:     wsHub,
	}
	r.machine = state.NewMachine(func(from, to string) {
		logger.Info("Recording state changed", zap.String("from", from), zap.String("to", to))
	})
	return r
}

// StartTrip 开始录制
// 关联车辆取自启动瞬间的选中车辆，行程中不变
func (r *Recorder) StartTrip(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.machine.Recording() {
		return 0, ErrTripActive
	}

	carID := r.settings.SelectedCar(ctx)
	id, err := r.tripRepo.Start(ctx, carID)
	if err != nil {
		return 0, err
	}

	r.tripID = id
	r.startTime = time.Now()
	r.distance = 0
	r.maxSpeed = 0
	r.path = nil

	if err := r.machine.Trigger(state.EventStartTrip); err != nil {
		r.logger.Error("Failed to enter recording state", zap.Error(err))
	}

	r.logger.Info("Started trip", zap.Int64("trip_id", id), zap.Int64p("car_id", carID))
	r.broadcastStatusLocked()
	return id, nil
}

// StopTrip 结束录制
// 平均速度在此一次性计算：累计距离 / 经过秒数，时长为零则为 0
func (r *Recorder) StopTrip(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.machine.Recording() {
		return ErrNoActiveTrip
	}

	elapsed := time.Since(r.startTime).Seconds()
	avgSpeed := 0.0
	if elapsed > 0 {
		avgSpeed = r.distance / elapsed
	}

	if err := r.tripRepo.Finish(ctx, r.tripID, r.distance, r.maxSpeed, avgSpeed); err != nil {
		return err
	}

	r.logger.Info("Completed trip",
		zap.Int64("trip_id", r.tripID),
		zap.Float64("distance_m", r.distance),
		zap.Float64("max_speed_mps", r.maxSpeed),
		zap.Float64("avg_speed_mps", avgSpeed),
		zap.Float64("duration_s", elapsed))

	if err := r.machine.Trigger(state.EventStopTrip); err != nil {
		r.logger.Error("Failed to leave recording state", zap.Error(err))
	}

	r.tripID = 0
	r.path = nil

	r.broadcastStatusLocked()
	return nil
}

// OnSample 处理一条归一化采样，录制与否都会刷新实时位置
func (r *Recorder) OnSample(ctx context.Context, sample models.LocationSample) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.current
	cur := sample
	r.current = &cur

	// 坐标逐位相同视为纯航向/元数据刷新：只更新实时位置，
	// 不动轨迹、距离和落库的点
	moved := prev == nil ||
		prev.Latitude != sample.Latitude ||
		prev.Longitude != sample.Longitude

	if moved && r.machine.Recording() {
		speed := 0.0
		if sample.Speed != nil {
			speed = *sample.Speed
		}

		// 速度为 0 时坐标变化按抖动处理，不计距离
		if prev != nil && speed > 0 {
			r.distance += geo.HaversineDistance(prev.Latitude, prev.Longitude, sample.Latitude, sample.Longitude)
		}

		point := models.LatLng{Latitude: sample.Latitude, Longitude: sample.Longitude}
		r.path = append(r.path, point)

		tp := &models.TripPoint{
			TripID:    r.tripID,
			Timestamp: time.Now().UnixMilli(),
			Latitude:  sample.Latitude,
			Longitude: sample.Longitude,
			Speed:     speed,
			Accuracy:  deref(sample.Accuracy),
			Altitude:  deref(sample.Altitude),
		}
		// 单点落库失败不回滚内存状态也不中断录制
		if err := r.pointRepo.Append(ctx, tp); err != nil {
			r.logger.Warn("Failed to persist trip point",
				zap.Int64("trip_id", r.tripID),
				zap.Error(err))
		}

		if speed > r.maxSpeed {
			r.maxSpeed = speed
		}

		if r.wsHub != nil {
			r.wsHub.BroadcastMessage(ws.MsgTypePathUpdate, PathUpdate{
				TripID:   r.tripID,
				Point:    point,
				Distance: r.distance,
				MaxSpeed: r.maxSpeed,
			})
		}
	}

	if r.wsHub != nil {
		r.wsHub.BroadcastMessage(ws.MsgTypeLocationUpdate, cur)
	}
	r.notifySubscribers(cur)
}

// Sink 以采样回调形式暴露 OnSample，供适配器挂接
func (r *Recorder) Sink() func(models.LocationSample) {
	return func(s models.LocationSample) {
		r.OnSample(context.Background(), s)
	}
}

// CurrentLocation 最近一次采样，录制与否都有效
func (r *Recorder) CurrentLocation() *models.LocationSample {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	cur := *r.current
	return &cur
}

// Status 当前录制状态快照
func (r *Recorder) Status() RecordingStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusLocked()
}

func (r *Recorder) statusLocked() RecordingStatus {
	status := RecordingStatus{
		Recording: r.machine.Recording(),
		Distance:  r.distance,
		MaxSpeed:  r.maxSpeed,
	}
	if status.Recording {
		id := r.tripID
		start := r.startTime.UnixMilli()
		status.TripID = &id
		status.StartTime = &start
		status.Path = append([]models.LatLng(nil), r.path...)
	}
	return status
}

func (r *Recorder) broadcastStatusLocked() {
	if r.wsHub == nil {
		return
	}
	r.wsHub.BroadcastMessage(ws.MsgTypeRecordingState, r.statusLocked())
}

// Subscribe 订阅实时位置更新
func (r *Recorder) Subscribe() <-chan models.LocationSample {
	ch := make(chan models.LocationSample, 64)
	r.subMu.Lock()
	r.subscribers = append(r.subscribers, ch)
	r.subMu.Unlock()
	return ch
}

func (r *Recorder) notifySubscribers(sample models.LocationSample) {
	r.subMu.RLock()
	defer r.subMu.RUnlock()
	for _, ch := range r.subscribers {
		select {
		case ch <- sample:
		default:
			// 慢消费者丢弃，不阻塞采样流
		}
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
