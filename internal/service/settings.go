package service

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/triprec/internal/repository"
)

// 设置键
const (
	settingSelectedCar    = "selected_car_id"
	settingSampleInterval = "sample_interval_ms"
)

// Settings 会话级设置：选中车辆与采样间隔，持久化在本地库里
type Settings struct {
	logger *zap.Logger
	repo   *repository.SettingsRepository
}

// NewSettings 创建设置服务
func NewSettings(logger *zap.Logger, repo *repository.SettingsRepository) *Settings {
	return &Settings{logger: logger, repo: repo}
}

// SelectedCar 当前选中车辆，未选中或读取失败返回 nil
func (s *Settings) SelectedCar(ctx context.Context) *int64 {
	value, ok, err := s.repo.Get(ctx, settingSelectedCar)
	if err != nil {
		s.logger.Warn("Failed to read selected car", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		s.logger.Warn("Invalid selected car value", zap.String("value", value))
		return nil
	}
	return &id
}

// SelectCar 选中车辆
func (s *Settings) SelectCar(ctx context.Context, id int64) error {
	return s.repo.Set(ctx, settingSelectedCar, strconv.FormatInt(id, 10))
}

// ClearSelectedCar 取消选中
// 删除当前选中的车辆时也要调用，避免 startTrip 捞到悬空引用
func (s *Settings) ClearSelectedCar(ctx context.Context) error {
	return s.repo.Delete(ctx, settingSelectedCar)
}

// SampleInterval 采样间隔，未配置或非法时返回 fallback
func (s *Settings) SampleInterval(ctx context.Context, fallback time.Duration) time.Duration {
	value, ok, err := s.repo.Get(ctx, settingSampleInterval)
	if err != nil {
		s.logger.Warn("Failed to read sample interval", zap.Error(err))
		return fallback
	}
	if !ok {
		return fallback
	}
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil || ms <= 0 {
		s.logger.Warn("Invalid sample interval value", zap.String("value", value))
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

// SetSampleInterval 更新采样间隔
func (s *Settings) SetSampleInterval(ctx context.Context, interval time.Duration) error {
	return s.repo.Set(ctx, settingSampleInterval, strconv.FormatInt(interval.Milliseconds(), 10))
}
