package location

import (
	"context"
	"errors"
	"time"
)

// ErrPermissionDenied 前台定位权限被拒绝
var ErrPermissionDenied = errors.New("location permission denied")

// RawFix 平台上报的原始定位
type RawFix struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Speed     *float64 `json:"speed,omitempty"`    // 地速 m/s
	Accuracy  *float64 `json:"accuracy,omitempty"` // 水平精度 米
	Altitude  *float64 `json:"altitude,omitempty"` // 海拔 米
	Heading   *float64 `json:"heading,omitempty"`  // GPS 航向 度
}

// Permission 权限授予结果
// 后台权限被拒不算失败，只是降级为前台采样
type Permission struct {
	Foreground bool
	Background bool
}

// Subscription 订阅句柄
type Subscription interface {
	Cancel()
}

// Provider 平台定位源抽象
// 定位与磁航向是两条独立的异步事件流，由宿主平台回调推入
type Provider interface {
	RequestPermissions(ctx context.Context) (Permission, error)
	WatchPosition(interval time.Duration, cb func(RawFix)) (Subscription, error)
	WatchHeading(cb func(heading float64)) (Subscription, error)
}
