package location

import (
	"context"
	"sync"
	"time"
)

// PushProvider 由外部推送事件的定位源
// 宿主（HTTP 接入层或测试）调用 PushFix / PushHeading 注入事件，
// 采样节奏由宿主控制，interval 仅作为对宿主的建议值
type PushProvider struct {
	mu       sync.RWMutex
	perm     Permission
	interval time.Duration
	posCB    func(RawFix)
	headCB   func(float64)
}

// NewPushProvider 创建推送式定位源，默认前后台权限均已授予
func NewPushProvider() *PushProvider {
	return &PushProvider{
		perm: Permission{Foreground: true, Background: true},
	}
}

// SetPermission 设置权限授予结果（测试和宿主接入用）
func (p *PushProvider) SetPermission(perm Permission) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.perm = perm
}

// RequestPermissions 实现 Provider
func (p *PushProvider) RequestPermissions(ctx context.Context) (Permission, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.perm.Foreground {
		return Permission{}, ErrPermissionDenied
	}
	return p.perm, nil
}

// WatchPosition 实现 Provider
func (p *PushProvider) WatchPosition(interval time.Duration, cb func(RawFix)) (Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interval = interval
	p.posCB = cb
	return subscriptionFunc(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.posCB = nil
	}), nil
}

// WatchHeading 实现 Provider
func (p *PushProvider) WatchHeading(cb func(float64)) (Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.headCB = cb
	return subscriptionFunc(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.headCB = nil
	}), nil
}

// PushFix 注入一条定位，没有活跃订阅时丢弃
func (p *PushProvider) PushFix(fix RawFix) {
	p.mu.RLock()
	cb := p.posCB
	p.mu.RUnlock()
	if cb != nil {
		cb(fix)
	}
}

// PushHeading 注入一条磁航向
func (p *PushProvider) PushHeading(heading float64) {
	p.mu.RLock()
	cb := p.headCB
	p.mu.RUnlock()
	if cb != nil {
		cb(heading)
	}
}

// Interval 当前下发的采样间隔建议值
func (p *PushProvider) Interval() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.interval
}

// Watching 是否有活跃的定位订阅
func (p *PushProvider) Watching() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.posCB != nil
}

type subscriptionFunc func()

func (f subscriptionFunc) Cancel() { f() }
