package location

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/triprec/internal/models"
)

// stubProvider 可控的定位源，统计订阅次数
type stubProvider struct {
	perm       Permission
	posCB      func(RawFix)
	headCB     func(float64)
	posWatches int
}

func newStubProvider() *stubProvider {
	return &stubProvider{perm: Permission{Foreground: true, Background: true}}
}

func (p *stubProvider) RequestPermissions(ctx context.Context) (Permission, error) {
	if !p.perm.Foreground {
		return Permission{}, ErrPermissionDenied
	}
	return p.perm, nil
}

func (p *stubProvider) WatchPosition(interval time.Duration, cb func(RawFix)) (Subscription, error) {
	p.posWatches++
	p.posCB = cb
	return subscriptionFunc(func() { p.posCB = nil }), nil
}

func (p *stubProvider) WatchHeading(cb func(float64)) (Subscription, error) {
	p.headCB = cb
	return subscriptionFunc(func() { p.headCB = nil }), nil
}

func newTestAdapter(t *testing.T, provider Provider) (*Adapter, *[]models.LocationSample) {
	t.Helper()
	var samples []models.LocationSample
	a := NewAdapter(zap.NewNop(), provider, func(s models.LocationSample) {
		samples = append(samples, s)
	})
	return a, &samples
}

func f(v float64) *float64 { return &v }

func TestSpeedFloor(t *testing.T) {
	p := newStubProvider()
	a, samples := newTestAdapter(t, p)
	if err := a.Start(context.Background(), time.Second); err != nil {
		t.Fatalf("start: %v", err)
	}

	p.posCB(RawFix{Latitude: 1, Longitude: 1, Speed: f(0.2)})
	p.posCB(RawFix{Latitude: 1, Longitude: 2, Speed: f(0.24)})
	p.posCB(RawFix{Latitude: 1, Longitude: 3, Speed: f(0.25)})
	p.posCB(RawFix{Latitude: 1, Longitude: 4, Speed: f(7.5)})
	p.posCB(RawFix{Latitude: 1, Longitude: 5})

	got := *samples
	if len(got) != 5 {
		t.Fatalf("expected 5 samples, got %d", len(got))
	}
	if *got[0].Speed != 0 || *got[1].Speed != 0 {
		t.Fatalf("speeds below floor should clamp to 0: %v %v", *got[0].Speed, *got[1].Speed)
	}
	if *got[2].Speed != 0.25 || *got[3].Speed != 7.5 {
		t.Fatalf("speeds at or above floor should pass through: %v %v", *got[2].Speed, *got[3].Speed)
	}
	if got[4].Speed != nil {
		t.Fatal("nil speed should stay nil")
	}
}

func TestHeadingDeadBand(t *testing.T) {
	p := newStubProvider()
	a, samples := newTestAdapter(t, p)
	if err := a.Start(context.Background(), time.Second); err != nil {
		t.Fatalf("start: %v", err)
	}

	// 先有一次定位，之后的航向刷新才有采样可以重发
	p.posCB(RawFix{Latitude: 10, Longitude: 20, Speed: f(1)})
	base := len(*samples)

	p.headCB(2)   // |2-0| <= 3，拦下
	p.headCB(3)   // 恰好 3 度也拦下
	p.headCB(4)   // 通过，基准变为 4
	p.headCB(6.5) // |6.5-4| <= 3，拦下
	p.headCB(7.5) // 通过

	got := (*samples)[base:]
	if len(got) != 2 {
		t.Fatalf("expected 2 heading refreshes, got %d", len(got))
	}
	if *got[0].Heading != 4 || *got[1].Heading != 7.5 {
		t.Fatalf("unexpected headings: %v %v", *got[0].Heading, *got[1].Heading)
	}
	// 纯航向刷新坐标不变
	if got[0].Latitude != 10 || got[0].Longitude != 20 {
		t.Fatalf("heading refresh moved the sample: %+v", got[0])
	}
}

func TestHeadingSubstitution(t *testing.T) {
	p := newStubProvider()
	a, samples := newTestAdapter(t, p)
	if err := a.Start(context.Background(), time.Second); err != nil {
		t.Fatalf("start: %v", err)
	}

	// 磁航向生效前，GPS 航向原样通过
	p.posCB(RawFix{Latitude: 1, Longitude: 1, Heading: f(90)})
	if got := *samples; *got[len(got)-1].Heading != 90 {
		t.Fatalf("expected gps heading 90, got %v", *got[len(got)-1].Heading)
	}

	// 磁航向通过死区后，覆盖后续定位的航向
	p.headCB(10)
	p.posCB(RawFix{Latitude: 1, Longitude: 2, Heading: f(180)})

	got := *samples
	last := got[len(got)-1]
	if last.Heading == nil || *last.Heading != 10 {
		t.Fatalf("expected magnetometer heading 10, got %v", last.Heading)
	}
}

func TestStartPermissionDenied(t *testing.T) {
	p := newStubProvider()
	p.perm = Permission{Foreground: false}
	a, _ := newTestAdapter(t, p)

	err := a.Start(context.Background(), time.Second)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if a.Running() {
		t.Fatal("adapter should not be running after denial")
	}
}

func TestStartIdempotent(t *testing.T) {
	p := newStubProvider()
	a, _ := newTestAdapter(t, p)

	if err := a.Start(context.Background(), time.Second); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := a.Start(context.Background(), time.Second); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if p.posWatches != 1 {
		t.Fatalf("position subscription rebuilt on repeated start: %d", p.posWatches)
	}
}

func TestStopSafeWhenNotStarted(t *testing.T) {
	a, _ := newTestAdapter(t, newStubProvider())
	a.Stop() // 不应 panic
	a.Stop()
}

func TestRestartAppliesNewInterval(t *testing.T) {
	p := NewPushProvider()
	a, _ := newTestAdapter(t, p)

	if err := a.Start(context.Background(), 500*time.Millisecond); err != nil {
		t.Fatalf("start: %v", err)
	}
	if p.Interval() != 500*time.Millisecond {
		t.Fatalf("unexpected interval: %v", p.Interval())
	}

	if err := a.Restart(context.Background(), time.Second); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if p.Interval() != time.Second {
		t.Fatalf("interval not reapplied: %v", p.Interval())
	}
	if !a.Running() {
		t.Fatal("adapter should be running after restart")
	}
}

func TestStopCancelsSubscriptions(t *testing.T) {
	p := NewPushProvider()
	var count int
	a := NewAdapter(zap.NewNop(), p, func(models.LocationSample) { count++ })

	if err := a.Start(context.Background(), time.Second); err != nil {
		t.Fatalf("start: %v", err)
	}
	a.Stop()

	p.PushFix(RawFix{Latitude: 1, Longitude: 1})
	p.PushHeading(45)
	if count != 0 {
		t.Fatalf("events delivered after stop: %d", count)
	}
	if p.Watching() {
		t.Fatal("push provider still watching after stop")
	}
}
