package geo

import (
	"math"
	"testing"
)

func TestHaversineDistanceEquatorStep(t *testing.T) {
	// 赤道上经度差 0.001° 约 111.19 米
	d := HaversineDistance(0, 0, 0, 0.001)
	if math.Abs(d-111.19) > 0.5 {
		t.Fatalf("unexpected distance: %v", d)
	}
}

func TestHaversineDistanceSamePoint(t *testing.T) {
	d := HaversineDistance(39.9042, 116.4074, 39.9042, 116.4074)
	if d != 0 {
		t.Fatalf("expected 0, got %v", d)
	}
}

func TestHaversineDistanceCityPair(t *testing.T) {
	// 北京到上海约 1070 公里
	d := HaversineDistance(39.9042, 116.4074, 31.2304, 121.4737)
	if d < 1000e3 || d > 1150e3 {
		t.Fatalf("unexpected distance: %v", d)
	}
}

func TestHaversineDistanceSymmetric(t *testing.T) {
	d1 := HaversineDistance(10, 20, 30, 40)
	d2 := HaversineDistance(30, 40, 10, 20)
	if math.Abs(d1-d2) > 1e-9 {
		t.Fatalf("distance not symmetric: %v vs %v", d1, d2)
	}
}
