package models

// 车辆类型
const (
	VehicleTypeCar  = "car"
	VehicleTypeBike = "bike"
)

// Car 车辆档案
type Car struct {
	ID        int64  `json:"id" db:"id"`
	Type      string `json:"type" db:"type"` // car / bike
	Make      string `json:"make" db:"make"`
	Model     string `json:"model" db:"model"`
	Variant   string `json:"variant" db:"variant"`
	RegNumber string `json:"reg_number" db:"regNumber"`
	Nickname  string `json:"nickname" db:"nickname"` // 必填
}

// Trip 行程记录
// EndTime 为空表示行程进行中
type Trip struct {
	ID        int64   `json:"id" db:"id"`
	CarID     *int64  `json:"car_id,omitempty" db:"carId"`
	StartTime int64   `json:"start_time" db:"startTime"`         // epoch ms
	EndTime   *int64  `json:"end_time,omitempty" db:"endTime"`   // epoch ms
	Distance  float64 `json:"distance" db:"distance"`            // 米
	MaxSpeed  float64 `json:"max_speed" db:"maxSpeed"`           // m/s
	AvgSpeed  float64 `json:"avg_speed" db:"avgSpeed"`           // m/s，结束时计算一次
}

// Active 行程是否进行中
func (t *Trip) Active() bool {
	return t.EndTime == nil
}

// TripPoint 行程轨迹点，写入后不可变
type TripPoint struct {
	ID        int64   `json:"id" db:"id"`
	TripID    int64   `json:"trip_id" db:"tripId"`
	Timestamp int64   `json:"timestamp" db:"timestamp"` // epoch ms
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
	Speed     float64 `json:"speed" db:"speed"`       // m/s
	Accuracy  float64 `json:"accuracy" db:"accuracy"` // 米
	Altitude  float64 `json:"altitude" db:"altitude"` // 米
}

// LocationSample 实时位置采样（瞬态，不落库）
type LocationSample struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Speed     *float64 `json:"speed,omitempty"`    // m/s
	Accuracy  *float64 `json:"accuracy,omitempty"` // 米
	Altitude  *float64 `json:"altitude,omitempty"` // 米
	Heading   *float64 `json:"heading,omitempty"`  // 磁北为 0，顺时针度数
}

// LatLng 路径坐标
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
