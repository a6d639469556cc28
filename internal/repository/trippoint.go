package repository

import (
	"context"
	"fmt"

	"github.com/langchou/triprec/internal/models"
)

// TripPointRepository 轨迹点数据仓库
type TripPointRepository struct {
	db *DB
}

// NewTripPointRepository 创建轨迹点仓库
func NewTripPointRepository(db *DB) *TripPointRepository {
	return &TripPointRepository{db: db}
}

// Append 追加一个轨迹点
// 录制时每个有效采样写一条，调用频率可能达到每秒数次
func (r *TripPointRepository) Append(ctx context.Context, point *models.TripPoint) error {
	query := `
		INSERT INTO trip_points (tripId, timestamp, latitude, longitude, speed, accuracy, altitude)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.SQL.ExecContext(ctx, query,
		point.TripID,
		point.Timestamp,
		point.Latitude,
		point.Longitude,
		point.Speed,
		point.Accuracy,
		point.Altitude,
	)
	if err != nil {
		return fmt.Errorf("insert trip point: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert trip point id: %w", err)
	}
	point.ID = id
	return nil
}

// ListByTrip 获取行程的全部轨迹点，按时间升序
func (r *TripPointRepository) ListByTrip(ctx context.Context, tripID int64) ([]*models.TripPoint, error) {
	query := `
		SELECT id, tripId, timestamp, latitude, longitude, speed, accuracy, altitude
		FROM trip_points WHERE tripId = ? ORDER BY timestamp ASC
	`
	rows, err := r.db.SQL.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, fmt.Errorf("list trip points: %w", err)
	}
	defer rows.Close()

	var points []*models.TripPoint
	for rows.Next() {
		point := &models.TripPoint{}
		err := rows.Scan(
			&point.ID,
			&point.TripID,
			&point.Timestamp,
			&point.Latitude,
			&point.Longitude,
			&point.Speed,
			&point.Accuracy,
			&point.Altitude,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trip point: %w", err)
		}
		points = append(points, point)
	}

	return points, rows.Err()
}

// CountByTrip 统计行程轨迹点数
func (r *TripPointRepository) CountByTrip(ctx context.Context, tripID int64) (int64, error) {
	var count int64
	err := r.db.SQL.QueryRowContext(ctx, `SELECT COUNT(*) FROM trip_points WHERE tripId = ?`, tripID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count trip points: %w", err)
	}
	return count, nil
}
