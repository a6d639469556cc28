package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/langchou/triprec/internal/models"
)

// TripRepository 行程数据仓库
type TripRepository struct {
	db *DB
}

// NewTripRepository 创建行程仓库
func NewTripRepository(db *DB) *TripRepository {
	return &TripRepository{db: db}
}

// Start 开始行程，只写入开始时间和关联车辆，统计字段留默认值
func (r *TripRepository) Start(ctx context.Context, carID *int64) (int64, error) {
	query := `INSERT INTO trips (startTime, carId) VALUES (?, ?)`
	res, err := r.db.SQL.ExecContext(ctx, query, time.Now().UnixMilli(), carID)
	if err != nil {
		return 0, fmt.Errorf("insert trip: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert trip id: %w", err)
	}
	return id, nil
}

// Finish 结束行程，写入结束时间和最终统计
// id 不存在时更新零行，静默返回；调用方持有的 id 一定来自 Start
func (r *TripRepository) Finish(ctx context.Context, id int64, distance, maxSpeed, avgSpeed float64) error {
	query := `
		UPDATE trips SET endTime = ?, distance = ?, maxSpeed = ?, avgSpeed = ?
		WHERE id = ?
	`
	_, err := r.db.SQL.ExecContext(ctx, query, time.Now().UnixMilli(), distance, maxSpeed, avgSpeed, id)
	if err != nil {
		return fmt.Errorf("finish trip: %w", err)
	}
	return nil
}

// GetByID 获取行程
func (r *TripRepository) GetByID(ctx context.Context, id int64) (*models.Trip, error) {
	query := `
		SELECT id, carId, startTime, endTime, distance, maxSpeed, avgSpeed
		FROM trips WHERE id = ?
	`
	trip := &models.Trip{}
	err := r.db.SQL.QueryRowContext(ctx, query, id).Scan(
		&trip.ID,
		&trip.CarID,
		&trip.StartTime,
		&trip.EndTime,
		&trip.Distance,
		&trip.MaxSpeed,
		&trip.AvgSpeed,
	)
	if err != nil {
		return nil, fmt.Errorf("get trip by id: %w", err)
	}
	return trip, nil
}

// GetActive 获取进行中的行程（endTime 为空）
func (r *TripRepository) GetActive(ctx context.Context) (*models.Trip, error) {
	query := `
		SELECT id, carId, startTime, endTime, distance, maxSpeed, avgSpeed
		FROM trips WHERE endTime IS NULL ORDER BY startTime DESC LIMIT 1
	`
	trip := &models.Trip{}
	err := r.db.SQL.QueryRowContext(ctx, query).Scan(
		&trip.ID,
		&trip.CarID,
		&trip.StartTime,
		&trip.EndTime,
		&trip.Distance,
		&trip.MaxSpeed,
		&trip.AvgSpeed,
	)
	if err != nil {
		return nil, err // 可能是没有进行中的行程
	}
	return trip, nil
}

// List 获取全部行程，最近开始的排在前面
func (r *TripRepository) List(ctx context.Context) ([]*models.Trip, error) {
	query := `
		SELECT id, carId, startTime, endTime, distance, maxSpeed, avgSpeed
		FROM trips ORDER BY startTime DESC
	`
	return r.queryTrips(ctx, query)
}

// ListByCar 获取指定车辆的行程
func (r *TripRepository) ListByCar(ctx context.Context, carID int64) ([]*models.Trip, error) {
	query := `
		SELECT id, carId, startTime, endTime, distance, maxSpeed, avgSpeed
		FROM trips WHERE carId = ? ORDER BY startTime DESC
	`
	return r.queryTrips(ctx, query, carID)
}

func (r *TripRepository) queryTrips(ctx context.Context, query string, args ...interface{}) ([]*models.Trip, error) {
	rows, err := r.db.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	var trips []*models.Trip
	for rows.Next() {
		trip := &models.Trip{}
		err := rows.Scan(
			&trip.ID,
			&trip.CarID,
			&trip.StartTime,
			&trip.EndTime,
			&trip.Distance,
			&trip.MaxSpeed,
			&trip.AvgSpeed,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		trips = append(trips, trip)
	}

	return trips, rows.Err()
}

// Delete 删除行程
// 引擎不做级联，先删轨迹点再删行程，保证不留孤儿点
func (r *TripRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete trip: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM trip_points WHERE tripId = ?`, id); err != nil {
		return fmt.Errorf("delete trip points: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM trips WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete trip: %w", err)
	}
	return nil
}
