package repository

import (
	"context"
	"fmt"

	"github.com/langchou/triprec/internal/models"
)

// CarRepository 车辆数据仓库
type CarRepository struct {
	db *DB
}

// NewCarRepository 创建车辆仓库
func NewCarRepository(db *DB) *CarRepository {
	return &CarRepository{db: db}
}

// Create 创建车辆
func (r *CarRepository) Create(ctx context.Context, car *models.Car) error {
	if car.Type == "" {
		car.Type = models.VehicleTypeCar
	}
	query := `
		INSERT INTO cars (type, make, model, variant, regNumber, nickname)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.SQL.ExecContext(ctx, query,
		car.Type,
		car.Make,
		car.Model,
		car.Variant,
		car.RegNumber,
		car.Nickname,
	)
	if err != nil {
		return fmt.Errorf("insert car: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert car id: %w", err)
	}
	car.ID = id
	return nil
}

// Update 更新车辆
func (r *CarRepository) Update(ctx context.Context, car *models.Car) error {
	query := `
		UPDATE cars SET type = ?, make = ?, model = ?, variant = ?, regNumber = ?, nickname = ?
		WHERE id = ?
	`
	_, err := r.db.SQL.ExecContext(ctx, query,
		car.Type,
		car.Make,
		car.Model,
		car.Variant,
		car.RegNumber,
		car.Nickname,
		car.ID,
	)
	if err != nil {
		return fmt.Errorf("update car: %w", err)
	}
	return nil
}

// GetByID 通过 ID 获取车辆
func (r *CarRepository) GetByID(ctx context.Context, id int64) (*models.Car, error) {
	query := `
		SELECT id, type, make, model, variant, regNumber, nickname
		FROM cars WHERE id = ?
	`
	car := &models.Car{}
	err := r.db.SQL.QueryRowContext(ctx, query, id).Scan(
		&car.ID,
		&car.Type,
		&car.Make,
		&car.Model,
		&car.Variant,
		&car.RegNumber,
		&car.Nickname,
	)
	if err != nil {
		return nil, fmt.Errorf("get car by id: %w", err)
	}
	return car, nil
}

// List 获取所有车辆，新建的排在前面
func (r *CarRepository) List(ctx context.Context) ([]*models.Car, error) {
	query := `
		SELECT id, type, make, model, variant, regNumber, nickname
		FROM cars ORDER BY id DESC
	`
	rows, err := r.db.SQL.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list cars: %w", err)
	}
	defer rows.Close()

	var cars []*models.Car
	for rows.Next() {
		car := &models.Car{}
		err := rows.Scan(
			&car.ID,
			&car.Type,
			&car.Make,
			&car.Model,
			&car.Variant,
			&car.RegNumber,
			&car.Nickname,
		)
		if err != nil {
			return nil, fmt.Errorf("scan car: %w", err)
		}
		cars = append(cars, car)
	}

	return cars, rows.Err()
}

// Delete 删除车辆
// 不级联删除行程：先把关联行程的 carId 置空，保留历史记录
func (r *CarRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete car: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE trips SET carId = NULL WHERE carId = ?`, id); err != nil {
		return fmt.Errorf("detach trips: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cars WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete car: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete car: %w", err)
	}
	return nil
}
