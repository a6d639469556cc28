package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// DB 本地数据库封装
type DB struct {
	SQL *sql.DB
}

// New 打开本地 SQLite 数据库
func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	// WAL 模式，轨迹点高频写入时不阻塞读
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{SQL: db}, nil
}

// Close 关闭数据库
func (db *DB) Close() error {
	return db.SQL.Close()
}

// Migrate 执行数据库迁移
// 建表幂等；已有表缺列时做仅追加的前向迁移，迁移失败只记录日志不中断启动
func (db *DB) Migrate(ctx context.Context, logger *zap.Logger) error {
	tables := []string{
		migrationCreateCars,
		migrationCreateTrips,
		migrationCreateTripPoints,
		migrationCreateSettings,
	}

	for _, m := range tables {
		if _, err := db.SQL.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}

	// 仅追加的列迁移（旧版本库缺少的列）
	additive := []columnMigration{
		{table: "trips", column: "carId", ddl: "ALTER TABLE trips ADD COLUMN carId INTEGER REFERENCES cars(id)"},
		{table: "cars", column: "type", ddl: "ALTER TABLE cars ADD COLUMN type TEXT DEFAULT 'car'"},
	}

	for _, cm := range additive {
		if err := db.ensureColumn(ctx, cm); err != nil {
			logger.Warn("Column migration failed, continuing",
				zap.String("table", cm.table),
				zap.String("column", cm.column),
				zap.Error(err))
		}
	}

	// 索引在列迁移之后建，旧库追加的列也要能建上索引
	if _, err := db.SQL.ExecContext(ctx, migrationCreateIndexes); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}

	return nil
}

type columnMigration struct {
	table  string
	column string
	ddl    string
}

// ensureColumn 检查列是否存在，不存在则追加
func (db *DB) ensureColumn(ctx context.Context, cm columnMigration) error {
	rows, err := db.SQL.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", cm.table))
	if err != nil {
		return fmt.Errorf("table_info %s: %w", cm.table, err)
	}
	defer rows.Close()

	exists := false
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    *string
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("scan table_info: %w", err)
		}
		if name == cm.column {
			exists = true
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if exists {
		return nil
	}

	if _, err := db.SQL.ExecContext(ctx, cm.ddl); err != nil {
		return fmt.Errorf("add column %s.%s: %w", cm.table, cm.column, err)
	}
	return nil
}

// 数据库迁移 SQL
const migrationCreateCars = `
CREATE TABLE IF NOT EXISTS cars (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    type TEXT DEFAULT 'car',
    make TEXT,
    model TEXT,
    variant TEXT,
    regNumber TEXT,
    nickname TEXT NOT NULL
);
`

const migrationCreateTrips = `
CREATE TABLE IF NOT EXISTS trips (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    carId INTEGER,
    startTime INTEGER NOT NULL,
    endTime INTEGER,
    distance REAL DEFAULT 0,
    maxSpeed REAL DEFAULT 0,
    avgSpeed REAL DEFAULT 0,
    FOREIGN KEY (carId) REFERENCES cars (id)
);
`

const migrationCreateTripPoints = `
CREATE TABLE IF NOT EXISTS trip_points (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    tripId INTEGER NOT NULL,
    timestamp INTEGER NOT NULL,
    latitude REAL NOT NULL,
    longitude REAL NOT NULL,
    speed REAL NOT NULL,
    accuracy REAL,
    altitude REAL,
    FOREIGN KEY (tripId) REFERENCES trips (id)
);
`

const migrationCreateSettings = `
CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

const migrationCreateIndexes = `
CREATE INDEX IF NOT EXISTS idx_trips_carId ON trips(carId);
CREATE INDEX IF NOT EXISTS idx_trips_startTime ON trips(startTime);
CREATE INDEX IF NOT EXISTS idx_trip_points_tripId ON trip_points(tripId);
CREATE INDEX IF NOT EXISTS idx_trip_points_timestamp ON trip_points(timestamp);
`
