package database

import (
	"database/sql"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Database represents the database connection and operations
type Database struct {
	DB *sql.DB
}

// New creates a new Database instance
func New(dsn string) (*Database, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	// Verify connection
	if err = db.Ping(); err != nil {
		return nil, err
	}

	return &Database{DB: db}, nil
}

// Init creates the required tables if they don't exist. data_status is a
// soft-delete flag: 1 live, 0 removed.
func (d *Database) Init() error {
	createTables := `
	CREATE TABLE IF NOT EXISTS cameras (
		camera_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		location TEXT NOT NULL,
		width INT NOT NULL,
		height INT NOT NULL,
		frame_rate INT NOT NULL,
		frame_store TEXT NOT NULL DEFAULT '',
		data_status SMALLINT NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS patrol_points (
		point_id TEXT PRIMARY KEY,
		camera_id TEXT NOT NULL REFERENCES cameras(camera_id),
		name TEXT NOT NULL,
		center_x DOUBLE PRECISION NOT NULL,
		center_y DOUBLE PRECISION NOT NULL,
		radius DOUBLE PRECISION NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		data_status SMALLINT NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS guards (
		guard_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		face_feature BYTEA,
		data_status SMALLINT NOT NULL DEFAULT 1,
		register_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS patrol_records (
		id TEXT PRIMARY KEY,
		guard_id TEXT REFERENCES guards(guard_id),
		point_id TEXT NOT NULL REFERENCES patrol_points(point_id),
		camera_id TEXT NOT NULL,
		arrival_time TIMESTAMP NOT NULL,
		confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		data_status SMALLINT NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_patrol_records_arrival ON patrol_records (arrival_time);
	`

	_, err := d.DB.Exec(createTables)
	return err
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.DB.Close()
}
