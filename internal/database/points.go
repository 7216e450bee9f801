package database

import (
	"context"
	"fmt"

	"github.com/tygxx/human-monitor-system/internal/models"
)

// LoadCameras returns every live camera.
func (d *Database) LoadCameras(ctx context.Context) ([]models.Camera, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT camera_id, name, location, width, height, frame_rate, frame_store
		FROM cameras
		WHERE data_status = 1
		ORDER BY camera_id
	`)
	if err != nil {
		return nil, fmt.Errorf("load cameras: %w", err)
	}
	defer rows.Close()

	var cameras []models.Camera
	for rows.Next() {
		var c models.Camera
		if err := rows.Scan(&c.ID, &c.Name, &c.Location, &c.Width, &c.Height, &c.FrameRate, &c.FrameStore); err != nil {
			return nil, err
		}
		cameras = append(cameras, c)
	}

	return cameras, rows.Err()
}

// LoadPatrolPoints returns every live patrol point, ordered per camera.
func (d *Database) LoadPatrolPoints(ctx context.Context) ([]models.PatrolPoint, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT point_id, camera_id, name, center_x, center_y, radius, description
		FROM patrol_points
		WHERE data_status = 1
		ORDER BY camera_id, point_id
	`)
	if err != nil {
		return nil, fmt.Errorf("load patrol points: %w", err)
	}
	defer rows.Close()

	var points []models.PatrolPoint
	for rows.Next() {
		var p models.PatrolPoint
		if err := rows.Scan(&p.ID, &p.CameraID, &p.Name, &p.Center.X, &p.Center.Y, &p.Radius, &p.Description); err != nil {
			return nil, err
		}
		points = append(points, p)
	}

	return points, rows.Err()
}
