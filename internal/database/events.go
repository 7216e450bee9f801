package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tygxx/human-monitor-system/internal/models"
)

// AppendArrivalEvent persists one confirmed patrol visit. Unidentified visits
// are stored with a NULL guard_id to keep the guards foreign key honest.
func (d *Database) AppendArrivalEvent(ctx context.Context, event models.ArrivalEvent) error {
	var guardID sql.NullString
	if event.GuardID != "" && event.GuardID != models.UnidentifiedGuard {
		guardID = sql.NullString{String: event.GuardID, Valid: true}
	}

	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO patrol_records (id, guard_id, point_id, camera_id, arrival_time, confidence)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`,
		event.ID,
		guardID,
		event.PointID,
		event.CameraID,
		event.ArrivalTime,
		event.Confidence,
	)
	if err != nil {
		return fmt.Errorf("insert patrol record %s: %w", event.ID, err)
	}

	return nil
}

// ListEventsSince returns persisted arrival events ordered by arrival time.
func (d *Database) ListEventsSince(ctx context.Context, since time.Time) ([]models.ArrivalEvent, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, guard_id, point_id, camera_id, arrival_time, confidence
		FROM patrol_records
		WHERE arrival_time >= $1 AND data_status = 1
		ORDER BY arrival_time
	`, since)
	if err != nil {
		return nil, fmt.Errorf("list patrol records: %w", err)
	}
	defer rows.Close()

	var events []models.ArrivalEvent
	for rows.Next() {
		var e models.ArrivalEvent
		var guardID sql.NullString
		if err := rows.Scan(&e.ID, &guardID, &e.PointID, &e.CameraID, &e.ArrivalTime, &e.Confidence); err != nil {
			return nil, err
		}
		if guardID.Valid {
			e.GuardID = guardID.String
		} else {
			e.GuardID = models.UnidentifiedGuard
		}
		events = append(events, e)
	}

	return events, rows.Err()
}
