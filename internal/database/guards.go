package database

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/tygxx/human-monitor-system/internal/models"
)

// LoadGuards returns every live guard with a registered face feature.
// Features are stored as little-endian float64 blobs by the registration tool.
func (d *Database) LoadGuards(ctx context.Context) ([]models.Guard, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT guard_id, name, phone, face_feature, register_time
		FROM guards
		WHERE face_feature IS NOT NULL AND data_status = 1
		ORDER BY register_time DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("load guards: %w", err)
	}
	defer rows.Close()

	var guards []models.Guard
	for rows.Next() {
		var g models.Guard
		var feature []byte
		if err := rows.Scan(&g.ID, &g.Name, &g.Phone, &feature, &g.RegisterTime); err != nil {
			return nil, err
		}
		g.FaceFeature, err = decodeFeature(feature)
		if err != nil {
			return nil, fmt.Errorf("guard %s: %w", g.ID, err)
		}
		guards = append(guards, g)
	}

	return guards, rows.Err()
}

func decodeFeature(raw []byte) ([]float64, error) {
	if len(raw)%8 != 0 {
		return nil, fmt.Errorf("face feature length %d is not a multiple of 8", len(raw))
	}
	feature := make([]float64, len(raw)/8)
	for i := range feature {
		bits := binary.LittleEndian.Uint64(raw[i*8:])
		feature[i] = math.Float64frombits(bits)
	}
	return feature, nil
}

// EncodeFeature serializes a face feature for storage.
func EncodeFeature(feature []float64) []byte {
	raw := make([]byte, len(feature)*8)
	for i, v := range feature {
		binary.LittleEndian.PutUint64(raw[i*8:], math.Float64bits(v))
	}
	return raw
}

// RegisterGuard inserts a guard or replaces an existing registration,
// reviving it if it was soft-deleted. The check and the write share one
// transaction so concurrent registrations of the same guard cannot interleave.
func (d *Database) RegisterGuard(ctx context.Context, guard models.Guard) error {
	if guard.ID == "" {
		return fmt.Errorf("register guard: empty guard id")
	}
	if len(guard.FaceFeature) == 0 {
		return fmt.Errorf("register guard %s: empty face feature", guard.ID)
	}
	feature := EncodeFeature(guard.FaceFeature)

	return d.InTx(ctx, func(ctx context.Context) error {
		q := d.querier(ctx)
		res, err := q.ExecContext(ctx, `
			UPDATE guards
			SET name = $2, phone = $3, face_feature = $4, register_time = $5, data_status = 1
			WHERE guard_id = $1
		`, guard.ID, guard.Name, guard.Phone, feature, guard.RegisterTime)
		if err != nil {
			return fmt.Errorf("update guard %s: %w", guard.ID, err)
		}
		updated, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if updated > 0 {
			return nil
		}

		if _, err := q.ExecContext(ctx, `
			INSERT INTO guards (guard_id, name, phone, face_feature, register_time, data_status)
			VALUES ($1, $2, $3, $4, $5, 1)
		`, guard.ID, guard.Name, guard.Phone, feature, guard.RegisterTime); err != nil {
			return fmt.Errorf("insert guard %s: %w", guard.ID, err)
		}
		return nil
	})
}
