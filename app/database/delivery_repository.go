package database

import (
	"database/sql"
	"fmt"
	"time"
)

// DeliveryRepository handles database operations for deliveries
type DeliveryRepository struct {
	db  *DB
	now func() time.Time
}

func NewDeliveryRepository(db *DB) *DeliveryRepository {
	return &DeliveryRepository{db: db, now: time.Now}
}

// RecordDelivery stores a successful upload. Uploading the same job again bumps its attempt count.
func (r *DeliveryRepository) RecordDelivery(hash, name, path string, size int64) error {
	_, err := r.db.Exec(`
		INSERT INTO deliveries (hash, name, path, size, attempts, delivered_at)
		VALUES (?, ?, ?, ?, 1, ?)
		ON CONFLICT (hash) DO UPDATE SET
			name = excluded.name,
			path = excluded.path,
			size = excluded.size,
			attempts = deliveries.attempts + 1,
			delivered_at = excluded.delivered_at,
			removed_at = NULL
	`, hash, name, path, size, r.now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

// MarkRemoved records that the job and its files were deleted from the download daemon.
func (r *DeliveryRepository) MarkRemoved(hash string) error {
	res, err := r.db.Exec(`UPDATE deliveries SET removed_at = ? WHERE hash = ?`, r.now().UTC().Unix(), hash)
	if err != nil {
		return fmt.Errorf("failed to mark delivery removed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("delivery %s not found", hash)
	}
	return nil
}

func (r *DeliveryRepository) GetDelivery(hash string) (*Delivery, error) {
	row := r.db.QueryRow(`
		SELECT hash, name, path, size, attempts, delivered_at, removed_at
		FROM deliveries WHERE hash = ?
	`, hash)

	delivery, err := scanDelivery(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery: %w", err)
	}
	return delivery, nil
}

func (r *DeliveryRepository) GetRecentDeliveries(limit int) ([]Delivery, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(`
		SELECT hash, name, path, size, attempts, delivered_at, removed_at
		FROM deliveries
		ORDER BY delivered_at DESC, hash
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []Delivery
	for rows.Next() {
		delivery, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		deliveries = append(deliveries, *delivery)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate deliveries: %w", err)
	}

	return deliveries, nil
}

func (r *DeliveryRepository) GetStats() (DeliveryStats, error) {
	var stats DeliveryStats
	err := r.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN removed_at IS NOT NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN attempts > 1 THEN 1 ELSE 0 END), 0)
		FROM deliveries
	`).Scan(&stats.Total, &stats.Removed, &stats.Redelivered)
	if err != nil {
		return stats, fmt.Errorf("failed to get delivery stats: %w", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDelivery(row rowScanner) (*Delivery, error) {
	var (
		d           Delivery
		deliveredAt int64
		removedAt   sql.NullInt64
	)

	if err := row.Scan(&d.Hash, &d.Name, &d.Path, &d.Size, &d.Attempts, &deliveredAt, &removedAt); err != nil {
		return nil, err
	}

	d.DeliveredAt = time.Unix(deliveredAt, 0).UTC()
	if removedAt.Valid {
		t := time.Unix(removedAt.Int64, 0).UTC()
		d.RemovedAt = &t
	}

	return &d, nil
}
