package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Snapshot is a stored monthly report export produced by the worker.
type Snapshot struct {
	ID        uuid.UUID
	Period    string
	PDF       []byte
	CreatedAt time.Time
}

// SaveSnapshot upserts the rendered report for a period. Re-running a month
// replaces the previous render.
func (r *Repository) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	if snap.ID == uuid.Nil {
		snap.ID = uuid.New()
	}
	const query = `
		INSERT INTO report_snapshots (id, period, pdf, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (period) DO UPDATE SET pdf = EXCLUDED.pdf, created_at = NOW()`
	if _, err := r.pool.Exec(ctx, query, snap.ID, snap.Period, snap.PDF); err != nil {
		return fmt.Errorf("save snapshot %s: %w", snap.Period, err)
	}
	return nil
}

// GetSnapshot loads the stored export for a period.
func (r *Repository) GetSnapshot(ctx context.Context, period string) (Snapshot, error) {
	const query = `SELECT id, period, pdf, created_at FROM report_snapshots WHERE period = $1`
	var snap Snapshot
	err := r.pool.QueryRow(ctx, query, period).Scan(&snap.ID, &snap.Period, &snap.PDF, &snap.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, err
	}
	return snap, nil
}
