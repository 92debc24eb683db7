// Package sweeper runs a background eviction loop: it periodically drops
// expired catalog entries, and the RDS rows behind them, once the entry's
// creation time is older than a grace period, so storage doesn't grow
// unboundedly between rebuild_expired calls. The grace period counts from
// the entry's creation, not from the moment it was marked expired.
package sweeper

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tagsistant/rds/internal/logging"
	"tagsistant/rds/internal/metrics"
)

// Sweeper periodically sweeps expired, grace-period-elapsed catalog rows.
type Sweeper struct {
	db       *sql.DB
	interval time.Duration
	grace    time.Duration
}

// New returns a Sweeper that runs every interval and reclaims expired
// catalog entries created more than grace ago.
func New(db *sql.DB, interval, grace time.Duration) *Sweeper {
	return &Sweeper{db: db, interval: interval, grace: grace}
}

// Run blocks, sweeping on a time.Ticker until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.sweepOnce(ctx); err != nil {
				logging.Get().Error("sweep failed", "error", err)
			}
		}
	}
}

// sweepOnce deletes the RDS rows and catalog entries of every expired entry
// whose creation time is older than the grace period, and refreshes the
// rds_catalog_entries gauge.
func (s *Sweeper) sweepOnce(ctx context.Context) error {
	cutoff := time.Now().Add(-s.grace)

	rows, err := s.db.QueryContext(ctx,
		`SELECT rds_id FROM RDS_catalog WHERE expired = 1 AND creation < ?`, cutoff,
	)
	if err != nil {
		return fmt.Errorf("finding expired catalog rows: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scanning expired rds_id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM RDS WHERE rds_id = ?`, id); err != nil {
			return fmt.Errorf("sweeping RDS rows for rds_id %d: %w", id, err)
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM RDS_catalog WHERE rds_id = ?`, id); err != nil {
			return fmt.Errorf("sweeping catalog row %d: %w", id, err)
		}
	}

	var live float64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM RDS_catalog WHERE expired = 0`).Scan(&live); err != nil {
		return fmt.Errorf("counting live catalog rows: %w", err)
	}
	metrics.CatalogEntries.Set(live)

	return nil
}
