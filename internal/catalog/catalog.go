// Package catalog manages the RDS_catalog table: the persistent mapping
// from a subquery's canonical text to its rds_id, plus the expired flag
// that drives coarse invalidation.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"tagsistant/rds/internal/query"
)

// Execer is the subset of *sql.DB / *sql.Tx the catalog needs. Callers pass
// either depending on whether the operation must be transactional.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Catalog provides CRUD over RDS_catalog, parameterised against whatever
// Execer the caller is mid-transaction with.
type Catalog struct{}

// New returns a Catalog. It carries no state; every call takes its Execer.
func New() *Catalog {
	return &Catalog{}
}

// FetchID returns the existing rds_id for subqueryText, or 0 if no catalog
// row exists yet. If rebuildExpired is true, any existing (RDS_catalog, RDS)
// rows for that text are deleted first and 0 is returned unconditionally;
// the caller is expected to rebuild.
func (c *Catalog) FetchID(ctx context.Context, ex Execer, subqueryText string, rebuildExpired bool) (int64, error) {
	if rebuildExpired {
		if err := c.deleteByText(ctx, ex, subqueryText); err != nil {
			return 0, fmt.Errorf("rebuilding expired catalog entry: %w", err)
		}
		return 0, nil
	}

	var id int64
	err := ex.QueryRowContext(ctx,
		`SELECT rds_id FROM RDS_catalog WHERE subquery = ?`, subqueryText,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("fetching catalog id for subquery %q: %w", subqueryText, err)
	}
	return id, nil
}

// Insert registers a new catalog row for subqueryText and returns its
// generated rds_id.
func (c *Catalog) Insert(ctx context.Context, ex Execer, subqueryText string) (int64, error) {
	res, err := ex.ExecContext(ctx,
		`INSERT INTO RDS_catalog (subquery) VALUES (?)`, subqueryText,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting catalog entry for subquery %q: %w", subqueryText, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading generated rds_id for subquery %q: %w", subqueryText, err)
	}
	return id, nil
}

// MarkExpired sets expired=1 for every rds_id in ids. It is the live
// invalidation path; InvalidateByTag is exposed but unused by default.
func (c *Catalog) MarkExpired(ctx context.Context, ex Execer, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	stmt := fmt.Sprintf(`UPDATE RDS_catalog SET expired = 1 WHERE rds_id IN (%s)`, strings.Join(placeholders, ","))
	if _, err := ex.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("marking %d catalog entries expired: %w", len(ids), err)
	}
	return nil
}

// InvalidateByTag deletes catalog entries (and their RDS rows) whose
// subquery text contains the tag's textual signature. It is present for
// completeness but not called by the coordinator's default Invalidate,
// which prefers the coarser MarkExpired.
func (c *Catalog) InvalidateByTag(ctx context.Context, ex Execer, node *query.AndNode) error {
	signature := tagSignature(node)
	rows, err := ex.QueryContext(ctx,
		`SELECT rds_id FROM RDS_catalog WHERE subquery LIKE ?`, "%"+signature+"%",
	)
	if err != nil {
		return fmt.Errorf("finding catalog entries matching %q: %w", signature, err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scanning matched catalog id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	if len(ids) == 0 {
		return nil
	}
	for _, id := range ids {
		if _, err := ex.ExecContext(ctx, `DELETE FROM RDS WHERE rds_id = ?`, id); err != nil {
			return fmt.Errorf("deleting RDS rows for expired rds_id %d: %w", id, err)
		}
		if _, err := ex.ExecContext(ctx, `DELETE FROM RDS_catalog WHERE rds_id = ?`, id); err != nil {
			return fmt.Errorf("deleting catalog row %d: %w", id, err)
		}
	}
	return nil
}

func (c *Catalog) deleteByText(ctx context.Context, ex Execer, subqueryText string) error {
	if _, err := ex.ExecContext(ctx,
		`DELETE FROM RDS WHERE rds_id IN (SELECT rds_id FROM RDS_catalog WHERE subquery = ?)`, subqueryText,
	); err != nil {
		return err
	}
	_, err := ex.ExecContext(ctx, `DELETE FROM RDS_catalog WHERE subquery = ?`, subqueryText)
	return err
}

// tagSignature returns the textual fragment that identifies node within a
// subquery string, for use in a "%...%" LIKE pattern.
func tagSignature(node *query.AndNode) string {
	if !node.IsTriple() {
		return node.Tag
	}
	return node.Namespace + "/" + node.Key
}

// IsUniqueConstraintErr reports whether err looks like a SQL UNIQUE
// constraint violation on the subquery column: the case where a second
// process raced the same text past the singleflight gate and inserted it
// first.
func IsUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") && strings.Contains(msg, "constraint")
}
