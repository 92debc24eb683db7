// Package builder materialises one OR-branch's result rows into the RDS
// table: seed from the first AND-node, intersect with each subsequent
// one, subtract every negated chain.
package builder

import (
	"context"
	"database/sql"
	"fmt"

	"tagsistant/rds/internal/query"
)

// Execer is the subset of *sql.DB / *sql.Tx the builder needs.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Builder materialises branches. It carries no state.
type Builder struct{}

// New returns a Builder.
func New() *Builder {
	return &Builder{}
}

// Build runs phases 2-4 against rdsID, which the caller has already
// registered in RDS_catalog (phase 1). An empty branch produces no phase-2
// insert and leaves the RDS empty; the catalog entry alone still
// short-circuits future identical queries.
func (b *Builder) Build(ctx context.Context, ex Execer, branch *query.Branch, rdsID int64) error {
	first := branch.FirstAnd()
	if first == nil {
		return nil
	}

	if err := b.seed(ctx, ex, rdsID, first); err != nil {
		return fmt.Errorf("seeding RDS %d from first AND-node: %w", rdsID, err)
	}

	for i := 0; ; i++ {
		next, ok := branch.NextAnd(i)
		if !ok {
			break
		}
		if err := b.restrict(ctx, ex, rdsID, next); err != nil {
			return fmt.Errorf("restricting RDS %d by AND-node %d: %w", rdsID, i+1, err)
		}
	}

	for _, node := range branch.Nodes {
		for _, negated := range node.NegatedChain() {
			if err := b.subtract(ctx, ex, rdsID, negated); err != nil {
				return fmt.Errorf("subtracting negated node from RDS %d: %w", rdsID, err)
			}
		}
	}

	return nil
}

// seed is phase 2: INSERT INTO RDS SELECT rds_id, inode, objectname FROM
// objects JOIN tagging JOIN tags WHERE P0, P0 the disjunction of node and
// its related chain. DISTINCT keeps one row per inode when an object
// matches through more than one tag.
func (b *Builder) seed(ctx context.Context, ex Execer, rdsID int64, node *query.AndNode) error {
	predicate, predArgs := disjunctivePredicate(node)
	stmt := `INSERT INTO RDS (rds_id, inode, objectname)
		SELECT DISTINCT ?, objects.inode, objects.objectname
		FROM objects
		JOIN tagging ON tagging.inode = objects.inode
		JOIN tags ON tags.tag_id = tagging.tag_id
		WHERE ` + predicate

	args := append([]any{rdsID}, predArgs...)
	_, err := ex.ExecContext(ctx, stmt, args...)
	return err
}

// restrict is phase 3: drop rows whose inode doesn't also satisfy node
// (or its related chain).
func (b *Builder) restrict(ctx context.Context, ex Execer, rdsID int64, node *query.AndNode) error {
	predicate, predArgs := disjunctivePredicate(node)
	stmt := `DELETE FROM RDS WHERE rds_id = ? AND inode NOT IN (
		SELECT objects.inode FROM objects
		JOIN tagging ON tagging.inode = objects.inode
		JOIN tags ON tags.tag_id = tagging.tag_id
		WHERE ` + predicate + `)`

	args := append([]any{rdsID}, predArgs...)
	_, err := ex.ExecContext(ctx, stmt, args...)
	return err
}

// subtract is phase 4: drop rows whose inode matches a negated node
// (or its related chain).
func (b *Builder) subtract(ctx context.Context, ex Execer, rdsID int64, negated *query.AndNode) error {
	predicate, predArgs := disjunctivePredicate(negated)
	stmt := `DELETE FROM RDS WHERE rds_id = ? AND inode IN (
		SELECT objects.inode FROM objects
		JOIN tagging ON tagging.inode = objects.inode
		JOIN tags ON tags.tag_id = tagging.tag_id
		WHERE ` + predicate + `)`

	args := append([]any{rdsID}, predArgs...)
	_, err := ex.ExecContext(ctx, stmt, args...)
	return err
}
