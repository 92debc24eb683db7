// Package coordinator implements the cache's public surface: prepare,
// load, contains, invalidate. It owns the concurrency discipline that
// guarantees at-most-one build per subquery, realised with
// golang.org/x/sync/singleflight keyed by subquery text: unrelated
// subqueries build concurrently, identical ones linearise to one build.
package coordinator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"tagsistant/rds/internal/builder"
	"tagsistant/rds/internal/catalog"
	"tagsistant/rds/internal/fingerprint"
	"tagsistant/rds/internal/logging"
	"tagsistant/rds/internal/metrics"
	"tagsistant/rds/internal/query"
)

// ErrMalformedQuery names the malformed-query condition: a nil or
// branch-less query. Prepare does not return it; it logs the condition and
// returns a nil fingerprint with a nil error, which callers treat as an
// empty result.
var ErrMalformedQuery = errors.New("coordinator: malformed query")

// Handle is an in-memory (inode, name) pair, the unit Load returns,
// grouped by name to accommodate reasoner-introduced aliases.
type Handle struct {
	Inode uint32
	Name  string
}

// Coordinator is the cache's entry point. It is safe for concurrent use;
// create one per process and share it.
type Coordinator struct {
	catalog *catalog.Catalog
	builder *builder.Builder
	group   singleflight.Group
}

// New returns a Coordinator backed by a fresh Catalog and Builder.
func New() *Coordinator {
	return &Coordinator{
		catalog: catalog.New(),
		builder: builder.New(),
	}
}

// Prepare walks every OR-branch of q, ensures each has a materialised RDS
// (building it if absent), and returns the comma-joined fingerprint of
// their rds_ids. isAllPath true means the caller's path included the ALL
// meta-tag; Prepare short-circuits and returns (nil, nil), which the
// caller must treat as "all objects". A nil or branch-less query is
// MalformedQuery: logged, and (nil, nil) is returned so callers degrade to
// an empty result rather than aborting.
func (c *Coordinator) Prepare(ctx context.Context, db *sql.DB, q *query.Query, isAllPath, rebuildExpired bool) (*string, error) {
	if isAllPath {
		return nil, nil
	}
	if q.Empty() {
		logging.Get().Warn("malformed query: nil or branch-less query passed to Prepare")
		return nil, nil
	}

	ids := make([]int64, 0, len(q.Branches))
	for i := 0; ; i++ {
		branch, ok := q.NextBranch(i)
		if !ok {
			break
		}

		subqueryText := fingerprint.Serialize(branch)
		id, err := c.prepareBranch(ctx, db, branch, subqueryText, rebuildExpired)
		if err != nil {
			return nil, fmt.Errorf("preparing branch %d (%q): %w", i, subqueryText, err)
		}
		ids = append(ids, id)
	}

	fp := fingerprint.JoinIDs(ids)
	return &fp, nil
}

// prepareBranch is the fetch_id -> insert -> build critical section,
// deduplicated per subquery text via singleflight: two concurrent callers
// with the same text share one build and see the same rds_id.
func (c *Coordinator) prepareBranch(ctx context.Context, db *sql.DB, branch *query.Branch, subqueryText string, rebuildExpired bool) (int64, error) {
	v, err, _ := c.group.Do(subqueryText, func() (any, error) {
		return c.fetchOrBuild(ctx, db, branch, subqueryText, rebuildExpired)
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

func (c *Coordinator) fetchOrBuild(ctx context.Context, db *sql.DB, branch *query.Branch, subqueryText string, rebuildExpired bool) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	id, err := c.catalog.FetchID(ctx, tx, subqueryText, rebuildExpired)
	if err != nil {
		return 0, err
	}

	if id != 0 {
		metrics.Hit()
		if err := tx.Commit(); err != nil {
			return 0, fmt.Errorf("committing cache hit: %w", err)
		}
		committed = true
		return id, nil
	}

	id, err = c.catalog.Insert(ctx, tx, subqueryText)
	if err != nil {
		if catalog.IsUniqueConstraintErr(err) {
			// CatalogConflict: another process won the race past this
			// process's singleflight gate. Re-fetch instead of failing.
			retryID, fetchErr := c.catalog.FetchID(ctx, tx, subqueryText, false)
			if fetchErr == nil && retryID != 0 {
				metrics.Hit()
				if commitErr := tx.Commit(); commitErr != nil {
					return 0, fmt.Errorf("committing after catalog conflict retry: %w", commitErr)
				}
				committed = true
				return retryID, nil
			}
		}
		return 0, fmt.Errorf("inserting catalog row: %w", err)
	}

	start := time.Now()
	if err := c.builder.Build(ctx, tx, branch, id); err != nil {
		logging.FailedBuild(subqueryText, err)
		return 0, err
	}
	metrics.BuildDuration.Observe(time.Since(start).Seconds())
	metrics.Miss()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing build: %w", err)
	}
	committed = true
	return id, nil
}

// Load executes a single read against the RDS rows named by fingerprint
// and groups them by object name. Duplicate inodes under the same name
// (the reasoner may produce more than one match for the same object) are
// dropped. A fingerprint naming no catalog rows (including a race with a
// concurrent rebuild) degrades to an empty map, not an error.
func (c *Coordinator) Load(ctx context.Context, db *sql.DB, fp string) (map[string][]Handle, error) {
	ids, err := fingerprint.SplitIDs(fp)
	if err != nil {
		return nil, fmt.Errorf("parsing fingerprint %q: %w", fp, err)
	}
	if len(ids) == 0 {
		return map[string][]Handle{}, nil
	}

	placeholders, args := idPlaceholders(ids)
	rows, err := db.QueryContext(ctx,
		`SELECT DISTINCT objectname, inode FROM RDS WHERE rds_id IN (`+placeholders+`)`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("loading fingerprint %q: %w", fp, err)
	}
	defer rows.Close()

	result := map[string][]Handle{}
	seen := map[string]map[uint32]bool{}
	for rows.Next() {
		var name string
		var inode uint32
		if err := rows.Scan(&name, &inode); err != nil {
			return nil, fmt.Errorf("scanning RDS row: %w", err)
		}
		if seen[name] == nil {
			seen[name] = map[uint32]bool{}
		}
		if seen[name][inode] {
			continue
		}
		seen[name][inode] = true
		result[name] = append(result[name], Handle{Inode: inode, Name: name})
	}
	return result, rows.Err()
}

// Contains tests whether objectName (optionally scoped to a known inode)
// is a member of the result set named by fingerprint. It returns the
// matching inode, or 0 if absent.
func (c *Coordinator) Contains(ctx context.Context, db *sql.DB, fp, objectName string, inode uint32, hasInode bool) (uint32, error) {
	ids, err := fingerprint.SplitIDs(fp)
	if err != nil {
		return 0, fmt.Errorf("parsing fingerprint %q: %w", fp, err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders, idArgs := idPlaceholders(ids)
	var stmt string
	var args []any
	if hasInode {
		stmt = `SELECT inode FROM RDS WHERE objectname = ? AND inode = ? AND rds_id IN (` + placeholders + `)`
		args = append([]any{objectName, inode}, idArgs...)
	} else {
		stmt = `SELECT inode FROM RDS WHERE objectname = ? AND rds_id IN (` + placeholders + `)`
		args = append([]any{objectName}, idArgs...)
	}

	var found uint32
	err = db.QueryRowContext(ctx, stmt, args...).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("checking containment of %q: %w", objectName, err)
	}
	return found, nil
}

// Invalidate marks every rds_id in fingerprint expired. Rows are not
// removed: concurrent Load calls keep seeing them until the next
// Prepare(..., rebuildExpired=true) drops and rebuilds under the
// singleflight gate.
func (c *Coordinator) Invalidate(ctx context.Context, db *sql.DB, fp string) error {
	ids, err := fingerprint.SplitIDs(fp)
	if err != nil {
		return fmt.Errorf("parsing fingerprint %q: %w", fp, err)
	}
	if err := c.catalog.MarkExpired(ctx, db, ids); err != nil {
		return err
	}
	metrics.Invalidations.Inc()
	return nil
}

func idPlaceholders(ids []int64) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ","), args
}
