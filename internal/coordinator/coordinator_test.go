package coordinator

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"tagsistant/rds/internal/query"
	"tagsistant/rds/internal/store"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func insertTag(t *testing.T, db *sql.DB, id int64, name string) {
	t.Helper()
	if _, err := db.Exec(`INSERT INTO tags (tag_id, tagname) VALUES (?, ?)`, id, name); err != nil {
		t.Fatal(err)
	}
}

func insertObject(t *testing.T, db *sql.DB, inode uint32, name string, tagIDs ...int64) {
	t.Helper()
	if _, err := db.Exec(`INSERT INTO objects (inode, objectname) VALUES (?, ?)`, inode, name); err != nil {
		t.Fatal(err)
	}
	for _, tagID := range tagIDs {
		if _, err := db.Exec(`INSERT INTO tagging (inode, tag_id) VALUES (?, ?)`, inode, tagID); err != nil {
			t.Fatal(err)
		}
	}
}

// seedScenario sets up objects A{t1}, B{t1,t2}, C{t2}, used across the
// end-to-end scenarios below.
func seedScenario(t *testing.T, db *sql.DB) {
	t.Helper()
	insertTag(t, db, 1, "t1")
	insertTag(t, db, 2, "t2")
	insertObject(t, db, 1, "A", 1)
	insertObject(t, db, 2, "B", 1, 2)
	insertObject(t, db, 3, "C", 2)
}

func names(handles map[string][]Handle) map[string]bool {
	out := map[string]bool{}
	for name := range handles {
		out[name] = true
	}
	return out
}

func TestPrepareLoad_SingleTag(t *testing.T) {
	db := setupTestDB(t)
	seedScenario(t, db)
	c := New()

	q := &query.Query{Branches: []*query.Branch{{Nodes: []*query.AndNode{{Tag: "t1"}}}}}
	fp, err := c.Prepare(context.Background(), db, q, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fp == nil || *fp != "1" {
		t.Fatalf("got fingerprint %v, want \"1\"", fp)
	}

	handles, err := c.Load(context.Background(), db, *fp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]bool{"A": true, "B": true}
	if got := names(handles); len(got) != len(want) || !got["A"] || !got["B"] {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPrepareLoad_Disjunction(t *testing.T) {
	db := setupTestDB(t)
	seedScenario(t, db)
	c := New()

	q := &query.Query{Branches: []*query.Branch{
		{Nodes: []*query.AndNode{{Tag: "t1"}}},
		{Nodes: []*query.AndNode{{Tag: "t2"}}},
	}}
	fp, err := c.Prepare(context.Background(), db, q, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fp == nil || *fp != "1,2" {
		t.Fatalf("got fingerprint %v, want \"1,2\"", fp)
	}

	handles, err := c.Load(context.Background(), db, *fp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := names(handles)
	if len(got) != 3 || !got["A"] || !got["B"] || !got["C"] {
		t.Errorf("got %v, want {A,B,C}", got)
	}
	for name, hs := range handles {
		if len(hs) != 1 {
			t.Errorf("name %s: expected no duplicate inodes, got %d handles", name, len(hs))
		}
	}
}

func TestPrepare_IsAllPath(t *testing.T) {
	db := setupTestDB(t)
	c := New()
	fp, err := c.Prepare(context.Background(), db, nil, true, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fp != nil {
		t.Errorf("expected nil fingerprint for ALL path, got %v", *fp)
	}
}

func TestPrepare_MalformedQuery(t *testing.T) {
	db := setupTestDB(t)
	c := New()
	fp, err := c.Prepare(context.Background(), db, &query.Query{}, false, false)
	if err != nil {
		t.Fatalf("expected no error for malformed query, got %v", err)
	}
	if fp != nil {
		t.Errorf("expected nil fingerprint for malformed query, got %v", *fp)
	}
}

func TestPrepare_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	seedScenario(t, db)
	c := New()

	q := &query.Query{Branches: []*query.Branch{{Nodes: []*query.AndNode{{Tag: "t1"}, {Tag: "t2"}}}}}
	fp1, err := c.Prepare(context.Background(), db, q, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fp2, err := c.Prepare(context.Background(), db, q, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *fp1 != *fp2 {
		t.Errorf("Prepare not idempotent: %q != %q", *fp1, *fp2)
	}
}

func TestContains(t *testing.T) {
	db := setupTestDB(t)
	seedScenario(t, db)
	c := New()

	q := &query.Query{Branches: []*query.Branch{{Nodes: []*query.AndNode{{Tag: "t1"}}}}}
	fp, err := c.Prepare(context.Background(), db, q, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inode, err := c.Contains(context.Background(), db, *fp, "A", 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inode != 1 {
		t.Errorf("got inode %d, want 1", inode)
	}

	inode, err = c.Contains(context.Background(), db, *fp, "C", 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inode != 0 {
		t.Errorf("C should not be contained in t1 result, got inode %d", inode)
	}
}

func TestInvalidateAndRebuild(t *testing.T) {
	db := setupTestDB(t)
	seedScenario(t, db)
	c := New()

	q := &query.Query{Branches: []*query.Branch{{Nodes: []*query.AndNode{{Tag: "t1"}, {Tag: "t2"}}}}}
	fp, err := c.Prepare(context.Background(), db, q, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Re-tag B with t3 (doesn't change the result for this query, but
	// models "something changed" before invalidation).
	insertTag(t, db, 3, "t3")
	if _, err := db.Exec(`INSERT INTO tagging (inode, tag_id) VALUES (2, 3)`); err != nil {
		t.Fatal(err)
	}

	if err := c.Invalidate(context.Background(), db, *fp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A Load while expired-but-not-rebuilt still sees the old rows.
	handles, err := c.Load(context.Background(), db, *fp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := names(handles); len(got) != 1 || !got["B"] {
		t.Errorf("pre-rebuild load: got %v, want {B}", got)
	}

	fp2, err := c.Prepare(context.Background(), db, q, false, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	handles2, err := c.Load(context.Background(), db, *fp2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := names(handles2); len(got) != 1 || !got["B"] {
		t.Errorf("post-rebuild load: got %v, want {B}", got)
	}
}

func TestPrepare_ConcurrentSameFingerprintBuildsOnce(t *testing.T) {
	db := setupTestDB(t)
	seedScenario(t, db)
	c := New()

	q := &query.Query{Branches: []*query.Branch{{Nodes: []*query.AndNode{{Tag: "t1"}}}}}

	const n = 20
	var wg sync.WaitGroup
	fps := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fp, err := c.Prepare(context.Background(), db, q, false, false)
			errs[i] = err
			if fp != nil {
				fps[i] = *fp
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("goroutine %d: unexpected error: %v", i, errs[i])
		}
		if fps[i] != fps[0] {
			t.Errorf("goroutine %d: got fingerprint %q, want %q", i, fps[i], fps[0])
		}
	}

	var catalogRows int
	if err := db.QueryRow(`SELECT COUNT(*) FROM RDS_catalog WHERE subquery = 't1/'`).Scan(&catalogRows); err != nil {
		t.Fatal(err)
	}
	if catalogRows != 1 {
		t.Errorf("expected exactly one catalog row for the shared subquery, got %d", catalogRows)
	}
}
