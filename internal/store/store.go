// Package store opens the SQLite-backed database the cache runs against
// and bootstraps its schema.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// catalogSchema creates RDS_catalog and RDS if they don't already exist.
const catalogSchema = `
CREATE TABLE IF NOT EXISTS RDS_catalog (
	rds_id     INTEGER PRIMARY KEY AUTOINCREMENT,
	creation   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	subquery   VARCHAR(1024) NOT NULL UNIQUE,
	expired    INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS RDS (
	rds_id     INTEGER NOT NULL REFERENCES RDS_catalog(rds_id),
	inode      INTEGER NOT NULL,
	objectname VARCHAR(255) NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rds_rds_id ON RDS(rds_id);
`

// baseSchema creates the tag/object bookkeeping tables the cache reads
// from but does not own. Production deployments own these tables
// elsewhere; bootstrapping them here only matters for standalone use
// (tests, the demo CLI against a throwaway database).
const baseSchema = `
CREATE TABLE IF NOT EXISTS objects (
	inode      INTEGER PRIMARY KEY,
	objectname VARCHAR(255) NOT NULL
);
CREATE TABLE IF NOT EXISTS tags (
	tag_id    INTEGER PRIMARY KEY AUTOINCREMENT,
	tagname   VARCHAR(255),
	namespace VARCHAR(255),
	key       VARCHAR(255),
	value     VARCHAR(255)
);
CREATE TABLE IF NOT EXISTS tagging (
	inode  INTEGER NOT NULL,
	tag_id INTEGER NOT NULL
);
`

// Open opens a SQLite database at path with WAL mode and foreign keys
// enabled, then bootstraps the catalog/RDS schema (and, for standalone
// use, the base tag tables) with CREATE TABLE IF NOT EXISTS.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := db.Exec(baseSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrapping base tables: %w", err)
	}
	if _, err := db.Exec(catalogSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrapping catalog schema: %w", err)
	}

	return db, nil
}
