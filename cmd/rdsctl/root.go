package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tagsistant/rds/internal/config"
	"tagsistant/rds/internal/store"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:   "rdsctl",
	Short: "Inspect and drive the tagsistant RDS cache out of process",
}

// Execute runs the root command, printing errors to stderr and exiting
// non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the RDS-backed SQLite database (default: $RDS_DB_PATH or config)")
}

// loadRuntime loads the layered config, lets the --db flag override its
// database path, and opens the database with the catalog schema
// bootstrapped.
func loadRuntime() (config.Config, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, fmt.Errorf("loading config: %w", err)
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, db, nil
}

// openDatabase is loadRuntime for commands that only need the handle.
func openDatabase() (*sql.DB, error) {
	_, db, err := loadRuntime()
	return db, err
}
