package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print catalog occupancy (live vs. expired entries)",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		var live, expired int
		if err := db.QueryRow(`SELECT COUNT(*) FROM RDS_catalog WHERE expired = 0`).Scan(&live); err != nil {
			return fmt.Errorf("counting live catalog rows: %w", err)
		}
		if err := db.QueryRow(`SELECT COUNT(*) FROM RDS_catalog WHERE expired = 1`).Scan(&expired); err != nil {
			return fmt.Errorf("counting expired catalog rows: %w", err)
		}

		var rows int
		if err := db.QueryRow(`SELECT COUNT(*) FROM RDS`).Scan(&rows); err != nil {
			return fmt.Errorf("counting RDS rows: %w", err)
		}

		fmt.Printf("catalog entries: %d live, %d expired\n", live, expired)
		fmt.Printf("RDS rows: %d\n", rows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
