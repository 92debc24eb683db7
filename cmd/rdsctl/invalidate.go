package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tagsistant/rds/internal/coordinator"
)

var invalidateCmd = &cobra.Command{
	Use:   "invalidate <fingerprint>",
	Short: "Mark every rds_id in a fingerprint expired",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := coordinator.New().Invalidate(context.Background(), db, args[0]); err != nil {
			return fmt.Errorf("invalidate: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(invalidateCmd)
}
