package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tagsistant/rds/internal/coordinator"
)

var (
	prepareRebuildExpired bool
	prepareAllPath        bool
)

var prepareCmd = &cobra.Command{
	Use:   "prepare <branch> [branch...]",
	Short: "Materialise the RDS for one or more OR-branches and print the fingerprint",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := loadRuntime()
		if err != nil {
			return err
		}
		defer db.Close()

		q, err := parseQuery(args)
		if err != nil {
			return err
		}

		rebuild := prepareRebuildExpired
		if !cmd.Flags().Changed("rebuild-expired") {
			rebuild = cfg.RebuildExpiredByDefault
		}

		fp, err := coordinator.New().Prepare(context.Background(), db, q, prepareAllPath, rebuild)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		if fp == nil {
			fmt.Println("(all objects)")
			return nil
		}
		fmt.Println(*fp)
		return nil
	},
}

func init() {
	prepareCmd.Flags().BoolVar(&prepareRebuildExpired, "rebuild-expired", false, "drop and rebuild each branch's catalog entry, expired or not, before returning")
	prepareCmd.Flags().BoolVar(&prepareAllPath, "all", false, "treat the query as the ALL meta-tag path")
	rootCmd.AddCommand(prepareCmd)
}
