package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tagsistant/rds/internal/coordinator"
)

var containsInode uint32

var containsCmd = &cobra.Command{
	Use:   "contains <fingerprint> <objectname>",
	Short: "Test whether an object belongs to the result set named by a fingerprint",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		hasInode := cmd.Flags().Changed("inode")
		inode, err := coordinator.New().Contains(context.Background(), db, args[0], args[1], containsInode, hasInode)
		if err != nil {
			return fmt.Errorf("contains: %w", err)
		}
		if inode == 0 {
			fmt.Println("not found")
			return nil
		}
		fmt.Println(inode)
		return nil
	},
}

func init() {
	containsCmd.Flags().Uint32Var(&containsInode, "inode", 0, "scope the check to a known inode")
	rootCmd.AddCommand(containsCmd)
}
