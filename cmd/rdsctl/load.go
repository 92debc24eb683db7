package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"tagsistant/rds/internal/coordinator"
)

var loadCmd = &cobra.Command{
	Use:   "load <fingerprint>",
	Short: "List the objects named by a fingerprint returned by prepare",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		handles, err := coordinator.New().Load(context.Background(), db, args[0])
		if err != nil {
			return fmt.Errorf("load: %w", err)
		}

		names := make([]string, 0, len(handles))
		for name := range handles {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			for _, h := range handles[name] {
				fmt.Printf("%d\t%s\n", h.Inode, h.Name)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
}
