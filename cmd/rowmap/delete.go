package main

import (
	"context"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <table> <key>",
	Short: "Delete one row",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, key := args[0], args[1]

		store, logger, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		defer logger.Sync()

		if err := store.Delete(context.Background(), table, key); err != nil {
			return err
		}

		color.Green("deleted %s/%s", table, key)
		return nil
	},
}
