package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var keysLimit int

var keysCmd = &cobra.Command{
	Use:   "keys <table> [prefix]",
	Short: "List row keys in a table",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		table := args[0]
		prefix := ""
		if len(args) > 1 {
			prefix = args[1]
		}

		store, logger, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		defer logger.Sync()

		keys, err := store.Keys(context.Background(), table, prefix, keysLimit)
		if err != nil {
			return err
		}

		for _, key := range keys {
			fmt.Println(key)
		}
		color.New(color.Faint).Printf("%d key(s)\n", len(keys))
		return nil
	},
}

func init() {
	keysCmd.Flags().IntVarP(&keysLimit, "limit", "n", 0, "maximum number of keys to list (0 = all)")
}
