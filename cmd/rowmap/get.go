package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rowmap-io/rowmap/storage"
)

var getCmd = &cobra.Command{
	Use:   "get <table> <key>",
	Short: "Fetch one row and print its cells",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, key := args[0], args[1]

		store, logger, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		defer logger.Sync()

		row, err := store.Get(context.Background(), table, key)
		if err != nil {
			if storage.IsRowNotFound(err) {
				return fmt.Errorf("no row %s in table %s", key, table)
			}
			return err
		}

		keyColor := color.New(color.FgCyan, color.Bold)
		familyColor := color.New(color.FgYellow)

		keyColor.Printf("%s/%s\n", table, row.Key)

		cells := make([]string, 0, len(row.Cells))
		for cell := range row.Cells {
			cells = append(cells, cell)
		}
		sort.Strings(cells)

		for _, cell := range cells {
			family, qualifier := storage.SplitCellKey(cell)
			familyColor.Printf("  %s:", family)
			fmt.Printf("%s = %s\n", qualifier, row.Cells[cell])
		}
		return nil
	},
}
