package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ehrlich-b/multipixel/internal/storage"
)

// migrateCmd runs the v0->v1 RGB->RGBA chunk migration against a room
// database, for operators importing a file from the original RGB-only
// multipixel schema (SPEC_FULL.md §12). A freshly created database is
// already RGBA and this is a no-op against it.
func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-rgb <room.db>",
		Short: "Re-encode a room database's chunk blobs from RGB to RGBA",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			store, err := storage.Open(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer store.Close()

			if err := store.MigrateRGBToRGBA(); err != nil {
				return fmt.Errorf("migrate %s: %w", path, err)
			}
			fmt.Printf("migrated %s\n", path)
			return nil
		},
	}
}
