package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "multipixel",
		Short: "multipixel — real-time multi-user collaborative canvas server",
	}
	root.PersistentFlags().String("config", "settings.json", "path to settings.json")
	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
