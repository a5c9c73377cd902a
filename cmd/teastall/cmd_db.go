package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teastall/teastall/config"
	"github.com/teastall/teastall/database/seeders"
	"github.com/teastall/teastall/internal/server"
)

// teastall migrate: OpenStores ensures the indexes as part of connecting.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the MongoDB indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}
		if config.StoreDriver() != "mongo" {
			return errors.New("migrate: STORE_DRIVER is not mongo, nothing to do")
		}
		fmt.Println("Ensuring indexes…")
		_, cleanup, err := server.OpenStores(context.Background())
		if err != nil {
			return err
		}
		cleanup()
		fmt.Println("done")
		return nil
	},
}

// teastall seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the demo menu",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}
		ctx := context.Background()
		stores, cleanup, err := server.OpenStores(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		fmt.Println("Running seeders…")
		return seeders.RunAll(ctx, stores, os.Stdout)
	},
}
