package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "teastall",
	Short:         "Tea stall order service",
	Long:          "teastall serves the stall's ordering API and live order updates, and carries the tools to run it.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Server
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeListCmd)

	// Database
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)

	// Tools
	rootCmd.AddCommand(ordersWatchCmd)
	rootCmd.AddCommand(tokenIssueCmd)
}
