// Package main provides the entry point for the tank compliance CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tank_agent",
	Short: "Tank separation distance compliance pipeline",
	Long: "tank_agent turns a tank survey spreadsheet or KMZ site archive into a compliance report: " +
		"it normalizes the records, queries the HUD acceptable separation distance calculator with " +
		"screenshot evidence, measures each tank's distance to the site boundary, and issues per-tank verdicts.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
