// Package cli implements the WattQuest command-line interface using Cobra.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wattquest",
	Short: "WattQuest: energy quests for your dashboard",
	Long: `WattQuest turns household energy data into personalized quests.
It watches metering telemetry, generates savings challenges, and tracks
progress, points, and levels.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
