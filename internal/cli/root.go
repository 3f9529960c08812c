// Package cli implements the MemeForge command-line interface using Cobra.
// Each subcommand maps to an operator capability (serve, stats, quests,
// adjust).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "memeforge",
	Short: "MemeForge — community reward and progression engine",
	Long: `MemeForge is the reward engine behind the meme platform.
It credits member actions, tracks levels and badges, runs the weekly
quest ladder, and distributes the voting boost pool.`,
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
