// Package main is the entry point for the peerboard CLI.
//
// PeerBoard can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	peerboard serve -c config.yaml      # Start the mirror
//	peerboard validate -c config.yaml   # Validate configuration
//	peerboard fetch connections         # Fetch one resource and print it
//	peerboard version                   # Show version info
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "peerboard",
	Short: "A polling data layer for a Bitcoin P2P proxy dashboard",
	Long: `PeerBoard keeps the state of a Bitcoin P2P proxy dashboard fresh.

It polls the proxy's GraphQL query service for peer connections, traffic
statistics, and message logs, and serves the latest state as JSON with
Server-Sent Events for live updates.

Quick start:
  1. Create a config file (peerboard.yaml)
  2. Run: peerboard serve -c peerboard.yaml
  3. Open http://localhost:8080/api/resources

Example config:
  port: 8080
  graphql_url: http://localhost:6789/graphql
  refresh_interval: 5s
  recent_messages:
    limit: 100
  watch:
    peers: ["203.0.113.5:8333"]`,
	SilenceUsage: true,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// newLogger creates a JSON logger for CLI use.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this peerboard binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "peerboard %s\n", version)
		fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", commit)
		fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
