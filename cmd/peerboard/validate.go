package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/peerboard/config"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a PeerBoard configuration file without starting the server.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  peerboard validate -c config.yaml
  peerboard validate --config /etc/peerboard/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	watched := len(cfg.Watch.Connections) + len(cfg.Watch.Peers)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Port:             %d\n", cfg.Port)
	fmt.Fprintf(out, "  GraphQL URL:      %s\n", cfg.GraphQLURL)
	fmt.Fprintf(out, "  Refresh interval: %s\n", cfg.RefreshInterval.Duration())
	fmt.Fprintf(out, "  Resources:        %d (%d watched)\n", cfg.ResourceCount(), watched)
	if cfg.Kafka.Enabled() {
		fmt.Fprintf(out, "  Kafka topic:      %s\n", cfg.Kafka.Topic)
	}

	return nil
}
