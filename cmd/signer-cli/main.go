// Package main is the entry point for the signer-cli application.
// It registers the token, key, certificate and OCSP command groups on the
// root command and executes them against the locally configured signer.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/MGTheTrain/crypto-signer/cmd/signer-cli/internal/commands"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	rootCmd := &cobra.Command{
		Use:   "signer-cli",
		Short: "Token, key and certificate management for the signer",
		Long: `signer-cli manages the tokens, keys and certificates of a signer directly
through its configured database and devices.

The configuration file is taken from --config or the CONFIG_PATH environment
variable. Operations that need a logged-in token accept --pin; the token is
activated for the duration of the command only.`,
		SilenceUsage: true,
	}

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "configs/signer.yaml"
	}
	configPath := rootCmd.PersistentFlags().String("config", defaultConfig, "Path to the signer configuration file")

	handler, err := commands.NewHandler(commands.RuntimeOpener(configPath))
	if err != nil {
		return fmt.Errorf("failed to create command handler: %w", err)
	}

	// Initialize all command groups BEFORE executing
	commands.InitCommands(rootCmd, handler)

	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("command execution failed: %w", err)
	}
	return nil
}

// init sets up any necessary initialization before main runs.
func init() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stderr)
}
