// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/canframe/internal/config"
	"firestige.xyz/canframe/internal/log"
)

var (
	// Global flags
	configFile string
	logLevel   string

	// appConfig is loaded before any subcommand runs
	appConfig *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "canframe",
	Short: "canframe - decode identifier-prefixed bus frames",
	Long: `canframe decodes raw bus frames whose leading bytes carry a message identifier.
Each frame is checked against a registry of known identifiers; frames that are
too short or carry an unknown identifier are rejected with a typed error.

Frames can come from hex lines (arguments, a file or stdin) or a pcap capture,
and decoded messages can be printed as text, JSON or CBOR, or sent to Kafka.`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (defaults plus CANFRAME_* environment when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level override (trace, debug, info, warn, error)")

	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(registryCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := log.Init(cfg.Log); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	appConfig = cfg
	return nil
}
