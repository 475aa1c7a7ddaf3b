// Package cli holds the command line entry points of the service.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"metinanaliz/internal/config"
	"metinanaliz/internal/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "metinanaliz",
	Short: "Document to LLM processing service",
	Long: `metinanaliz extracts text from uploaded documents, sends it to Gemini or
AnythingLLM with a prompt template and keeps the results and processing history.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

// Execute runs the root command. Without a subcommand the server is started.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "metinanaliz: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $"+config.ConfigPathEnv+" or ./config.json)")
}

// loadConfig reads the configuration and sets up logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}
