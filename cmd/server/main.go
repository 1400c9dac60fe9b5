package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docqa/internal/bootstrap"
	"docqa/internal/config"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Document ingestion and question answering service",
	Long: `docqa ingests PDF, DOCX, PPTX, CSV, JSON and text files into a vector
index and answers questions grounded in the indexed passages.

Run without a subcommand to start the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			return os.Setenv("CONFIG_FILE", configFile)
		}
		return nil
	},
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to the TOML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openApp loads config and builds the application for one command.
func openApp(ctx context.Context, opts bootstrap.Options) (*bootstrap.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := bootstrap.NewLogger(os.Stderr, cfg.App)

	app, err := bootstrap.New(ctx, cfg, logger, opts)
	if err != nil {
		return nil, fmt.Errorf("bootstrap failed: %w", err)
	}
	return app, nil
}
