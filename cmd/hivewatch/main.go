// Package main is the entry point for the hivewatch CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hivewatch/hivewatch/internal/config"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hivewatch",
		Short: "Keyword-driven post collector for Bluesky",
		Long: `Hivewatch collects social network posts by topic: it generates search
keywords per category with a language model, searches Bluesky for each
keyword, revalidates the hits and stores the matches in a database or CSV
file. Re-running a collection never duplicates stored posts.`,
	}

	cmd.AddCommand(collectCmd())
	cmd.AddCommand(keywordsCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig loads configuration from .env file and environment variables.
func loadConfig(envFile string) (config.AppConfig, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
