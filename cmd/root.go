// Package cmd implements the command-line interface of the ingest service.
package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	cmdindex "github.com/newsward/ingest/cmd/index"
	"github.com/newsward/ingest/cmd/serve"
	cmdsources "github.com/newsward/ingest/cmd/sources"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug enables debug logging for all commands.
	debug bool

	rootCmd = &cobra.Command{
		Use:   "newsward",
		Short: "Content ingestion and indexing service",
		Long: `Crawls configured feeds and websites, extracts article candidates,
filters and deduplicates them, and serves the resulting feeds.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env file early so environment variables are available.
	_ = godotenv.Load()

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml, ~/.newsward/config.yaml, or /etc/newsward/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("newsward version %s\n", "1.0.0")
		},
	})

	rootCmd.AddCommand(serve.Command(&cfgFile, &debug))
	rootCmd.AddCommand(cmdindex.Command(&cfgFile, &debug))
	rootCmd.AddCommand(cmdsources.Command(&cfgFile, &debug))
}
