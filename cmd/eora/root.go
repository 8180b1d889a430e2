package main

import (
	"fmt"
	"os"

	"github.com/aretw0/eora/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "eora",
	Short: "EORA is a retrieval-augmented assistant about the company's projects",
	Long: `EORA answers questions about the company's cases and services using
documents from the data directory, an optional markdown knowledge base and the
public web site. Run "eora serve" to start the web interface on port 8501.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Configuration file (yaml, json, toml or .env)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
}

func cliOptions(cmd *cobra.Command) cli.Options {
	configPath, _ := cmd.Flags().GetString("config")
	logLevel, _ := cmd.Flags().GetString("log-level")
	return cli.Options{ConfigPath: configPath, LogLevel: logLevel}
}
