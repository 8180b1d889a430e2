package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/aretw0/eora/internal/cli"
	"github.com/aretw0/eora/pkg/crawler"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the vector index and report its size",
	Long: `Loads the data directory, the knowledge base and (when enabled) the web site,
splits them into chunks and embeds them. With index persistence enabled the
snapshot is stored in Redis for the next start.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.NewApp(cliOptions(cmd))
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, stop := cli.Interruptible(cmd.Context())
		defer stop()

		start := time.Now()
		n, err := app.Assistant.Index(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Indexed %d chunks in %s\n", n, time.Since(start).Round(time.Millisecond))
		return nil
	},
}

var crawlCmd = &cobra.Command{
	Use:   "crawl [base-url]",
	Short: "Crawl the web site and print the extracted pages as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := cli.LoadConfig(cliOptions(cmd))
		if err != nil {
			return err
		}
		baseURL := cfg.Crawl.BaseURL
		if len(args) > 0 {
			baseURL = args[0]
		}
		maxPages, _ := cmd.Flags().GetInt("max-pages")
		if !cmd.Flags().Changed("max-pages") {
			maxPages = cfg.Crawl.MaxPages
		}

		c, err := crawler.New(baseURL, crawler.WithDelay(cfg.CrawlDelay()), crawler.WithLogger(logger))
		if err != nil {
			return err
		}

		ctx, stop := cli.Interruptible(cmd.Context())
		defer stop()

		pages, err := c.CrawlSite(ctx, maxPages)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(pages); encErr != nil {
			return encErr
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(crawlCmd)
	crawlCmd.Flags().Int("max-pages", 20, "Maximum number of pages to visit")
}
