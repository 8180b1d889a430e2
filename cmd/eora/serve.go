package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/eora/internal/cli"
	httpAdapter "github.com/aretw0/eora/pkg/adapters/http"
	"github.com/aretw0/eora/pkg/domain"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web interface and JSON API",
	Long: `Builds the index and serves the chat page and the JSON API over HTTP.
The server listens on 0.0.0.0:8501 unless configured otherwise.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.NewApp(cliOptions(cmd))
		if err != nil {
			return err
		}
		defer app.Close()

		addr := app.Config.Addr()
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}
		watch, _ := cmd.Flags().GetBool("watch")

		ctx, stop := cli.Interruptible(cmd.Context())
		defer stop()

		start := time.Now()
		n, err := app.Assistant.Index(ctx)
		if err != nil {
			// The UI still answers with an apology until the next reindex.
			app.Logger.Error("Initial indexing failed", "err", err)
		} else {
			app.Logger.Info("Index ready", "chunks", n, "duration", time.Since(start))
		}

		opts := []httpAdapter.Option{
			httpAdapter.WithLogger(app.Logger),
			httpAdapter.WithMetrics(app.Assistant.Metrics().Handler()),
		}
		if watch {
			opts = append(opts, httpAdapter.WithWatcher(app.Assistant))
			go func() {
				if err := cli.RunWatch(ctx, app.Assistant, app.Logger); err != nil && !errors.Is(err, domain.ErrNotImplemented) {
					app.Logger.Error("Watcher stopped", "err", err)
				}
			}()
		}
		handler := httpAdapter.NewHandler(app.Assistant, opts...)

		fmt.Printf("Starting EORA Server on %s\n", addr)
		fmt.Printf("Serving content from: %s\n", app.Config.DataPath)
		if err := httpAdapter.ListenAndServe(ctx, addr, handler, 5*time.Second); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		fmt.Println("EORA Server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "0.0.0.0:8501", "Address to listen on")
	serveCmd.Flags().Bool("watch", false, "Reindex when knowledge base notes change")
}
