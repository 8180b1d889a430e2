package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/aretw0/eora/internal/cli"
	"github.com/aretw0/eora/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the assistant as an MCP Server.
This allows AI agents to ask questions about EORA as a tool.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		// Logs go to Stderr so they never corrupt JSON-RPC on Stdout.
		log.SetOutput(os.Stderr)
		app, err := cli.NewApp(cliOptions(cmd))
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, stop := cli.Interruptible(cmd.Context())
		defer stop()

		if _, err := app.Assistant.Index(ctx); err != nil {
			app.Logger.Error("Initial indexing failed", "err", err)
		}

		srv := mcp.NewServer(app.Assistant, app.Logger)

		switch transport {
		case "stdio":
			app.Logger.Info("Starting EORA MCP Server (Stdio)...")
			return srv.ServeStdio()
		case "sse":
			addr := fmt.Sprintf(":%d", port)
			baseURL := fmt.Sprintf("http://localhost:%d", port)
			if err := srv.ServeSSE(ctx, addr, baseURL); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("MCP Server execution failed: %w", err)
			}
			app.Logger.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8502, "Port to listen on (only for SSE)")
}
