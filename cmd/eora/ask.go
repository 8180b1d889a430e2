package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/eora/internal/cli"
	"github.com/aretw0/eora/internal/presentation/tui"
	"github.com/aretw0/eora/pkg/domain"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		levelFlag, _ := cmd.Flags().GetString("level")
		sessionID, _ := cmd.Flags().GetString("session")
		asJSON, _ := cmd.Flags().GetBool("json")

		level, err := domain.ParseComplexity(levelFlag)
		if err != nil {
			return err
		}

		opts := cliOptions(cmd)
		opts.Quiet = opts.LogLevel == ""
		app, err := cli.NewApp(opts)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, stop := cli.Interruptible(cmd.Context())
		defer stop()

		if _, err := app.Assistant.Index(ctx); err != nil {
			return fmt.Errorf("indexing failed: %w", err)
		}
		reply, err := app.Assistant.Ask(ctx, sessionID, strings.Join(args, " "), level)
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(reply)
		}
		out, err := cli.TerminalRenderer(os.Stdout)(tui.FormatReply(reply))
		if err != nil {
			out = reply.Formatted + "\n"
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringP("level", "l", "easy", "Answer complexity: easy, medium or hard")
	askCmd.Flags().String("session", "", "Session to record the exchange in")
	askCmd.Flags().Bool("json", false, "Print the reply as JSON")
}
