package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aretw0/eora"
	"github.com/aretw0/eora/internal/cli"
	"github.com/aretw0/eora/internal/presentation/tui"
	"github.com/aretw0/eora/pkg/domain"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		levelFlag, _ := cmd.Flags().GetString("level")
		sessionID, _ := cmd.Flags().GetString("session")

		level, err := domain.ParseComplexity(levelFlag)
		if err != nil {
			return err
		}

		app, err := cli.NewApp(cliOptions(cmd))
		if err != nil {
			return err
		}
		defer app.Close()

		tui.PrintBanner(os.Stdout, eora.Version)

		ctx, stop := cli.Interruptible(cmd.Context())
		defer stop()

		start := time.Now()
		n, err := app.Assistant.Index(ctx)
		if err != nil {
			return fmt.Errorf("indexing failed: %w", err)
		}
		fmt.Printf(">>> Загружено фрагментов: %d (%s)\n", n, time.Since(start).Round(time.Millisecond))

		err = cli.RunChat(ctx, app.Assistant, cli.ChatOptions{
			In:        os.Stdin,
			Out:       os.Stdout,
			SessionID: sessionID,
			Level:     level,
			Render:    cli.TerminalRenderer(os.Stdout),
		})
		if errors.Is(err, context.Canceled) && cli.WasInterrupted(ctx) {
			fmt.Println("[CTRL+C]")
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("level", "l", "easy", "Answer complexity: easy, medium or hard")
	chatCmd.Flags().String("session", "", "Resume a session by ID")
}
