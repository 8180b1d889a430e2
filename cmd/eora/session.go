package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/eora/internal/cli"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored conversations",
	Long:  `List, inspect, and remove conversations kept by the configured session backend.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := quietApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		sessions, err := app.Assistant.Sessions(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		fmt.Println("Sessions:")
		for _, s := range sessions {
			fmt.Println("- " + s)
		}
		return nil
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Print the conversation of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := quietApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		conv, err := app.Assistant.History(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error loading session '%s': %w", args[0], err)
		}
		data, err := json.MarshalIndent(conv, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if !all && len(args) == 0 {
			return fmt.Errorf("requires at least 1 session ID or --all")
		}

		app, err := quietApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		if all {
			if args, err = app.Assistant.Sessions(cmd.Context()); err != nil {
				return err
			}
		}

		var failed int
		for _, sessionID := range args {
			if err := app.Assistant.Delete(cmd.Context(), sessionID); err != nil {
				fmt.Printf("Error removing '%s': %v\n", sessionID, err)
				failed++
			} else {
				fmt.Printf("Removed session '%s'\n", sessionID)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d session(s) could not be removed", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
	sessionRmCmd.Flags().Bool("all", false, "Remove every session")
}

func quietApp(cmd *cobra.Command) (*cli.App, error) {
	opts := cliOptions(cmd)
	opts.Quiet = opts.LogLevel == ""
	return cli.NewApp(opts)
}
