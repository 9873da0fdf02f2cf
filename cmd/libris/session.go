package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/libris/internal/cli"
	"github.com/aretw0/libris/pkg/persistence/middleware"
	"github.com/aretw0/libris/pkg/ports"
	"github.com/spf13/cobra"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage persisted conversations",
		Long:  `List, inspect and remove the sessions held by the configured session backend.`,
	}
	cmd.AddCommand(newSessionLsCmd(), newSessionInspectCmd(), newSessionRmCmd())
	return cmd
}

// withSessions opens the configured session backend for the duration of fn.
func withSessions(cmd *cobra.Command, fn func(store ports.StateStore) error) error {
	return withApp(cmd, func(app *cli.App) error {
		return fn(app.Sessions.Store())
	})
}

func newSessionLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List all active sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSessions(cmd, func(store ports.StateStore) error {
				chats, err := store.List(cmd.Context())
				if err != nil {
					return fmt.Errorf("list sessions: %w", err)
				}
				out := cmd.OutOrStdout()
				if len(chats) == 0 {
					fmt.Fprintln(out, "No active sessions found.")
					return nil
				}
				fmt.Fprintln(out, "Active sessions:")
				for _, chatID := range chats {
					state, err := store.Load(cmd.Context(), chatID)
					if err != nil {
						fmt.Fprintf(out, "- %s (unreadable: %v)\n", chatID, err)
						continue
					}
					fmt.Fprintf(out, "- %s\t%s\n", chatID, state.Tag())
				}
				return nil
			})
		},
	}
}

func newSessionInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <chat-id>",
		Short: "Print the state of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reveal, _ := cmd.Flags().GetBool("reveal")
			return withSessions(cmd, func(store ports.StateStore) error {
				if !reveal {
					redact, err := middleware.NewRedactionMiddleware(middleware.DefaultRedactions)
					if err != nil {
						return err
					}
					store = middleware.Chain(store, redact)
				}
				state, err := store.Load(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("load session %q: %w", args[0], err)
				}
				data, err := json.MarshalIndent(state, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			})
		},
	}
	cmd.Flags().Bool("reveal", false, "Show personal data without masking")
	return cmd
}

func newSessionRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <chat-id>...",
		Short: "Remove one or more sessions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSessions(cmd, func(store ports.StateStore) error {
				var errs []error
				for _, chatID := range args {
					if err := store.Delete(cmd.Context(), chatID); err != nil {
						errs = append(errs, fmt.Errorf("remove %q: %w", chatID, err))
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Removed session '%s'\n", chatID)
				}
				return errors.Join(errs...)
			})
		},
	}
}
