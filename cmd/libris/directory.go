package main

import (
	"fmt"
	"net/mail"

	"github.com/aretw0/libris/internal/cli"
	"github.com/aretw0/libris/pkg/domain"
	"github.com/spf13/cobra"
)

func newDirectoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "directory",
		Short: "Manage the employee directory",
		Long: `Employees must be listed in the directory before they can register
through the bot. The first administrator is granted from here.`,
	}
	cmd.AddCommand(newAddEmployeeCmd(), newGrantAdminCmd())
	return cmd
}

func newAddEmployeeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-employee <full-name> <email>",
		Short: "Add an employee to the directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := mail.ParseAddress(args[1])
			if err != nil {
				return fmt.Errorf("invalid email %q: %w", args[1], err)
			}
			return withApp(cmd, func(app *cli.App) error {
				emp, err := app.Entities.CreateEmployee(cmd.Context(), domain.Employee{
					FullName: args[0],
					Email:    addr.Address,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s <%s> (%s)\n", emp.FullName, emp.Email, emp.ID)
				return nil
			})
		},
	}
}

func newGrantAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grant-admin <telegram-id>",
		Short: "Promote a registered member to administrator",
		Long: `Promote a registered member to administrator.

A running serve caches each chat's role for bot.identity_ttl
(LIBRIS_BOT_IDENTITY_TTL, 15s by default). The new role takes effect
there once that cache entry expires; restart serve to apply it at once.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *cli.App) error {
				ctx := cmd.Context()
				tu, err := app.Entities.FindTelegramUser(ctx, args[0])
				if err != nil {
					return fmt.Errorf("telegram user %s: %w", args[0], err)
				}
				user, err := app.Entities.FindAppUserByTelegram(ctx, tu.ID)
				if err != nil {
					return fmt.Errorf("member for %s: %w", args[0], err)
				}
				role, err := app.Entities.FindRoleByName(ctx, domain.RoleAdmin)
				if err != nil {
					return err
				}
				if err := app.Entities.UpdateAppUserRole(ctx, user.ID, role.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Granted %s to %s\n", domain.RoleAdmin, args[0])
				return nil
			})
		},
	}
}

// withApp builds the services for the duration of fn.
func withApp(cmd *cobra.Command, fn func(app *cli.App) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	app, err := cli.Build(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}
