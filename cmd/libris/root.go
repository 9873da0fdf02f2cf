package main

import (
	"github.com/aretw0/libris/internal/config"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "libris",
		Short: "Chat bot engine for an office lending library",
		Long: `Libris runs the conversations of a lending-library chat bot.

Members browse, reserve, take and return books; administrators manage the
catalog, shelves and wishlists. Events arrive over HTTP (serve) or from the
terminal (chat).`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringP("config", "c", "", "YAML configuration file")

	cmd.AddCommand(
		newServeCmd(),
		newChatCmd(),
		newSessionCmd(),
		newMigrateCmd(),
		newDirectoryCmd(),
		newExportCmd(),
		newVersionCmd(),
	)
	return cmd
}

// loadConfig reads the file named by --config, then the environment.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}
