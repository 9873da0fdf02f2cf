package main

import (
	"fmt"

	"github.com/aretw0/libris/internal/cli"
	"github.com/aretw0/libris/internal/export"
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.parquet>",
		Short: "Write the catalog with availability to a Parquet file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *cli.App) error {
				n, err := export.New(app.Entities, app.Logger).WriteFile(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d books to %s\n", n, args[0])
				return nil
			})
		},
	}
}
