package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/libris"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of libris",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "libris version %s\n", strings.TrimSpace(libris.Version))
		},
	}
}
