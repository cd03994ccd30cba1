package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/zonerules"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of zonerules",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "zonerules version %s\n", strings.TrimSpace(zonerules.Version))
		},
	}
}
