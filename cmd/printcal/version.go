package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the current version of printcal.
const Version = "0.1.0"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of printcal",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "printcal version %s\n", Version)
		},
	}
}
