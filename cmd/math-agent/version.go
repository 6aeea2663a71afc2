package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/upb/math-agent/handlers"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// version needs neither config nor logger
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "math-agent %s\n", handlers.Version)
		},
	}
}
