package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/jobflow/version"
)

func newCmdVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetVersionInfo().String())
		},
	}
}
