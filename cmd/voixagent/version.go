package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voixagent/voixagent/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Get()
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", serviceName, info)
			if info.Branch != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  branch: %s\n", info.Branch)
			}
		},
	}
}
