package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func fullVersion() string {
	return fmt.Sprintf("meetingflow %s, commit %s, built at %s", Version, Commit, Date)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "meetingflow",
		Short:         "Schedule two-party meetings and gate entry by time",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(fullVersion() + "\n")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), fullVersion())
			return err
		},
	}
}
