package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkt.systems/agstream/internal/version"
)

func newVersionCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Describe()
			if !verbose {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", info.Module, info.Version)
				return err
			}
			revision := info.Revision
			if revision == "" {
				revision = "unknown"
			}
			if info.Dirty {
				revision += " (dirty)"
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "module:   %s\nversion:  %s\nrevision: %s\ngo:       %s\n",
				info.Module, info.Version, revision, info.GoVersion)
			return err
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "include build details")
	return cmd
}
