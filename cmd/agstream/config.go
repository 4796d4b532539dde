package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkt.systems/agstream/internal/appconfig"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the agstream config file",
	}
	cmd.AddCommand(newConfigInitCmd(root))
	cmd.AddCommand(newConfigShowCmd(root))
	return cmd
}

func newConfigInitCmd(root *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := appconfig.WriteDefault(root.configPath, force)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return err
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config")
	return cmd
}

func newConfigShowCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(root.configPath)
			if err != nil {
				return err
			}
			data, err := appconfig.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
