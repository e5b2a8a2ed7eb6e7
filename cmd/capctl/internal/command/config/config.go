// Package config implements the "config init" and "config validate"
// subcommands.
package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bufdev/capgains/cmd/capctl/internal/capctlcmd"
	"github.com/bufdev/capgains/internal/config"
	"github.com/bufdev/capgains/internal/standard/xos"
)

// NewCommand returns the "config" command with its init/validate subcommands.
func NewCommand(globals *capctlcmd.Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the capctl configuration file",
	}
	cmd.AddCommand(newInitCommand(globals), newValidateCommand(globals))
	return cmd
}

func newInitCommand(globals *capctlcmd.Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new configuration file with a documented template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := xos.ExpandHome(globals.ConfigPath)
			if err != nil {
				return err
			}
			if err := config.InitConfig(path); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
}

func newValidateCommand(globals *capctlcmd.Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := globals.LoadConfig(); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return err
		},
	}
}
