package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bufdev/capgains/cmd/capctl/internal/capctlcmd"
	"github.com/bufdev/capgains/cmd/capctl/internal/command/calc"
	"github.com/bufdev/capgains/cmd/capctl/internal/command/config"
	"github.com/bufdev/capgains/cmd/capctl/internal/command/gains"
	"github.com/bufdev/capgains/cmd/capctl/internal/command/importcmd"
	"github.com/bufdev/capgains/cmd/capctl/internal/command/load"
	"github.com/bufdev/capgains/cmd/capctl/internal/command/lots"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCommand creates the root capctl command with all subcommands.
func newRootCommand() *cobra.Command {
	globals := &capctlcmd.Globals{}
	root := &cobra.Command{
		Use:           "capctl",
		Short:         "Capital-gains lot-matching and wash-sale ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&globals.ConfigPath, "config", "./capctl.yaml", "path to the configuration file")
	root.PersistentFlags().CountVarP(&globals.Verbosity, "verbose", "v", "increase log verbosity (repeatable)")

	root.AddCommand(
		load.NewCommand(globals),
		calc.NewCommand(globals),
		lots.NewCommand(globals),
		gains.NewCommand(globals),
		config.NewCommand(globals),
		importcmd.NewCommand(globals),
	)
	return root
}
