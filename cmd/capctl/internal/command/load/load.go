// Package load implements the "load" subcommand: reading a plain CSV
// transaction log into the repository's transaction table.
package load

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bufdev/capgains/cmd/capctl/internal/capctlcmd"
	"github.com/bufdev/capgains/internal/ledgercsv"
)

// NewCommand returns the "load" command.
func NewCommand(globals *capctlcmd.Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "load <csv-files...>",
		Short: "Load one or more transaction-log CSV files into the repository",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := globals.LoadConfig()
			if err != nil {
				return err
			}
			repo, err := capctlcmd.OpenRepo(cfg)
			if err != nil {
				return err
			}

			txs, err := ledgercsv.ReadTransactionFiles(args)
			if err != nil {
				return err
			}
			repo.LoadTransactions(txs)

			if err := capctlcmd.SaveRepo(repo, cfg); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "loaded %d transactions from %d file(s)\n", len(txs), len(args))
			return err
		},
	}
}
