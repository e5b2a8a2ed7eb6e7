// Package lots implements the "lots" subcommand: writing the Lots CSV
// surface for the lots open as of a given date.
package lots

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bufdev/capgains/cmd/capctl/internal/capctlcmd"
	"github.com/bufdev/capgains/internal/ledgercsv"
	"github.com/bufdev/capgains/internal/xtime"
)

type flags struct {
	dtAsOf      string
	account     string
	ticker      string
	consolidate bool
}

func (f *flags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dtAsOf, "dtasof", "2100-01-01", "date to evaluate open lots as of")
	cmd.Flags().StringVar(&f.account, "account", "", "restrict output to this account")
	cmd.Flags().StringVar(&f.ticker, "ticker", "", "restrict output to this security")
	cmd.Flags().BoolVar(&f.consolidate, "consolidate", false, "sum units/cost per account and security")
}

// NewCommand returns the "lots" command.
func NewCommand(globals *capctlcmd.Globals) *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "lots <out.csv>",
		Short: "Write the Lots CSV for lots open as of a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dtAsOf, err := xtime.ParseDate(f.dtAsOf)
			if err != nil {
				return err
			}

			cfg, err := globals.LoadConfig()
			if err != nil {
				return err
			}
			repo, err := capctlcmd.OpenRepo(cfg)
			if err != nil {
				return err
			}

			rows, err := repo.LotsAsOf(cmd.Context(), dtAsOf, f.account, f.ticker)
			if err != nil {
				return err
			}

			out, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("creating %s: %w", args[0], err)
			}
			defer out.Close()

			return ledgercsv.WriteLots(out, rows, cfg, ledgercsv.WriteLotsOptions{
				Account:     f.account,
				Security:    f.ticker,
				Consolidate: f.consolidate,
			})
		},
	}
	f.bind(cmd)
	return cmd
}
