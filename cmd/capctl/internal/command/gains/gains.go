// Package gains implements the "gains" subcommand: writing the Gains CSV
// surface for gains realized within a date window.
package gains

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bufdev/capgains/cmd/capctl/internal/capctlcmd"
	"github.com/bufdev/capgains/internal/ledgercsv"
	"github.com/bufdev/capgains/internal/xtime"
)

type flags struct {
	dtStart     string
	dtEnd       string
	account     string
	ticker      string
	consolidate bool
}

func (f *flags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dtStart, "dtstart", "1900-01-01", "start of the window (inclusive)")
	cmd.Flags().StringVar(&f.dtEnd, "dtend", "2100-01-01", "end of the window (inclusive)")
	cmd.Flags().StringVar(&f.account, "account", "", "restrict output to this account")
	cmd.Flags().StringVar(&f.ticker, "ticker", "", "restrict output to this security")
	cmd.Flags().BoolVar(&f.consolidate, "consolidate", false, "sum gain fields per account and security")
}

// NewCommand returns the "gains" command.
func NewCommand(globals *capctlcmd.Globals) *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "gains <out.csv>",
		Short: "Write the Gains CSV for gains realized within a date window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dtStart, err := xtime.ParseDate(f.dtStart)
			if err != nil {
				return err
			}
			dtEnd, err := xtime.ParseDate(f.dtEnd)
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

			gains, err := repo.GainsInRange(dtStart, dtEnd, f.account, f.ticker)
			if err != nil {
				return err
			}
			rows := make([]ledgercsv.GainRow, 0, len(gains))
			for _, gain := range gains {
				lot, err := repo.GetLot(cmd.Context(), gain.LotID)
				if err != nil {
					return err
				}
				rows = append(rows, ledgercsv.GainRow{Gain: gain, Lot: lot})
			}

			out, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("creating %s: %w", args[0], err)
			}
			defer out.Close()

			return ledgercsv.WriteGains(out, rows, cfg, ledgercsv.WriteGainsOptions{
				Account:     f.account,
				Security:    f.ticker,
				Consolidate: f.consolidate,
			})
		},
	}
	f.bind(cmd)
	return cmd
}
