// Package calc implements the "calc" subcommand: running the driver over
// a date window and persisting the resulting lots, gains, and event log.
package calc

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bufdev/capgains/cmd/capctl/internal/capctlcmd"
	"github.com/bufdev/capgains/internal/ledger"
	"github.com/bufdev/capgains/internal/xtime"
)

type flags struct {
	dtStart string
	dtEnd   string
}

func (f *flags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dtStart, "dtstart", "1900-01-01", "start of the window to process (inclusive)")
	cmd.Flags().StringVar(&f.dtEnd, "dtend", "2100-01-01", "end of the window to process (inclusive)")
}

// NewCommand returns the "calc" command.
func NewCommand(globals *capctlcmd.Globals) *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Run lot-matching, corporate actions, and wash-sale disallowance over a window",
		Args:  cobra.NoArgs,
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

			driver := &ledger.Driver{
				Repo:   repo,
				Log:    globals.Logger(),
				Quirks: capctlcmd.BuildQuirks(cfg),
			}
			summary, err := driver.Run(cmd.Context(), dtStart, dtEnd)
			if err != nil {
				return err
			}

			if err := capctlcmd.SaveRepo(repo, cfg); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "seen %d, run %d, dropped %d\n",
				summary.TransactionsSeen, summary.TransactionsRun, summary.Dropped)
			return err
		},
	}
	f.bind(cmd)
	return cmd
}
