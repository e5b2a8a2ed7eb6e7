package ledger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bufdev/capgains/internal/xtime"
)

// Driver consumes an ordered transaction stream and dispatches each record
// to the appropriate handler, then runs the wash-sale pass over the same
// window.
type Driver struct {
	Repo   Repository
	Log    zerolog.Logger
	Quirks QuirksTable
}

// Summary reports what a Run call did, for the caller to log or display.
type Summary struct {
	TransactionsSeen int
	TransactionsRun  int
	Dropped          int
}

// Run implements the driver (component 8): select transactions with
// DtTrade in [dtStart, dtEnd] ordered by (DtTrade, Seq), route each to the
// broker-quirks dispatcher or the default handler by kind, then run the
// wash-sale engine over the same window.
func (d *Driver) Run(ctx context.Context, dtStart, dtEnd xtime.Date) (Summary, error) {
	txs, err := d.Repo.TransactionsIn(ctx, dtStart, dtEnd)
	if err != nil {
		return Summary{}, fmt.Errorf("ledger: querying transactions: %w", err)
	}

	summary := Summary{TransactionsSeen: len(txs)}
	if err := d.run(ctx, txs, dtStart, dtEnd, &summary); err != nil {
		if rbErr := d.Repo.Rollback(ctx); rbErr != nil {
			d.Log.Error().Err(rbErr).Msg("rollback after failed run also failed")
		}
		return summary, err
	}

	if err := d.Repo.Commit(ctx); err != nil {
		return summary, fmt.Errorf("ledger: committing: %w", err)
	}

	d.Log.Info().Int("seen", summary.TransactionsSeen).Int("run", summary.TransactionsRun).
		Int("dropped", summary.Dropped).Msg("ingest complete")
	return summary, nil
}

func (d *Driver) run(ctx context.Context, txs []*Transaction, dtStart, dtEnd xtime.Date, summary *Summary) error {
	for _, tx := range txs {
		if err := ctx.Err(); err != nil {
			return err
		}

		logged, err := d.Repo.IsLogged(ctx, tx.ID)
		if err != nil {
			return fmt.Errorf("ledger: checking event log for %s: %w", tx.ID, err)
		}
		if logged {
			d.Log.Debug().Str("transaction", tx.ID.String()).Msg("already logged, skipping")
			continue
		}

		handled, err := Dispatch(ctx, d.Repo, d.Log, tx, txs, d.Quirks)
		if err != nil {
			return fmt.Errorf("ledger: dispatching transaction %s: %w", tx.ID, err)
		}
		if handled {
			d.Log.Debug().Str("transaction", tx.ID.String()).Str("kind", tx.Kind.String()).
				Msg("routed via broker-quirks override")
			summary.TransactionsRun++
			continue
		}

		switch tx.Kind {
		case KindBuy, KindSell:
			if err := ApplyTrade(ctx, d.Repo, d.Log, tx); err != nil {
				return fmt.Errorf("ledger: applying trade %s: %w", tx.ID, err)
			}
		case KindReturnOfCapital:
			if err := ApplyReturnOfCapital(ctx, d.Repo, d.Log, tx); err != nil {
				return fmt.Errorf("ledger: applying return of capital %s: %w", tx.ID, err)
			}
		case KindSplit:
			if err := ApplySplit(ctx, d.Repo, d.Log, tx); err != nil {
				return fmt.Errorf("ledger: applying split %s: %w", tx.ID, err)
			}
		default:
			d.Log.Debug().Str("transaction", tx.ID.String()).Str("kind", tx.Kind.String()).
				Msg("no handler for transaction kind, dropping")
			summary.Dropped++
			continue
		}
		d.Log.Debug().Str("transaction", tx.ID.String()).Str("kind", tx.Kind.String()).
			Msg("routed to default handler")
		summary.TransactionsRun++
	}

	if err := RunWashSales(ctx, d.Repo, d.Log, dtStart, dtEnd); err != nil {
		return fmt.Errorf("ledger: running wash-sale pass: %w", err)
	}
	return nil
}
