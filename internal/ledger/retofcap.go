package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ApplyReturnOfCapital implements the lot engine's return-of-capital
// handling: a cash distribution reduces cost basis of existing long
// positions of the security pro rata by units held, across all accounts.
func ApplyReturnOfCapital(ctx context.Context, repo Repository, log zerolog.Logger, tx *Transaction) error {
	return applyReturnOfCapital(ctx, repo, log, tx, true)
}

// applyReturnOfCapital is shared with the broker-quirks income-as-retofcap
// override, which has already logged the originating transaction and must
// bypass the event-log check.
func applyReturnOfCapital(ctx context.Context, repo Repository, log zerolog.Logger, tx *Transaction, checkLog bool) error {
	if checkLog {
		logged, err := repo.IsLogged(ctx, tx.ID)
		if err != nil {
			return fmt.Errorf("ledger: checking event log: %w", err)
		}
		if logged {
			log.Debug().Str("transaction", tx.ID.String()).Msg("return of capital already logged, skipping")
			return nil
		}
	}

	lots, err := repo.LongsAsOf(ctx, tx.DtTrade, "", tx.Security)
	if err != nil {
		return fmt.Errorf("ledger: querying long lots: %w", err)
	}

	totalUnits := decimal.Zero
	for _, lot := range lots {
		totalUnits = totalUnits.Add(lot.Units)
	}
	if totalUnits.IsZero() {
		return newInvariantError(tx.ID, "no-units",
			fmt.Errorf("no long units held in %q as of %s", tx.Security, tx.DtTrade))
	}
	for _, lot := range lots {
		// lot.Units * (total / totalUnits), multiplied before dividing so a
		// lot holding all the units gets exactly total.
		costAdj := lot.Units.Mul(tx.Total).Div(totalUnits)
		adjCost := lot.Cost.Sub(costAdj)

		lot.Ender = &tx.ID
		dt := tx.DtTrade
		lot.DtEnd = &dt
		if err := repo.UpdateLot(ctx, lot); err != nil {
			return fmt.Errorf("ledger: ending lot: %w", err)
		}

		newLot := &Lot{
			ID:       uuid.New(),
			Account:  lot.Account,
			Security: lot.Security,
			Units:    lot.Units,
			Cost:     adjCost,
			WashCost: lot.WashCost,
			DtOpen:   lot.DtOpen,
			DtStart:  tx.DtTrade,
			Opener:   lot.Opener,
			Starter:  tx.ID,
			Predecessor: &lot.ID,
		}
		if adjCost.Sign() < 0 {
			newLot.Cost = decimal.Zero
		}
		if err := repo.InsertLot(ctx, newLot); err != nil {
			return fmt.Errorf("ledger: inserting successor lot: %w", err)
		}
		if adjCost.Sign() < 0 {
			gain := &Gain{
				ID:            uuid.New(),
				LotID:         newLot.ID,
				TransactionID: tx.ID,
				Proceeds:      adjCost.Neg(),
				WashLoss:      decimal.Zero,
			}
			if err := repo.InsertGain(ctx, gain); err != nil {
				return fmt.Errorf("ledger: inserting retofcap gain: %w", err)
			}
		}
	}

	if checkLog {
		if err := repo.InsertLog(ctx, tx.ID); err != nil {
			return fmt.Errorf("ledger: recording event log: %w", err)
		}
	}
	return nil
}
