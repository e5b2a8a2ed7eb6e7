package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ApplySplit implements the lot engine's stock-split handling: every
// current lot (long or short) of the security, across all accounts, is
// superseded by a successor re-unitized by the split ratio; cost and
// washcost are preserved unchanged.
func ApplySplit(ctx context.Context, repo Repository, log zerolog.Logger, tx *Transaction) error {
	logged, err := repo.IsLogged(ctx, tx.ID)
	if err != nil {
		return fmt.Errorf("ledger: checking event log: %w", err)
	}
	if logged {
		log.Debug().Str("transaction", tx.ID.String()).Msg("split already logged, skipping")
		return nil
	}

	if tx.OldUnits.IsZero() || tx.Denominator == 0 {
		return newInvariantError(tx.ID, "split-ratio", fmt.Errorf("zero oldunits or denominator"))
	}
	ratio := tx.NewUnits.Div(tx.OldUnits)
	fractional := decimal.NewFromInt(tx.Numerator).Div(decimal.NewFromInt(tx.Denominator))
	if !ratio.Equal(fractional) {
		return newInvariantError(tx.ID, "split-ratio",
			fmt.Errorf("newunits/oldunits %s != numerator/denominator %s", ratio, fractional))
	}

	lots, err := repo.LotsAsOf(ctx, tx.DtTrade, "", tx.Security)
	if err != nil {
		return fmt.Errorf("ledger: querying lots: %w", err)
	}

	newUnits := decimal.Zero
	for _, lot := range lots {
		lot.Ender = &tx.ID
		dt := tx.DtTrade
		lot.DtEnd = &dt
		if err := repo.UpdateLot(ctx, lot); err != nil {
			return fmt.Errorf("ledger: ending lot: %w", err)
		}

		successorUnits := lot.Units.Mul(ratio)
		successor := &Lot{
			ID:          uuid.New(),
			Account:     lot.Account,
			Security:    lot.Security,
			Units:       successorUnits,
			Cost:        lot.Cost,
			WashCost:    lot.WashCost,
			DtOpen:      lot.DtOpen,
			DtStart:     tx.DtTrade,
			Opener:      lot.Opener,
			Starter:     tx.ID,
			Predecessor: &lot.ID,
		}
		if err := repo.InsertLot(ctx, successor); err != nil {
			return fmt.Errorf("ledger: inserting successor lot: %w", err)
		}
		newUnits = newUnits.Add(successorUnits)
	}

	if !within(newUnits, tx.NewUnits) {
		return newInvariantError(tx.ID, "split-conservation",
			fmt.Errorf("successor units %s != split newunits %s", newUnits, tx.NewUnits))
	}

	if err := repo.InsertLog(ctx, tx.ID); err != nil {
		return fmt.Errorf("ledger: recording event log: %w", err)
	}
	return nil
}
