package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// closeLot marks lot as closed/ended by tx, mutating it in place.
func closeLot(lot *Lot, tx *Transaction) {
	dt := tx.DtTrade
	lot.DtClose = &dt
	lot.Closer = &tx.ID
	lot.DtEnd = &dt
	lot.Ender = &tx.ID
}

// oppositeSign reports whether a and b have strictly opposite, nonzero
// signs.
func oppositeSign(a, b decimal.Decimal) bool {
	return a.Sign()*b.Sign() < 0
}

// ApplyTrade implements the lot engine's trade handling (buy/sell): FIFO
// matching against open lots of opposite sign, partial-close splitting, and
// opening a new lot for any unmatched remainder.
func ApplyTrade(ctx context.Context, repo Repository, log zerolog.Logger, tx *Transaction) error {
	logged, err := repo.IsLogged(ctx, tx.ID)
	if err != nil {
		return fmt.Errorf("ledger: checking event log: %w", err)
	}
	if logged {
		log.Debug().Str("transaction", tx.ID.String()).Msg("trade already logged, skipping")
		return nil
	}

	candidates, err := repo.LotsAsOf(ctx, tx.DtTrade, tx.Account, tx.Security)
	if err != nil {
		return fmt.Errorf("ledger: querying open lots: %w", err)
	}

	remaining := tx.Units
	for _, lot := range candidates {
		if remaining.IsZero() {
			break
		}
		if !lot.IsOpen() || !oppositeSign(lot.Units, tx.Units) {
			continue
		}

		if remaining.Abs().GreaterThanOrEqual(lot.Units.Abs()) {
			// The whole lot closes.
			remaining = remaining.Add(lot.Units)
			closeLot(lot, tx)
			if err := repo.UpdateLot(ctx, lot); err != nil {
				return fmt.Errorf("ledger: closing lot: %w", err)
			}
			if err := insertTradeGain(ctx, repo, lot, tx); err != nil {
				return err
			}
		} else {
			// The trade exhausts before the lot does: split it.
			unitCost := lot.Cost.Div(lot.Units)
			residualUnits := lot.Units.Add(remaining)
			residualCost := residualUnits.Mul(unitCost)
			closingUnits := remaining.Neg()
			closingCost := lot.Cost.Sub(residualCost)

			lot.Units = closingUnits
			lot.Cost = closingCost
			closeLot(lot, tx)
			if err := repo.UpdateLot(ctx, lot); err != nil {
				return fmt.Errorf("ledger: closing split lot: %w", err)
			}
			if err := insertTradeGain(ctx, repo, lot, tx); err != nil {
				return err
			}

			residual := &Lot{
				ID:       uuid.New(),
				Account:  lot.Account,
				Security: lot.Security,
				Units:    residualUnits,
				Cost:     residualCost,
				WashCost: lot.WashCost,
				DtOpen:   lot.DtOpen,
				DtStart:  lot.DtStart,
				Opener:   lot.Opener,
				Starter:  lot.Starter,
			}
			if err := repo.InsertLot(ctx, residual); err != nil {
				return fmt.Errorf("ledger: inserting residual lot: %w", err)
			}
			// Subsequent candidates in this same walk must not see the
			// mutated/new lots as additional matches, and later trades must
			// see the residual lot as open inventory, so flush now.
			if err := repo.Flush(ctx); err != nil {
				return fmt.Errorf("ledger: flushing after split: %w", err)
			}
			remaining = decimal.Zero
		}
	}

	if !remaining.IsZero() {
		newLot := &Lot{
			ID:       uuid.New(),
			Account:  tx.Account,
			Security: tx.Security,
			Units:    remaining,
			Cost:     tx.Total.Neg(),
			WashCost: decimal.Zero,
			DtOpen:   tx.DtTrade,
			DtStart:  tx.DtTrade,
			Opener:   tx.ID,
			Starter:  tx.ID,
		}
		if err := repo.InsertLot(ctx, newLot); err != nil {
			return fmt.Errorf("ledger: opening new lot: %w", err)
		}
	}

	if err := repo.InsertLog(ctx, tx.ID); err != nil {
		return fmt.Errorf("ledger: recording event log: %w", err)
	}
	return nil
}

func insertTradeGain(ctx context.Context, repo Repository, lot *Lot, tx *Transaction) error {
	if tx.Units.IsZero() {
		return errors.New("ledger: trade has zero units")
	}
	proceeds := lot.Units.Div(tx.Units).Mul(tx.Total.Neg())
	gain := &Gain{
		ID:            uuid.New(),
		LotID:         lot.ID,
		TransactionID: tx.ID,
		Proceeds:      proceeds,
		WashLoss:      decimal.Zero,
	}
	if err := repo.InsertGain(ctx, gain); err != nil {
		return fmt.Errorf("ledger: inserting gain: %w", err)
	}
	return nil
}
