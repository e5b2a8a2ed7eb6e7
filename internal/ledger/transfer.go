package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// memoPrefix returns the portion of a transfer memo used to match a pair:
// everything before a trailing parenthetical annotation, trimmed, or the
// whole memo if there is none.
func memoPrefix(memo string) string {
	if i := strings.LastIndex(memo, " ("); i >= 0 {
		return strings.TrimSpace(memo[:i])
	}
	return strings.TrimSpace(memo)
}

// findTransferTwin locates the other half of tx's transfer pair among the
// transactions in the same ingest window: same account, same date, a
// transfer, a different transaction, and a matching memo prefix.
func findTransferTwin(tx *Transaction, windowTxs []*Transaction) *Transaction {
	prefix := memoPrefix(tx.Memo)
	for _, other := range windowTxs {
		if other.ID == tx.ID || other.Kind != KindTransfer {
			continue
		}
		if other.Account != tx.Account || other.DtTrade != tx.DtTrade {
			continue
		}
		if memoPrefix(other.Memo) != prefix {
			continue
		}
		return other
	}
	return nil
}

// ApplyTransfer implements the transfer/reorganization adjunct: matches a
// transfer transaction with its pair twin, determines which side represents
// inventory we already hold, and replaces each held lot with a successor
// under the new security.
func ApplyTransfer(ctx context.Context, repo Repository, log zerolog.Logger, tx *Transaction, windowTxs []*Transaction) error {
	logged, err := repo.IsLogged(ctx, tx.ID)
	if err != nil {
		return fmt.Errorf("ledger: checking event log: %w", err)
	}
	if logged {
		return nil
	}

	twin := findTransferTwin(tx, windowTxs)
	if twin == nil {
		log.Warn().Str("transaction", tx.ID.String()).Msg("transfer has no matching twin, ignoring")
		return nil
	}
	if !tx.Units.IsZero() && !twin.Units.IsZero() && !oppositeSign(tx.Units, twin.Units) {
		return newInvariantError(tx.ID, "transfer-pair-sign",
			fmt.Errorf("transfer pair units %s and %s are not opposite-signed", tx.Units, twin.Units))
	}

	// Determine which side is inventory we already hold.
	heldLots, err := repo.LotsAsOf(ctx, tx.DtTrade, tx.Account, tx.Security)
	if err != nil {
		return fmt.Errorf("ledger: querying held lots: %w", err)
	}
	var outgoing, incoming *Transaction
	var newSecurity string
	var lots []*Lot

	heldUnits := sumUnits(heldLots)
	if len(heldLots) > 0 && tx.Units.Equal(heldUnits.Neg()) {
		outgoing, incoming = tx, twin
		newSecurity = twin.Security
		lots = heldLots
	} else {
		twinLots, err := repo.LotsAsOf(ctx, tx.DtTrade, tx.Account, twin.Security)
		if err != nil {
			return fmt.Errorf("ledger: querying twin held lots: %w", err)
		}
		if len(twinLots) == 0 {
			// We don't own either side of the pair; ignore it.
			log.Debug().Str("transaction", tx.ID.String()).Msg("transfer matches no held inventory, ignoring")
			return nil
		}
		twinHeldUnits := sumUnits(twinLots)
		if !twin.Units.Equal(twinHeldUnits.Neg()) {
			return newInvariantError(tx.ID, "transfer-units-mismatch",
				fmt.Errorf("held units %s != negated twin units %s", twinHeldUnits, twin.Units))
		}
		outgoing, incoming = twin, tx
		newSecurity = tx.Security
		lots = twinLots
		heldUnits = twinHeldUnits
	}

	ratio := incoming.Units.Div(heldUnits)
	for _, lot := range lots {
		lot.Ender = &outgoing.ID
		dt := outgoing.DtTrade
		lot.DtEnd = &dt
		if err := repo.UpdateLot(ctx, lot); err != nil {
			return fmt.Errorf("ledger: ending transferred lot: %w", err)
		}
		successor := &Lot{
			ID:          uuid.New(),
			Account:     lot.Account,
			Security:    newSecurity,
			Units:       lot.Units.Mul(ratio),
			Cost:        lot.Cost,
			WashCost:    lot.WashCost,
			DtOpen:      lot.DtOpen,
			DtStart:     incoming.DtTrade,
			Opener:      lot.Opener,
			Starter:     incoming.ID,
			Predecessor: &lot.ID,
		}
		if err := repo.InsertLot(ctx, successor); err != nil {
			return fmt.Errorf("ledger: inserting transfer successor lot: %w", err)
		}
	}

	if err := repo.InsertLog(ctx, tx.ID); err != nil {
		return fmt.Errorf("ledger: recording event log: %w", err)
	}
	if err := repo.InsertLog(ctx, twin.ID); err != nil {
		return fmt.Errorf("ledger: recording twin event log: %w", err)
	}
	return nil
}

func sumUnits(lots []*Lot) decimal.Decimal {
	sum := decimal.Zero
	for _, lot := range lots {
		sum = sum.Add(lot.Units)
	}
	return sum
}
