package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bufdev/capgains/internal/xtime"
)

// washSaleWindowDays is the number of calendar days on either side of a
// loss lot's close date within which replacement shares disallow the loss.
const washSaleWindowDays = 30

// RunWashSales implements the wash-sale engine: every gain on a lot closed
// within [dtStart, dtEnd] realizing a loss, and not already processed, is
// checked against replacement lots opened within the wash-sale window,
// proportionally partitioning the loss lot (and gain) between washed and
// unwashed portions and rolling the disallowed loss into the cost basis of
// the replacement lots.
func RunWashSales(ctx context.Context, repo Repository, log zerolog.Logger, dtStart, dtEnd xtime.Date) error {
	gains, err := repo.GainsNeedingWashSale(ctx, dtStart, dtEnd)
	if err != nil {
		return fmt.Errorf("ledger: querying gains needing wash-sale review: %w", err)
	}
	for _, gain := range gains {
		if err := evaluateWashSale(ctx, repo, log, gain); err != nil {
			return err
		}
	}
	return nil
}

func evaluateWashSale(ctx context.Context, repo Repository, log zerolog.Logger, gain *Gain) error {
	lot, err := repo.GetLot(ctx, gain.LotID)
	if err != nil {
		return fmt.Errorf("ledger: loading lot %s: %w", gain.LotID, err)
	}
	if lot.DtClose == nil {
		log.Warn().Str("gain", gain.ID.String()).Msg("lot still open, skipping wash-sale evaluation")
		return nil
	}
	if !gain.WashLoss.IsZero() {
		log.Warn().Str("gain", gain.ID.String()).Msg("loss already disallowed, skipping")
		return nil
	}
	derived := DeriveGain(lot, gain)
	if derived.Value.Sign() >= 0 {
		log.Debug().Str("gain", gain.ID.String()).Msg("not a loss, no wash sale")
		return nil
	}
	if lot.Closer == nil || *lot.Closer != gain.TransactionID {
		log.Debug().Str("gain", gain.ID.String()).Msg("not the closing transaction, no wash sale")
		return nil
	}

	windowStart := lot.DtClose.AddDays(-washSaleWindowDays)
	windowEnd := lot.DtClose.AddDays(washSaleWindowDays)
	candidates, err := repo.ReplacementLotCandidates(ctx, lot.Account, lot.Security, windowStart, windowEnd)
	if err != nil {
		return fmt.Errorf("ledger: querying replacement lot candidates: %w", err)
	}

	var replacementLots []*Lot
	totalReplacement := decimal.Zero
	for _, candidate := range candidates {
		if candidate.ID == lot.ID {
			continue
		}
		if candidate.Units.Sign() != lot.Units.Sign() {
			continue
		}
		replacementLots = append(replacementLots, candidate)
		totalReplacement = totalReplacement.Add(candidate.Units)
	}
	if totalReplacement.IsZero() {
		log.Info().Str("gain", gain.ID.String()).Msg("no replacement units found, no wash sale")
		return nil
	}

	// Sign-preserving lesser magnitude of replacement units and loss units.
	effective := totalReplacement.Abs()
	if lot.Units.Abs().LessThan(effective) {
		effective = lot.Units.Abs()
	}
	if totalReplacement.Sign() < 0 {
		effective = effective.Neg()
	}
	washedUnits := effective
	unwashedUnits := lot.Units.Sub(washedUnits)

	originalUnits := lot.Units
	unitCost := lot.Cost.Div(originalUnits)
	unitProceeds := gain.Proceeds.Div(originalUnits)
	unitLoss := derived.Value.Div(originalUnits)

	washedCost := washedUnits.Mul(unitCost)
	washedProceeds := washedUnits.Mul(unitProceeds)
	disallowedLoss := washedUnits.Mul(unitLoss)

	log.Info().Str("gain", gain.ID.String()).Str("washed_units", washedUnits.String()).
		Str("unwashed_units", unwashedUnits.String()).Msg("wash sale applies")

	lot.Units = washedUnits
	lot.Cost = washedCost
	if err := repo.UpdateLot(ctx, lot); err != nil {
		return fmt.Errorf("ledger: partitioning loss lot: %w", err)
	}

	// splitLotGains must run against the still-unmutated gain (Proceeds
	// at its original, pre-wash value) so its own proportional split is
	// not compounded by the washedProceeds update below; only afterward
	// do we overwrite gain with its final washed Proceeds/WashLoss.
	if !unwashedUnits.IsZero() {
		unwashedLot := &Lot{
			ID:          uuid.New(),
			Account:     lot.Account,
			Security:    lot.Security,
			Units:       unwashedUnits,
			Cost:        unwashedUnits.Mul(unitCost),
			WashCost:    decimal.Zero,
			DtOpen:      lot.DtOpen,
			DtClose:     lot.DtClose,
			DtStart:     lot.DtStart,
			DtEnd:       lot.DtEnd,
			Opener:      lot.Opener,
			Closer:      lot.Closer,
			Starter:     lot.Starter,
			Ender:       lot.Ender,
			Predecessor: &lot.ID,
		}
		if err := repo.InsertLot(ctx, unwashedLot); err != nil {
			return fmt.Errorf("ledger: inserting unwashed loss lot: %w", err)
		}
		if err := splitLotGains(ctx, repo, lot.ID, unwashedLot.ID, originalUnits, unwashedUnits); err != nil {
			return err
		}
		if err := repo.Flush(ctx); err != nil {
			return fmt.Errorf("ledger: flushing after loss-lot partition: %w", err)
		}
	}

	gain.Proceeds = washedProceeds
	gain.WashLoss = disallowedLoss
	if err := repo.UpdateGain(ctx, gain); err != nil {
		return fmt.Errorf("ledger: disallowing wash-sale loss: %w", err)
	}

	return rollIntoReplacements(ctx, repo, log, gain.TransactionID, replacementLots, washedUnits, unitLoss, disallowedLoss)
}

// splitLotGains recomputes every gain recorded against lotID on a
// proportional basis: keepUnits stays on lotID, otherUnits moves to a new
// gain on otherLotID. Proceeds are linear in units (proceeds = units /
// -txUnits * txTotal at the time the gain was created), so scaling the
// existing proceeds by the unit ratio reproduces that computation exactly
// without needing to re-load the realizing transaction.
func splitLotGains(ctx context.Context, repo Repository, lotID, otherLotID uuid.UUID, originalUnits, otherUnits decimal.Decimal) error {
	gains, err := repo.GainsForLot(ctx, lotID)
	if err != nil {
		return fmt.Errorf("ledger: loading gains for lot %s: %w", lotID, err)
	}
	otherRatio := otherUnits.Div(originalUnits)
	keepRatio := decimal.NewFromInt(1).Sub(otherRatio)
	for _, g := range gains {
		otherGain := &Gain{
			ID:            uuid.New(),
			LotID:         otherLotID,
			TransactionID: g.TransactionID,
			Proceeds:      g.Proceeds.Mul(otherRatio),
			WashLoss:      decimal.Zero,
		}
		if err := repo.InsertGain(ctx, otherGain); err != nil {
			return fmt.Errorf("ledger: inserting split gain: %w", err)
		}
		g.Proceeds = g.Proceeds.Mul(keepRatio)
		if err := repo.UpdateGain(ctx, g); err != nil {
			return fmt.Errorf("ledger: adjusting split gain: %w", err)
		}
	}
	return nil
}

// rollIntoReplacements walks replacementLots in dtopen order, rolling the
// disallowed loss into each one's cost basis until washedUnits is
// exhausted, splitting a replacement lot (and its gains) if it only
// partially absorbs the remaining wash units. txID identifies the
// realizing transaction, for reporting if the totalization invariant
// below is violated. disallowedLoss is the loss amount the rolled
// wash-cost must sum to (negated), per the termination invariants.
func rollIntoReplacements(ctx context.Context, repo Repository, log zerolog.Logger, txID uuid.UUID, replacementLots []*Lot, washedUnits, unitLoss, disallowedLoss decimal.Decimal) error {
	remaining := washedUnits
	for _, lot := range replacementLots {
		if remaining.IsZero() {
			break
		}

		if remaining.Abs().GreaterThanOrEqual(lot.Units.Abs()) {
			lot.WashCost = lot.Units.Mul(unitLoss.Neg())
			if err := repo.UpdateLot(ctx, lot); err != nil {
				return fmt.Errorf("ledger: rolling wash cost into replacement lot: %w", err)
			}
			log.Debug().Str("lot", lot.ID.String()).Str("washcost", lot.WashCost.String()).
				Msg("replacement lot fully absorbs remaining wash units")
			remaining = remaining.Sub(lot.Units)
			continue
		}

		// The replacement lot has more units than remain to wash: split it.
		originalUnits := lot.Units
		unitCost := lot.Cost.Div(originalUnits)
		washedLotUnits := remaining
		unwashedLotUnits := originalUnits.Sub(washedLotUnits)

		lot.Units = washedLotUnits
		lot.Cost = washedLotUnits.Mul(unitCost)
		lot.WashCost = washedLotUnits.Mul(unitLoss.Neg())
		if err := repo.UpdateLot(ctx, lot); err != nil {
			return fmt.Errorf("ledger: splitting replacement lot: %w", err)
		}

		unwashedLot := &Lot{
			ID:          uuid.New(),
			Account:     lot.Account,
			Security:    lot.Security,
			Units:       unwashedLotUnits,
			Cost:        unwashedLotUnits.Mul(unitCost),
			WashCost:    decimal.Zero,
			DtOpen:      lot.DtOpen,
			DtClose:     lot.DtClose,
			DtStart:     lot.DtStart,
			DtEnd:       lot.DtEnd,
			Opener:      lot.Opener,
			Closer:      lot.Closer,
			Starter:     lot.Starter,
			Ender:       lot.Ender,
			Predecessor: &lot.ID,
		}
		if err := repo.InsertLot(ctx, unwashedLot); err != nil {
			return fmt.Errorf("ledger: inserting unwashed replacement lot: %w", err)
		}
		if err := splitLotGains(ctx, repo, lot.ID, unwashedLot.ID, originalUnits, unwashedLotUnits); err != nil {
			return err
		}
		log.Debug().Str("lot", lot.ID.String()).Str("washcost", lot.WashCost.String()).
			Msg("replacement lot partially absorbs remaining wash units, splitting")
		remaining = decimal.Zero
	}

	if !remaining.IsZero() {
		return newInvariantError(txID, "washsale-totalization",
			fmt.Errorf("replacement lots left %s units unabsorbed", remaining.String()))
	}
	rolled := decimal.Zero
	for _, lot := range replacementLots {
		rolled = rolled.Add(lot.WashCost)
	}
	if !within(rolled, disallowedLoss.Neg()) {
		return newInvariantError(txID, "washsale-totalization",
			fmt.Errorf("rolled wash cost %s does not match disallowed loss %s", rolled.String(), disallowedLoss.Neg().String()))
	}
	return nil
}
