package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// QuirksTable maps broker ID -> the set of transaction kinds that broker
// overrides, remapping them onto a non-default handler before the driver's
// normal routing applies.
type QuirksTable map[string]map[Kind]bool

// defaultIBKRBrokerID is broker 4705's always-active override: it books
// transfers structurally and return-of-capital distributions as income,
// both of which need special-cased handling.
const defaultIBKRBrokerID = "4705"

// BuildQuirksTable assembles the dispatcher table from configuration,
// seeding the IBKR default entry unconditionally.
func BuildQuirksTable(configured map[string][]string) QuirksTable {
	table := QuirksTable{
		defaultIBKRBrokerID: {KindTransfer: true, KindIncome: true},
	}
	for brokerID, kinds := range configured {
		m, ok := table[brokerID]
		if !ok {
			m = map[Kind]bool{}
			table[brokerID] = m
		}
		for _, k := range kinds {
			m[ParseKind(k)] = true
		}
	}
	return table
}

// HasOverride reports whether brokerID overrides handling of kind.
func (t QuirksTable) HasOverride(brokerID string, kind Kind) bool {
	m, ok := t[brokerID]
	if !ok {
		return false
	}
	return m[kind]
}

// Dispatch runs the broker-quirk override for tx, if one applies, and
// reports whether it did (in which case the driver's default routing must
// be skipped).
func Dispatch(ctx context.Context, repo Repository, log zerolog.Logger, tx *Transaction, windowTxs []*Transaction, table QuirksTable) (handled bool, err error) {
	if !table.HasOverride(tx.BrokerID, tx.Kind) {
		return false, nil
	}
	switch tx.Kind {
	case KindTransfer:
		return true, ApplyTransfer(ctx, repo, log, tx, windowTxs)
	case KindIncome:
		return true, applyIncomeAsReturnOfCapital(ctx, repo, log, tx, windowTxs)
	default:
		return false, nil
	}
}

// applyIncomeAsReturnOfCapital is the IBKR income-as-retofcap override: a
// broker that books return-of-capital distributions as INCOME, noting the
// classification only in the memo. If a reversing expense transaction
// exists (same date, equal-and-opposite total, matching memo prefix), the
// pair cancels and the economic effect is discarded; otherwise the
// transaction is forwarded to the return-of-capital handler.
func applyIncomeAsReturnOfCapital(ctx context.Context, repo Repository, log zerolog.Logger, tx *Transaction, windowTxs []*Transaction) error {
	logged, err := repo.IsLogged(ctx, tx.ID)
	if err != nil {
		return fmt.Errorf("ledger: checking event log: %w", err)
	}
	if logged {
		return nil
	}
	if err := repo.InsertLog(ctx, tx.ID); err != nil {
		return fmt.Errorf("ledger: recording event log: %w", err)
	}

	if !strings.Contains(strings.ToLower(tx.Memo), "return of capital") {
		log.Debug().Str("transaction", tx.ID.String()).Msg("income memo does not mention return of capital, ignoring")
		return nil
	}
	prefix := memoPrefix(tx.Memo)

	for _, other := range windowTxs {
		if other.Kind != KindExpense || other.DtTrade != tx.DtTrade {
			continue
		}
		if !other.Total.Equal(tx.Total.Neg()) {
			continue
		}
		if memoPrefix(other.Memo) != prefix {
			continue
		}
		reversalLogged, err := repo.IsLogged(ctx, other.ID)
		if err != nil {
			return fmt.Errorf("ledger: checking event log: %w", err)
		}
		if !reversalLogged {
			if err := repo.InsertLog(ctx, other.ID); err != nil {
				return fmt.Errorf("ledger: recording reversal event log: %w", err)
			}
		}
		log.Info().Str("transaction", tx.ID.String()).Str("reversal", other.ID.String()).
			Msg("income return-of-capital reversed, discarding")
		return nil
	}

	// No reversal: process as a return of capital. The income transaction
	// is already logged above, so bypass the handler's own log check.
	return applyReturnOfCapital(ctx, repo, log, tx, false)
}
