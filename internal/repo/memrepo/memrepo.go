// Package memrepo is the default in-memory implementation of
// ledger.Repository: it satisfies the repository's buffered-write/flush/
// commit/rollback contract in process memory, persisting to a JSON
// snapshot file only at the CLI's explicit load/save points.
package memrepo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/bufdev/capgains/internal/ledger"
	"github.com/bufdev/capgains/internal/xtime"
)

// Repository is an in-memory ledger.Repository. The zero value is not
// usable; construct with New.
//
// Writes apply directly to the live slices (so Flush is a no-op: reads
// already observe them), but the first mutation after a Commit/Rollback
// lazily snapshots the prior state so Rollback can restore it.
type Repository struct {
	mu sync.Mutex

	lots    []*ledger.Lot
	gains   []*ledger.Gain
	txs     []*ledger.Transaction
	logged  map[uuid.UUID]bool

	snapshot *snapshot
}

type snapshot struct {
	lots   []*ledger.Lot
	gains  []*ledger.Gain
	txs    []*ledger.Transaction
	logged map[uuid.UUID]bool
}

// New returns an empty Repository.
func New() *Repository {
	return &Repository{logged: map[uuid.UUID]bool{}}
}

func (r *Repository) beginIfNeeded() {
	if r.snapshot != nil {
		return
	}
	r.snapshot = &snapshot{
		lots:   cloneLots(r.lots),
		gains:  cloneGains(r.gains),
		txs:    cloneTransactions(r.txs),
		logged: cloneLogged(r.logged),
	}
}

// LoadTransactions seeds the repository's transaction table, e.g. from a
// CSV transaction log. Transactions already present by ID are skipped, so
// repeated loads of the same file are idempotent.
func (r *Repository) LoadTransactions(txs []*ledger.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[uuid.UUID]bool, len(r.txs))
	for _, tx := range r.txs {
		seen[tx.ID] = true
	}
	for _, tx := range txs {
		if seen[tx.ID] {
			continue
		}
		r.txs = append(r.txs, cloneTransaction(tx))
		seen[tx.ID] = true
	}
}

// CurrentLots returns every current lot (current as of no particular
// date — DtEnd nil), optionally filtered by account/security.
func (r *Repository) CurrentLots(account, security string) []*ledger.Lot {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*ledger.Lot
	for _, lot := range r.lots {
		if lot.DtEnd != nil {
			continue
		}
		if account != "" && lot.Account != account {
			continue
		}
		if security != "" && lot.Security != security {
			continue
		}
		out = append(out, cloneLot(lot))
	}
	sortLots(out)
	return out
}

// GainsInRange returns every gain realized by a transaction with DtTrade
// in [dtStart, dtEnd], optionally filtered by account/security, for the
// Gains CSV surface.
func (r *Repository) GainsInRange(dtStart, dtEnd xtime.Date, account, security string) ([]*ledger.Gain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	txByID := make(map[uuid.UUID]*ledger.Transaction, len(r.txs))
	for _, tx := range r.txs {
		txByID[tx.ID] = tx
	}
	lotByID := make(map[uuid.UUID]*ledger.Lot, len(r.lots))
	for _, lot := range r.lots {
		lotByID[lot.ID] = lot
	}

	var out []*ledger.Gain
	for _, gain := range r.gains {
		tx, ok := txByID[gain.TransactionID]
		if !ok {
			return nil, fmt.Errorf("memrepo: gain %s references unknown transaction %s", gain.ID, gain.TransactionID)
		}
		if tx.DtTrade.Before(dtStart) || tx.DtTrade.After(dtEnd) {
			continue
		}
		lot, ok := lotByID[gain.LotID]
		if !ok {
			return nil, fmt.Errorf("memrepo: gain %s references unknown lot %s", gain.ID, gain.LotID)
		}
		if account != "" && lot.Account != account {
			continue
		}
		if security != "" && lot.Security != security {
			continue
		}
		out = append(out, cloneGain(gain))
	}
	return out, nil
}

func sortLots(lots []*ledger.Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		return lots[i].DtOpen.Compare(lots[j].DtOpen) < 0
	})
}

// LotsAsOf implements ledger.Repository.
func (r *Repository) LotsAsOf(_ context.Context, dtAsOf xtime.Date, account, security string) ([]*ledger.Lot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*ledger.Lot
	for _, lot := range r.lots {
		if !isCurrentAsOf(lot, dtAsOf) {
			continue
		}
		if account != "" && lot.Account != account {
			continue
		}
		if security != "" && lot.Security != security {
			continue
		}
		out = append(out, cloneLot(lot))
	}
	sortLots(out)
	return out, nil
}

// LongsAsOf implements ledger.Repository.
func (r *Repository) LongsAsOf(ctx context.Context, dtAsOf xtime.Date, account, security string) ([]*ledger.Lot, error) {
	lots, err := r.LotsAsOf(ctx, dtAsOf, account, security)
	if err != nil {
		return nil, err
	}
	var out []*ledger.Lot
	for _, lot := range lots {
		if lot.Units.Sign() > 0 {
			out = append(out, lot)
		}
	}
	return out, nil
}

func isCurrentAsOf(lot *ledger.Lot, dtAsOf xtime.Date) bool {
	if lot.DtStart.After(dtAsOf) {
		return false
	}
	return lot.DtEnd == nil || lot.DtEnd.After(dtAsOf)
}

// TransactionsIn implements ledger.Repository.
func (r *Repository) TransactionsIn(_ context.Context, dtStart, dtEnd xtime.Date) ([]*ledger.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*ledger.Transaction
	for _, tx := range r.txs {
		if tx.DtTrade.Before(dtStart) || tx.DtTrade.After(dtEnd) {
			continue
		}
		out = append(out, cloneTransaction(tx))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].DtTrade.Compare(out[j].DtTrade); c != 0 {
			return c < 0
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

// GainsNeedingWashSale implements ledger.Repository. It mirrors the
// original reference implementation's window semantics exactly:
// lot.dtopen strictly after dtStart, and on or before dtEnd.
func (r *Repository) GainsNeedingWashSale(_ context.Context, dtStart, dtEnd xtime.Date) ([]*ledger.Gain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lotByID := make(map[uuid.UUID]*ledger.Lot, len(r.lots))
	for _, lot := range r.lots {
		lotByID[lot.ID] = lot
	}

	type pair struct {
		gain *ledger.Gain
		lot  *ledger.Lot
	}
	var pairs []pair
	for _, gain := range r.gains {
		if !gain.WashLoss.IsZero() {
			continue
		}
		lot, ok := lotByID[gain.LotID]
		if !ok || lot.DtClose == nil {
			continue
		}
		if !lot.DtOpen.After(dtStart) || lot.DtOpen.After(dtEnd) {
			continue
		}
		pairs = append(pairs, pair{gain, lot})
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].lot.DtOpen.Compare(pairs[j].lot.DtOpen) < 0
	})

	out := make([]*ledger.Gain, len(pairs))
	for i, p := range pairs {
		out[i] = cloneGain(p.gain)
	}
	return out, nil
}

// GainsForLot implements ledger.Repository.
func (r *Repository) GainsForLot(_ context.Context, lotID uuid.UUID) ([]*ledger.Gain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*ledger.Gain
	for _, gain := range r.gains {
		if gain.LotID == lotID {
			out = append(out, cloneGain(gain))
		}
	}
	return out, nil
}

// GetLot implements ledger.Repository.
func (r *Repository) GetLot(_ context.Context, id uuid.UUID) (*ledger.Lot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, lot := range r.lots {
		if lot.ID == id {
			return cloneLot(lot), nil
		}
	}
	return nil, fmt.Errorf("memrepo: lot %s not found", id)
}

// ReplacementLotCandidates implements ledger.Repository.
func (r *Repository) ReplacementLotCandidates(_ context.Context, account, security string, dtFrom, dtEnd xtime.Date) ([]*ledger.Lot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*ledger.Lot
	for _, lot := range r.lots {
		if lot.Account != account || lot.Security != security {
			continue
		}
		if !lot.WashCost.IsZero() {
			continue
		}
		if lot.DtOpen.Before(dtFrom) || lot.DtOpen.After(dtEnd) {
			continue
		}
		out = append(out, cloneLot(lot))
	}
	sortLots(out)
	return out, nil
}

// InsertLot implements ledger.Repository.
func (r *Repository) InsertLot(_ context.Context, lot *ledger.Lot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beginIfNeeded()
	r.lots = append(r.lots, cloneLot(lot))
	return nil
}

// UpdateLot implements ledger.Repository.
func (r *Repository) UpdateLot(_ context.Context, lot *ledger.Lot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beginIfNeeded()
	for i, existing := range r.lots {
		if existing.ID == lot.ID {
			r.lots[i] = cloneLot(lot)
			return nil
		}
	}
	return fmt.Errorf("memrepo: lot %s not found for update", lot.ID)
}

// InsertGain implements ledger.Repository.
func (r *Repository) InsertGain(_ context.Context, gain *ledger.Gain) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beginIfNeeded()
	r.gains = append(r.gains, cloneGain(gain))
	return nil
}

// UpdateGain implements ledger.Repository.
func (r *Repository) UpdateGain(_ context.Context, gain *ledger.Gain) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beginIfNeeded()
	for i, existing := range r.gains {
		if existing.ID == gain.ID {
			r.gains[i] = cloneGain(gain)
			return nil
		}
	}
	return fmt.Errorf("memrepo: gain %s not found for update", gain.ID)
}

// InsertLog implements ledger.Repository.
func (r *Repository) InsertLog(_ context.Context, transactionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beginIfNeeded()
	r.logged[transactionID] = true
	return nil
}

// IsLogged implements ledger.Repository.
func (r *Repository) IsLogged(_ context.Context, transactionID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logged[transactionID], nil
}

// Flush implements ledger.Repository. Writes are already applied directly
// to the live slices, so there is nothing to do; the method exists to
// satisfy the interface and to mark the points the lot engine depends on
// re-querying fresh state.
func (r *Repository) Flush(_ context.Context) error {
	return nil
}

// Commit implements ledger.Repository: accepts all writes since the last
// Commit/Rollback as permanent.
func (r *Repository) Commit(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot = nil
	return nil
}

// Rollback implements ledger.Repository: discards all writes since the
// last Commit/Rollback, restoring the prior state.
func (r *Repository) Rollback(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snapshot == nil {
		return nil
	}
	r.lots = r.snapshot.lots
	r.gains = r.snapshot.gains
	r.txs = r.snapshot.txs
	r.logged = r.snapshot.logged
	r.snapshot = nil
	return nil
}
