package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/bufdev/capgains/internal/xtime"
)

// Repository is the narrow persistence abstraction the engine consumes: it
// exposes the as-of/range queries and mutations the components in this
// package need, and nothing else.
//
// account/security parameters that are the empty string mean "no filter",
// matching the abstract interface's optional query parameters.
type Repository interface {
	// LotsAsOf returns lots current at dtAsOf, ordered by (DtOpen, insertion
	// order).
	LotsAsOf(ctx context.Context, dtAsOf xtime.Date, account, security string) ([]*Lot, error)
	// LongsAsOf is LotsAsOf restricted to Units > 0.
	LongsAsOf(ctx context.Context, dtAsOf xtime.Date, account, security string) ([]*Lot, error)
	// TransactionsIn returns transactions with DtTrade in [dtStart, dtEnd],
	// ordered by (DtTrade, Seq).
	TransactionsIn(ctx context.Context, dtStart, dtEnd xtime.Date) ([]*Transaction, error)
	// GainsNeedingWashSale returns gains on closed lots with WashLoss zero,
	// ordered by the lot's DtOpen.
	GainsNeedingWashSale(ctx context.Context, dtStart, dtEnd xtime.Date) ([]*Gain, error)
	// GainsForLot returns every gain recorded against lotID, in insertion
	// order.
	GainsForLot(ctx context.Context, lotID uuid.UUID) ([]*Gain, error)
	// GetLot returns the lot with the given ID.
	GetLot(ctx context.Context, id uuid.UUID) (*Lot, error)
	// ReplacementLotCandidates returns lots of account/security with
	// WashCost zero and DtOpen in [dtFrom, dtEnd], ordered by DtOpen; the
	// wash-sale engine further filters these by sign and self-exclusion.
	ReplacementLotCandidates(ctx context.Context, account, security string, dtFrom, dtEnd xtime.Date) ([]*Lot, error)

	// InsertLot buffers a new lot for the current transaction.
	InsertLot(ctx context.Context, lot *Lot) error
	// UpdateLot buffers a mutation to an existing lot (looked up by ID).
	UpdateLot(ctx context.Context, lot *Lot) error
	// InsertGain buffers a new gain for the current transaction.
	InsertGain(ctx context.Context, gain *Gain) error
	// UpdateGain buffers a mutation to an existing gain (looked up by ID).
	UpdateGain(ctx context.Context, gain *Gain) error
	// InsertLog buffers an event-log record for transactionID.
	InsertLog(ctx context.Context, transactionID uuid.UUID) error
	// IsLogged reports whether transactionID already has an event-log
	// record, including any not-yet-flushed record from this transaction.
	IsLogged(ctx context.Context, transactionID uuid.UUID) (bool, error)

	// Flush makes buffered writes visible to subsequent queries without
	// ending the transaction (required, e.g., after inserting the residual
	// lot of a FIFO split, before the next candidate lot is queried).
	Flush(ctx context.Context) error
	// Commit ends the transaction, persisting all buffered writes.
	Commit(ctx context.Context) error
	// Rollback ends the transaction, discarding all buffered writes.
	Rollback(ctx context.Context) error
}
