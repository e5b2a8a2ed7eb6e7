// Package ledger implements the lot/gain accounting engine: FIFO trade
// matching, return-of-capital cost-basis reduction, stock splits,
// transfer/reorganization successor lots, broker-quirk transaction
// remapping, and wash-sale loss disallowance.
package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bufdev/capgains/internal/xtime"
)

// Kind discriminates the shape of a Transaction.
type Kind int

const (
	KindBuy Kind = iota
	KindSell
	KindReturnOfCapital
	KindSplit
	KindTransfer
	KindIncome
	KindExpense
	KindOther
)

// String returns the lowercase name used for broker-quirk lookups and CSV
// round-tripping.
func (k Kind) String() string {
	switch k {
	case KindBuy:
		return "buy"
	case KindSell:
		return "sell"
	case KindReturnOfCapital:
		return "returnofcapital"
	case KindSplit:
		return "split"
	case KindTransfer:
		return "transfer"
	case KindIncome:
		return "income"
	case KindExpense:
		return "expense"
	default:
		return "other"
	}
}

// ParseKind parses the lowercase name produced by Kind.String, defaulting to
// KindOther for anything unrecognized (an unrecognized kind is a recoverable,
// silently-dropped condition per the driver's error handling design).
func ParseKind(s string) Kind {
	switch s {
	case "buy":
		return KindBuy
	case "sell":
		return KindSell
	case "returnofcapital":
		return KindReturnOfCapital
	case "split":
		return KindSplit
	case "transfer":
		return KindTransfer
	case "income":
		return KindIncome
	case "expense":
		return KindExpense
	default:
		return KindOther
	}
}

// Transaction is the concrete realization of the abstract transaction stream
// contract: a stable identity, account, trade date, and a discriminant with
// kind-specific payload fields.
type Transaction struct {
	ID       uuid.UUID
	BrokerID string
	Account  string
	Security string
	Kind     Kind
	DtTrade  xtime.Date

	// Buy/Sell/Transfer.
	Units decimal.Decimal
	// Buy/Sell/ReturnOfCapital/Income/Expense.
	Total decimal.Decimal
	// Split.
	OldUnits    decimal.Decimal
	NewUnits    decimal.Decimal
	Numerator   int64
	Denominator int64
	// Transfer/Income/Expense.
	Memo string

	// Seq reflects source ordering, used as the tie-break when DtTrade is
	// equal between two transactions.
	Seq int64
}

// Lot represents a holding of a given quantity of one security in one
// account, with an explicit cost basis and holding-period boundaries.
type Lot struct {
	ID uuid.UUID

	Account  string
	Security string

	Units    decimal.Decimal
	Cost     decimal.Decimal
	WashCost decimal.Decimal

	DtOpen  xtime.Date
	DtClose *xtime.Date
	DtStart xtime.Date
	DtEnd   *xtime.Date

	Opener uuid.UUID
	Closer *uuid.UUID
	Starter uuid.UUID
	Ender   *uuid.UUID

	Predecessor *uuid.UUID
}

// IsCurrent reports whether the lot record is still the current
// representation of its holding (not superseded by a successor).
func (l *Lot) IsCurrent() bool {
	return l.DtEnd == nil
}

// IsOpen reports whether the position itself remains open (not realized by
// a closing trade).
func (l *Lot) IsOpen() bool {
	return l.DtClose == nil
}

// Gain represents the realized proceeds (and potentially disallowed loss)
// attributable to a specific lot by a specific realizing transaction.
type Gain struct {
	ID            uuid.UUID
	LotID         uuid.UUID
	TransactionID uuid.UUID
	Proceeds      decimal.Decimal
	WashLoss      decimal.Decimal
}

// Derived holds values computed from a Gain plus its Lot rather than
// stored directly.
type Derived struct {
	Units     decimal.Decimal
	Cost      decimal.Decimal
	Value     decimal.Decimal
	WashCost  decimal.Decimal
	TaxCost   decimal.Decimal
	TaxValue  decimal.Decimal
	LongTerm  bool
}

// DeriveGain computes a Gain's derived values against its Lot, using the
// lot's own DtClose for long-term classification, since long-term status
// is fixed once the position is realized.
func DeriveGain(lot *Lot, gain *Gain) Derived {
	value := gain.Proceeds.Sub(lot.Cost)
	taxCost := lot.Cost.Add(lot.WashCost)
	longTerm := false
	if lot.DtClose != nil && lot.Units.Sign() > 0 {
		longTerm = lot.DtClose.DaysSince(lot.DtOpen) > 365
	}
	return Derived{
		Units:    lot.Units,
		Cost:     lot.Cost,
		Value:    value,
		WashCost: lot.WashCost,
		TaxCost:  taxCost,
		TaxValue: gain.Proceeds.Sub(taxCost),
		LongTerm: longTerm,
	}
}
