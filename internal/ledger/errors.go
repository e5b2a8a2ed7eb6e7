package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvariantError distinguishes a fatal invariant violation from an ordinary
// error, so a caller can report the offending transaction identity and the
// violated invariant separately, per the error-handling design.
type InvariantError struct {
	TransactionID uuid.UUID
	Invariant     string
	Err           error
}

func (e *InvariantError) Error() string {
	return "ledger: invariant violation (" + e.Invariant + ") on transaction " + e.TransactionID.String() + ": " + e.Err.Error()
}

func (e *InvariantError) Unwrap() error {
	return e.Err
}

func newInvariantError(transactionID uuid.UUID, invariant string, err error) *InvariantError {
	return &InvariantError{TransactionID: transactionID, Invariant: invariant, Err: err}
}

// tolerance is the sanity-check tolerance (1e-8) applied to derived sums;
// it never gates core arithmetic, which is exact decimal throughout.
var tolerance = decimal.New(1, -8)

// within reports whether a and b differ by no more than tolerance.
func within(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}
