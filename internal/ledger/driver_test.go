package ledger_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bufdev/capgains/internal/ledger"
	"github.com/bufdev/capgains/internal/repo/memrepo"
)

// TestDriverEndToEnd wires the FIFO trade handler and the wash-sale pass
// together through Driver.Run, reproducing scenario S2's numbers from a
// loaded transaction stream rather than direct handler calls.
func TestDriverEndToEnd(t *testing.T) {
	ctx := context.Background()
	repo := memrepo.New()
	log := zerolog.Nop()

	repo.LoadTransactions([]*ledger.Transaction{
		{ID: uuid.New(), Account: "acct1", Security: "AAPL", Kind: ledger.KindBuy,
			DtTrade: mustDate(t, "2005-10-03"), Units: decimal.NewFromInt(300), Total: decimal.NewFromFloat(-3009.99), Seq: 1},
		{ID: uuid.New(), Account: "acct1", Security: "AAPL", Kind: ledger.KindBuy,
			DtTrade: mustDate(t, "2005-11-01"), Units: decimal.NewFromInt(300), Total: decimal.NewFromFloat(-1509.99), Seq: 2},
		{ID: uuid.New(), Account: "acct1", Security: "AAPL", Kind: ledger.KindSell,
			DtTrade: mustDate(t, "2005-12-01"), Units: decimal.NewFromInt(-400), Total: decimal.NewFromFloat(3190.01), Seq: 3},
	})

	driver := &ledger.Driver{Repo: repo, Log: log, Quirks: ledger.BuildQuirksTable(nil)}
	summary, err := driver.Run(ctx, mustDate(t, "2005-01-01"), mustDate(t, "2005-12-31"))
	require.NoError(t, err)
	require.Equal(t, 3, summary.TransactionsSeen)
	require.Equal(t, 3, summary.TransactionsRun)
	require.Zero(t, summary.Dropped)

	gains, err := repo.GainsInRange(mustDate(t, "2005-01-01"), mustDate(t, "2005-12-31"), "acct1", "AAPL")
	require.NoError(t, err)
	require.Len(t, gains, 2)

	var sawWash bool
	for _, g := range gains {
		if !g.WashLoss.IsZero() {
			sawWash = true
			require.True(t, decimal.NewFromFloat(-617.4825).Equal(g.WashLoss))
		}
	}
	require.True(t, sawWash, "expected the wash-sale pass to have run as part of Driver.Run")
}

// TestDriverAtMostOnce is invariant 7: re-running the driver over a window
// already processed produces no additional gains or lot mutations.
func TestDriverAtMostOnce(t *testing.T) {
	ctx := context.Background()
	repo := memrepo.New()
	log := zerolog.Nop()

	repo.LoadTransactions([]*ledger.Transaction{
		{ID: uuid.New(), Account: "acct1", Security: "AAPL", Kind: ledger.KindBuy,
			DtTrade: mustDate(t, "2005-10-03"), Units: decimal.NewFromInt(100), Total: decimal.NewFromInt(-1000), Seq: 1},
		{ID: uuid.New(), Account: "acct1", Security: "AAPL", Kind: ledger.KindSell,
			DtTrade: mustDate(t, "2005-11-01"), Units: decimal.NewFromInt(-100), Total: decimal.NewFromInt(1200), Seq: 2},
	})

	driver := &ledger.Driver{Repo: repo, Log: log, Quirks: ledger.BuildQuirksTable(nil)}
	dtStart, dtEnd := mustDate(t, "2005-01-01"), mustDate(t, "2005-12-31")

	_, err := driver.Run(ctx, dtStart, dtEnd)
	require.NoError(t, err)

	gainsAfterFirst, err := repo.GainsInRange(dtStart, dtEnd, "acct1", "AAPL")
	require.NoError(t, err)
	require.Len(t, gainsAfterFirst, 1)

	summary, err := driver.Run(ctx, dtStart, dtEnd)
	require.NoError(t, err)
	require.Equal(t, 0, summary.TransactionsRun, "already-logged transactions must not be re-applied")

	gainsAfterSecond, err := repo.GainsInRange(dtStart, dtEnd, "acct1", "AAPL")
	require.NoError(t, err)
	require.Len(t, gainsAfterSecond, 1, "re-running calc over the same window must be a no-op")
}
