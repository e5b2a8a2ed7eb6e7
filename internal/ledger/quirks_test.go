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

// TestIncomeRetofcapReversal is scenario S9: an IBKR income transaction
// whose memo mentions return of capital is reversed by a matching expense
// of equal and opposite total, so neither mutates any lot or gain.
func TestIncomeRetofcapReversal(t *testing.T) {
	ctx := context.Background()
	repo := memrepo.New()
	log := zerolog.Nop()

	buy := &ledger.Transaction{
		ID: uuid.New(), Account: "acct1", Security: "AAPL", Kind: ledger.KindBuy,
		DtTrade: mustDate(t, "2005-10-03"),
		Units:   decimal.NewFromInt(100),
		Total:   decimal.NewFromInt(-1000),
	}
	require.NoError(t, ledger.ApplyTrade(ctx, repo, log, buy))

	income := &ledger.Transaction{
		ID: uuid.New(), BrokerID: "4705", Account: "acct1", Security: "AAPL", Kind: ledger.KindIncome,
		DtTrade: mustDate(t, "2005-11-01"),
		Total:   decimal.NewFromInt(50),
		Memo:    "AAPL return of capital (ref 123)",
	}
	expense := &ledger.Transaction{
		ID: uuid.New(), BrokerID: "4705", Account: "acct1", Security: "AAPL", Kind: ledger.KindExpense,
		DtTrade: mustDate(t, "2005-11-01"),
		Total:   decimal.NewFromInt(-50),
		Memo:    "AAPL return of capital (reversal)",
	}
	window := []*ledger.Transaction{income, expense}
	table := ledger.BuildQuirksTable(nil)

	handled, err := ledger.Dispatch(ctx, repo, log, income, window, table)
	require.NoError(t, err)
	require.True(t, handled)

	loggedIncome, err := repo.IsLogged(ctx, income.ID)
	require.NoError(t, err)
	require.True(t, loggedIncome)
	loggedExpense, err := repo.IsLogged(ctx, expense.ID)
	require.NoError(t, err)
	require.True(t, loggedExpense)

	lots, err := repo.LotsAsOf(ctx, mustDate(t, "2005-11-02"), "acct1", "AAPL")
	require.NoError(t, err)
	require.Len(t, lots, 1)
	require.True(t, decimal.NewFromInt(1000).Equal(lots[0].Cost), "reversed income must not touch cost basis")

	gains, err := repo.GainsInRange(mustDate(t, "2005-11-01"), mustDate(t, "2005-11-01"), "acct1", "AAPL")
	require.NoError(t, err)
	require.Empty(t, gains)
}

// TestIncomeRetofcapWithoutReversalAppliesToBasis covers the non-reversed
// path: when no matching expense exists, the income is applied as a
// return of capital.
func TestIncomeRetofcapWithoutReversalAppliesToBasis(t *testing.T) {
	ctx := context.Background()
	repo := memrepo.New()
	log := zerolog.Nop()

	buy := &ledger.Transaction{
		ID: uuid.New(), Account: "acct1", Security: "AAPL", Kind: ledger.KindBuy,
		DtTrade: mustDate(t, "2005-10-03"),
		Units:   decimal.NewFromInt(100),
		Total:   decimal.NewFromInt(-1000),
	}
	require.NoError(t, ledger.ApplyTrade(ctx, repo, log, buy))

	income := &ledger.Transaction{
		ID: uuid.New(), BrokerID: "4705", Account: "acct1", Security: "AAPL", Kind: ledger.KindIncome,
		DtTrade: mustDate(t, "2005-11-01"),
		Total:   decimal.NewFromInt(50),
		Memo:    "AAPL return of capital",
	}
	table := ledger.BuildQuirksTable(nil)

	handled, err := ledger.Dispatch(ctx, repo, log, income, []*ledger.Transaction{income}, table)
	require.NoError(t, err)
	require.True(t, handled)

	lots, err := repo.LotsAsOf(ctx, mustDate(t, "2005-11-02"), "acct1", "AAPL")
	require.NoError(t, err)
	require.Len(t, lots, 1)
	require.True(t, decimal.NewFromInt(950).Equal(lots[0].Cost))
}
