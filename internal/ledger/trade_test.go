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
	"github.com/bufdev/capgains/internal/xtime"
)

func mustDate(t *testing.T, s string) xtime.Date {
	t.Helper()
	d, err := xtime.ParseDate(s)
	require.NoError(t, err)
	return d
}

// TestPartialCloseFIFO is scenario S1: a partial-close trade splits the
// open lot into a closed portion and a residual open portion.
func TestPartialCloseFIFO(t *testing.T) {
	ctx := context.Background()
	repo := memrepo.New()
	log := zerolog.Nop()

	buy := &ledger.Transaction{
		ID: uuid.New(), Account: "acct1", Security: "AAPL", Kind: ledger.KindBuy,
		DtTrade: mustDate(t, "2005-10-03"),
		Units:   decimal.NewFromInt(300),
		Total:   decimal.NewFromFloat(-3009.99),
	}
	require.NoError(t, ledger.ApplyTrade(ctx, repo, log, buy))

	sell := &ledger.Transaction{
		ID: uuid.New(), Account: "acct1", Security: "AAPL", Kind: ledger.KindSell,
		DtTrade: mustDate(t, "2005-12-01"),
		Units:   decimal.NewFromInt(-200),
		Total:   decimal.NewFromFloat(2390.01),
	}
	require.NoError(t, ledger.ApplyTrade(ctx, repo, log, sell))
	repo.LoadTransactions([]*ledger.Transaction{buy, sell})

	open, err := repo.LotsAsOf(ctx, mustDate(t, "2005-12-31"), "acct1", "AAPL")
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.True(t, decimal.NewFromInt(100).Equal(open[0].Units))
	require.True(t, decimal.NewFromFloat(1003.33).Equal(open[0].Cost))

	gains, err := repo.GainsInRange(mustDate(t, "2005-01-01"), mustDate(t, "2006-01-01"), "acct1", "AAPL")
	require.NoError(t, err)
	require.Len(t, gains, 1)
	require.True(t, decimal.NewFromFloat(2390.01).Equal(gains[0].Proceeds))

	lot, err := repo.GetLot(ctx, gains[0].LotID)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(200).Equal(lot.Units))
	require.True(t, decimal.NewFromFloat(2006.66).Equal(lot.Cost))

	derived := ledger.DeriveGain(lot, gains[0])
	require.True(t, decimal.NewFromFloat(383.35).Equal(derived.Value))
	require.False(t, derived.LongTerm)
}
