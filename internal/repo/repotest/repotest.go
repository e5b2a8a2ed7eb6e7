// Package repotest is a reusable conformance suite: any ledger.Repository
// implementation (the shipped memrepo, or a future persistent one) should
// pass Run unchanged.
package repotest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bufdev/capgains/internal/ledger"
	"github.com/bufdev/capgains/internal/xtime"
)

// Run exercises New against the documented Repository contract. Call it
// from a TestXxx function in the implementation's own package, passing a
// constructor for a fresh, empty instance.
func Run(t *testing.T, newRepo func() ledger.Repository) {
	t.Run("LotsAsOf filters by currency window and account/security", func(t *testing.T) {
		testLotsAsOf(t, newRepo())
	})
	t.Run("LongsAsOf excludes short lots", func(t *testing.T) {
		testLongsAsOf(t, newRepo())
	})
	t.Run("event log is at-most-once", func(t *testing.T) {
		testEventLog(t, newRepo())
	})
	t.Run("Rollback discards buffered writes", func(t *testing.T) {
		testRollback(t, newRepo())
	})
	t.Run("Commit makes writes durable across a later Rollback call", func(t *testing.T) {
		testCommit(t, newRepo())
	})
	t.Run("GainsNeedingWashSale windows on lot dtopen and excludes already-washed gains", func(t *testing.T) {
		testGainsNeedingWashSale(t, newRepo())
	})
	t.Run("ReplacementLotCandidates filters by account, security, and washcost", func(t *testing.T) {
		testReplacementLotCandidates(t, newRepo())
	})
}

func date(s string) xtime.Date {
	d, err := xtime.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newLot(account, security string, units, cost int64, dtOpen, dtStart xtime.Date) *ledger.Lot {
	return &ledger.Lot{
		ID:       uuid.New(),
		Account:  account,
		Security: security,
		Units:    decimal.NewFromInt(units),
		Cost:     decimal.NewFromInt(cost),
		WashCost: decimal.Zero,
		DtOpen:   dtOpen,
		DtStart:  dtStart,
		Opener:   uuid.New(),
		Starter:  uuid.New(),
	}
}

func testLotsAsOf(t *testing.T, repo ledger.Repository) {
	ctx := context.Background()

	open := newLot("acct1", "AAPL", 100, 1000, date("2026-01-01"), date("2026-01-01"))
	require.NoError(t, repo.InsertLot(ctx, open))

	ended := newLot("acct1", "AAPL", 50, 500, date("2026-01-01"), date("2026-01-01"))
	endDate := date("2026-02-01")
	ended.DtEnd = &endDate
	require.NoError(t, repo.InsertLot(ctx, ended))

	otherAccount := newLot("acct2", "AAPL", 100, 1000, date("2026-01-01"), date("2026-01-01"))
	require.NoError(t, repo.InsertLot(ctx, otherAccount))

	lots, err := repo.LotsAsOf(ctx, date("2026-03-01"), "acct1", "AAPL")
	require.NoError(t, err)
	require.Len(t, lots, 1)
	require.Equal(t, open.ID, lots[0].ID)

	lots, err = repo.LotsAsOf(ctx, date("2026-01-15"), "acct1", "AAPL")
	require.NoError(t, err)
	require.Len(t, lots, 2)

	lots, err = repo.LotsAsOf(ctx, date("2026-03-01"), "", "AAPL")
	require.NoError(t, err)
	require.Len(t, lots, 2)
}

func testLongsAsOf(t *testing.T, repo ledger.Repository) {
	ctx := context.Background()

	long := newLot("acct1", "AAPL", 100, 1000, date("2026-01-01"), date("2026-01-01"))
	require.NoError(t, repo.InsertLot(ctx, long))
	short := newLot("acct1", "AAPL", -100, -1000, date("2026-01-01"), date("2026-01-01"))
	require.NoError(t, repo.InsertLot(ctx, short))

	lots, err := repo.LongsAsOf(ctx, date("2026-03-01"), "acct1", "AAPL")
	require.NoError(t, err)
	require.Len(t, lots, 1)
	require.Equal(t, long.ID, lots[0].ID)
}

func testEventLog(t *testing.T, repo ledger.Repository) {
	ctx := context.Background()
	txID := uuid.New()

	logged, err := repo.IsLogged(ctx, txID)
	require.NoError(t, err)
	require.False(t, logged)

	require.NoError(t, repo.InsertLog(ctx, txID))

	logged, err = repo.IsLogged(ctx, txID)
	require.NoError(t, err)
	require.True(t, logged)
}

func testRollback(t *testing.T, repo ledger.Repository) {
	ctx := context.Background()

	base := newLot("acct1", "AAPL", 100, 1000, date("2026-01-01"), date("2026-01-01"))
	require.NoError(t, repo.InsertLot(ctx, base))
	require.NoError(t, repo.Commit(ctx))

	extra := newLot("acct1", "AAPL", 50, 500, date("2026-01-05"), date("2026-01-05"))
	require.NoError(t, repo.InsertLot(ctx, extra))

	lots, err := repo.LotsAsOf(ctx, date("2026-03-01"), "acct1", "AAPL")
	require.NoError(t, err)
	require.Len(t, lots, 2)

	require.NoError(t, repo.Rollback(ctx))

	lots, err = repo.LotsAsOf(ctx, date("2026-03-01"), "acct1", "AAPL")
	require.NoError(t, err)
	require.Len(t, lots, 1)
	require.Equal(t, base.ID, lots[0].ID)
}

func testCommit(t *testing.T, repo ledger.Repository) {
	ctx := context.Background()

	lot := newLot("acct1", "AAPL", 100, 1000, date("2026-01-01"), date("2026-01-01"))
	require.NoError(t, repo.InsertLot(ctx, lot))
	require.NoError(t, repo.Commit(ctx))

	require.NoError(t, repo.Rollback(ctx))

	lots, err := repo.LotsAsOf(ctx, date("2026-03-01"), "acct1", "AAPL")
	require.NoError(t, err)
	require.Len(t, lots, 1, "a Rollback after Commit must not undo committed writes")
}

func testGainsNeedingWashSale(t *testing.T, repo ledger.Repository) {
	ctx := context.Background()

	closer := uuid.New()
	closed := newLot("acct1", "AAPL", -100, -900, date("2026-01-10"), date("2026-01-10"))
	closeDate := date("2026-02-01")
	closed.DtClose = &closeDate
	closed.Closer = &closer
	require.NoError(t, repo.InsertLot(ctx, closed))

	lossGain := &ledger.Gain{
		ID:            uuid.New(),
		LotID:         closed.ID,
		TransactionID: closer,
		Proceeds:      decimal.NewFromInt(800),
		WashLoss:      decimal.Zero,
	}
	require.NoError(t, repo.InsertGain(ctx, lossGain))

	alreadyWashed := newLot("acct1", "AAPL", -50, -450, date("2026-01-20"), date("2026-01-20"))
	alreadyWashed.DtClose = &closeDate
	washedCloser := uuid.New()
	alreadyWashed.Closer = &washedCloser
	require.NoError(t, repo.InsertLot(ctx, alreadyWashed))
	washedGain := &ledger.Gain{
		ID:            uuid.New(),
		LotID:         alreadyWashed.ID,
		TransactionID: washedCloser,
		Proceeds:      decimal.NewFromInt(100),
		WashLoss:      decimal.NewFromInt(-350),
	}
	require.NoError(t, repo.InsertGain(ctx, washedGain))

	gains, err := repo.GainsNeedingWashSale(ctx, date("2026-01-01"), date("2026-02-01"))
	require.NoError(t, err)
	require.Len(t, gains, 1)
	require.Equal(t, lossGain.ID, gains[0].ID)
}

func testReplacementLotCandidates(t *testing.T, repo ledger.Repository) {
	ctx := context.Background()

	candidate := newLot("acct1", "AAPL", 100, 1200, date("2026-01-15"), date("2026-01-15"))
	require.NoError(t, repo.InsertLot(ctx, candidate))

	alreadyUsed := newLot("acct1", "AAPL", 50, 600, date("2026-01-16"), date("2026-01-16"))
	alreadyUsed.WashCost = decimal.NewFromInt(75)
	require.NoError(t, repo.InsertLot(ctx, alreadyUsed))

	wrongAccount := newLot("acct2", "AAPL", 100, 1200, date("2026-01-15"), date("2026-01-15"))
	require.NoError(t, repo.InsertLot(ctx, wrongAccount))

	candidates, err := repo.ReplacementLotCandidates(ctx, "acct1", "AAPL", date("2026-01-01"), date("2026-02-01"))
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, candidate.ID, candidates[0].ID)
}
