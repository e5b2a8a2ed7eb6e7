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

// TestTransferReorg is scenario S8: a transfer pair moves a holding from
// one security identity to another within the same account.
func TestTransferReorg(t *testing.T) {
	ctx := context.Background()
	repo := memrepo.New()
	log := zerolog.Nop()

	buy := &ledger.Transaction{
		ID: uuid.New(), Account: "acct1", Security: "OLD", Kind: ledger.KindBuy,
		DtTrade: mustDate(t, "2005-10-03"),
		Units:   decimal.NewFromInt(100),
		Total:   decimal.NewFromInt(-1000),
	}
	require.NoError(t, ledger.ApplyTrade(ctx, repo, log, buy))

	out := &ledger.Transaction{
		ID: uuid.New(), Account: "acct1", Security: "OLD", Kind: ledger.KindTransfer,
		DtTrade: mustDate(t, "2005-11-01"),
		Units:   decimal.NewFromInt(-100),
		Memo:    "Reorg to NEW",
	}
	in := &ledger.Transaction{
		ID: uuid.New(), Account: "acct1", Security: "NEW", Kind: ledger.KindTransfer,
		DtTrade: mustDate(t, "2005-11-01"),
		Units:   decimal.NewFromInt(100),
		Memo:    "Reorg to NEW",
	}
	window := []*ledger.Transaction{out, in}

	require.NoError(t, ledger.ApplyTransfer(ctx, repo, log, out, window))

	oldLots, err := repo.LotsAsOf(ctx, mustDate(t, "2005-11-02"), "acct1", "OLD")
	require.NoError(t, err)
	require.Empty(t, oldLots)

	newLots, err := repo.LotsAsOf(ctx, mustDate(t, "2005-11-02"), "acct1", "NEW")
	require.NoError(t, err)
	require.Len(t, newLots, 1)
	require.True(t, decimal.NewFromInt(100).Equal(newLots[0].Units))
	require.True(t, decimal.NewFromInt(1000).Equal(newLots[0].Cost))
	require.Equal(t, mustDate(t, "2005-10-03"), newLots[0].DtOpen)
	require.NotNil(t, newLots[0].Predecessor)

	logged, err := repo.IsLogged(ctx, in.ID)
	require.NoError(t, err)
	require.True(t, logged, "both halves of the pair must be logged")
}
