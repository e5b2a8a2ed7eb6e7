package ledgercsv_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bufdev/capgains/internal/ledger"
	"github.com/bufdev/capgains/internal/ledgercsv"
	"github.com/bufdev/capgains/internal/xtime"
)

// TestReadWriteTransactionsRoundTrip covers transaction-log round-tripping:
// reading a written transaction log back produces the same transactions.
func TestReadWriteTransactionsRoundTrip(t *testing.T) {
	txs := []*ledger.Transaction{
		{
			ID: mustUUID(t, "11111111-1111-1111-1111-111111111111"),
			BrokerID: "4705", Account: "acct1", Security: "AAPL", Kind: ledger.KindBuy,
			DtTrade: mustDate(t, "2005-10-03"),
			Units:   decimal.NewFromInt(200), Total: decimal.NewFromFloat(-2009.99),
			Seq: 0,
		},
		{
			ID: mustUUID(t, "22222222-2222-2222-2222-222222222222"),
			BrokerID: "4705", Account: "acct1", Security: "AAPL", Kind: ledger.KindSplit,
			DtTrade:     mustDate(t, "2005-11-01"),
			OldUnits:    decimal.NewFromInt(1),
			NewUnits:    decimal.NewFromInt(2),
			Numerator:   2,
			Denominator: 1,
			Seq:         1,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, ledgercsv.WriteTransactions(&buf, txs))

	dir := t.TempDir()
	path := filepath.Join(dir, "txs.csv")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	got, err := ledgercsv.ReadTransactionFiles([]string{path})
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, txs[0].ID, got[0].ID)
	require.Equal(t, txs[0].BrokerID, got[0].BrokerID)
	require.Equal(t, txs[0].Account, got[0].Account)
	require.Equal(t, txs[0].Security, got[0].Security)
	require.Equal(t, txs[0].Kind, got[0].Kind)
	require.Equal(t, txs[0].DtTrade, got[0].DtTrade)
	require.True(t, txs[0].Units.Equal(got[0].Units))
	require.True(t, txs[0].Total.Equal(got[0].Total))

	require.Equal(t, txs[1].Kind, got[1].Kind)
	require.True(t, txs[1].OldUnits.Equal(got[1].OldUnits))
	require.True(t, txs[1].NewUnits.Equal(got[1].NewUnits))
	require.Equal(t, txs[1].Numerator, got[1].Numerator)
	require.Equal(t, txs[1].Denominator, got[1].Denominator)
}

// TestReadTransactionFilesAssignsSeqAcrossFiles covers the Seq-numbering
// contract: rows from a second file continue numbering after the first.
func TestReadTransactionFilesAssignsSeqAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.csv")
	second := filepath.Join(dir, "b.csv")

	header := "id,brokerid,acctid,ticker,kind,dttrade,units,total,oldunits,newunits,numerator,denominator,memo,seq\n"
	row := ",,acct1,AAPL,buy,2005-10-03,100,-1000,,,,,,\n"
	require.NoError(t, os.WriteFile(first, []byte(header+row+row), 0o644))
	require.NoError(t, os.WriteFile(second, []byte(header+row), 0o644))

	txs, err := ledgercsv.ReadTransactionFiles([]string{first, second})
	require.NoError(t, err)
	require.Len(t, txs, 3)
	require.Equal(t, int64(0), txs[0].Seq)
	require.Equal(t, int64(1), txs[1].Seq)
	require.Equal(t, int64(2), txs[2].Seq)
}

// TestParseFlexibleDateAcceptsAllLayouts covers the three date layouts the
// transaction log tolerates.
func TestParseFlexibleDateAcceptsAllLayouts(t *testing.T) {
	want := mustDate(t, "2005-10-03")
	for _, s := range []string{"2005-10-03 00:00:00", "2005-10-03", "October 3, 2005"} {
		got, err := ledgercsv.ParseFlexibleDate(s)
		require.NoError(t, err, s)
		require.Equal(t, want, got, s)
	}
}

func mustDate(t *testing.T, s string) xtime.Date {
	t.Helper()
	d, err := xtime.ParseDate(s)
	require.NoError(t, err)
	return d
}

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}
