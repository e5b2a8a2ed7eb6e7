package ledgercsv_test

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bufdev/capgains/internal/ledger"
	"github.com/bufdev/capgains/internal/ledgercsv"
)

// TestWriteGainsDerivesLongTermString covers the LTCG/STCG rendering and
// the derived units/cost/gain columns.
func TestWriteGainsDerivesLongTermString(t *testing.T) {
	dtOpen := mustDate(t, "2004-01-01")
	dtClose := mustDate(t, "2005-10-03")
	lot := &ledger.Lot{
		ID: mustUUID(t, "11111111-1111-1111-1111-111111111111"),
		Account: "acct1", Security: "AAPL",
		Units: decimal.NewFromInt(100), Cost: decimal.NewFromInt(-1000),
		DtOpen: dtOpen, DtClose: &dtClose,
		Opener: mustUUID(t, "22222222-2222-2222-2222-222222222222"),
	}
	gain := &ledger.Gain{
		ID: mustUUID(t, "33333333-3333-3333-3333-333333333333"),
		LotID: lot.ID, TransactionID: mustUUID(t, "44444444-4444-4444-4444-444444444444"),
		Proceeds: decimal.NewFromInt(1500),
	}

	var buf bytes.Buffer
	require.NoError(t, ledgercsv.WriteGains(&buf, []ledgercsv.GainRow{{Gain: gain, Lot: lot}}, testConfig(t), ledgercsv.WriteGainsOptions{}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "LTCG", records[1][6])
	require.Equal(t, "100", records[1][9])
	require.Equal(t, "1500", records[1][10])
	require.Equal(t, "-1000", records[1][11])
	require.Equal(t, "2500", records[1][12])
}

// TestWriteGainsShortTermUnderOneYear covers the STCG boundary.
func TestWriteGainsShortTermUnderOneYear(t *testing.T) {
	dtOpen := mustDate(t, "2005-06-01")
	dtClose := mustDate(t, "2005-10-03")
	lot := &ledger.Lot{
		ID: mustUUID(t, "11111111-1111-1111-1111-111111111111"),
		Account: "acct1", Security: "AAPL",
		Units: decimal.NewFromInt(10), Cost: decimal.NewFromInt(-100),
		DtOpen: dtOpen, DtClose: &dtClose,
	}
	gain := &ledger.Gain{LotID: lot.ID, Proceeds: decimal.NewFromInt(150)}

	var buf bytes.Buffer
	require.NoError(t, ledgercsv.WriteGains(&buf, []ledgercsv.GainRow{{Gain: gain, Lot: lot}}, testConfig(t), ledgercsv.WriteGainsOptions{}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Equal(t, "STCG", records[1][6])
}

// TestWriteGainsConsolidateSumsAcrossLots covers consolidated-mode
// summation of gain/wash fields per account and security.
func TestWriteGainsConsolidateSumsAcrossLots(t *testing.T) {
	dtOpen := mustDate(t, "2005-01-01")
	dtClose := mustDate(t, "2005-10-03")
	lot1 := &ledger.Lot{ID: mustUUID(t, "11111111-1111-1111-1111-111111111111"), Account: "acct1", Security: "AAPL", Units: decimal.NewFromInt(10), Cost: decimal.NewFromInt(-100), DtOpen: dtOpen, DtClose: &dtClose}
	lot2 := &ledger.Lot{ID: mustUUID(t, "22222222-2222-2222-2222-222222222222"), Account: "acct1", Security: "AAPL", Units: decimal.NewFromInt(20), Cost: decimal.NewFromInt(-300), DtOpen: dtOpen, DtClose: &dtClose}
	gain1 := &ledger.Gain{LotID: lot1.ID, Proceeds: decimal.NewFromInt(150)}
	gain2 := &ledger.Gain{LotID: lot2.ID, Proceeds: decimal.NewFromInt(250)}

	var buf bytes.Buffer
	rows := []ledgercsv.GainRow{{Gain: gain1, Lot: lot1}, {Gain: gain2, Lot: lot2}}
	require.NoError(t, ledgercsv.WriteGains(&buf, rows, testConfig(t), ledgercsv.WriteGainsOptions{Consolidate: true}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "30", records[1][4])
	require.Equal(t, "400", records[1][5])
	require.Equal(t, "-400", records[1][6])
	require.Equal(t, "800", records[1][7])
}
