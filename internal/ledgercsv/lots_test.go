package ledgercsv_test

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bufdev/capgains/internal/config"
	"github.com/bufdev/capgains/internal/ledger"
	"github.com/bufdev/capgains/internal/ledgercsv"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.NewConfig(config.ExternalConfig{
		Version:      "v1",
		DatabasePath: "unused.json",
		Securities: []config.ExternalSecurityConfig{
			{Ticker: "AAPL", Name: "Apple Inc", UniqueIDType: "CUSIP", UniqueID: "037833100"},
		},
	})
	require.NoError(t, err)
	return cfg
}

// TestWriteLotsEnrichesFromConfig covers the secname/uniqueidtype/uniqueid
// enrichment the Lots CSV surface draws from configuration.
func TestWriteLotsEnrichesFromConfig(t *testing.T) {
	lots := []*ledger.Lot{
		{
			Account: "acct1", Security: "AAPL",
			Units: decimal.NewFromInt(100), Cost: decimal.NewFromInt(-1000),
			DtOpen: mustDate(t, "2005-10-03"),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, ledgercsv.WriteLots(&buf, lots, testConfig(t), ledgercsv.WriteLotsOptions{}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, []string{
		"brokerid", "acctid", "ticker", "secname", "uniqueidtype", "uniqueid",
		"dtopen", "units", "cost", "washcost",
	}, records[0])
	require.Equal(t, "Apple Inc", records[1][3])
	require.Equal(t, "CUSIP", records[1][4])
	require.Equal(t, "037833100", records[1][5])
}

// TestWriteLotsConsolidateSumsPositions covers consolidated-mode summation
// and column dropping (dtopen/washcost excluded).
func TestWriteLotsConsolidateSumsPositions(t *testing.T) {
	lots := []*ledger.Lot{
		{Account: "acct1", Security: "AAPL", Units: decimal.NewFromInt(100), Cost: decimal.NewFromInt(-1000), DtOpen: mustDate(t, "2005-10-03")},
		{Account: "acct1", Security: "AAPL", Units: decimal.NewFromInt(200), Cost: decimal.NewFromInt(-2500), DtOpen: mustDate(t, "2005-11-01")},
		{Account: "acct1", Security: "MSFT", Units: decimal.NewFromInt(50), Cost: decimal.NewFromInt(-900), DtOpen: mustDate(t, "2005-10-03")},
	}

	var buf bytes.Buffer
	require.NoError(t, ledgercsv.WriteLots(&buf, lots, testConfig(t), ledgercsv.WriteLotsOptions{Consolidate: true}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Equal(t, []string{
		"brokerid", "acctid", "ticker", "secname", "uniqueidtype", "uniqueid", "units", "cost",
	}, records[0])
	require.Len(t, records, 3)

	var aapl []string
	for _, rec := range records[1:] {
		if rec[2] == "AAPL" {
			aapl = rec
		}
	}
	require.NotNil(t, aapl)
	require.Equal(t, "300", aapl[6])
	require.Equal(t, "-3500", aapl[7])
}

// TestWriteLotsFiltersByAccountAndSecurity covers the --account/--ticker
// filters the lots subcommand exposes.
func TestWriteLotsFiltersByAccountAndSecurity(t *testing.T) {
	lots := []*ledger.Lot{
		{Account: "acct1", Security: "AAPL", Units: decimal.NewFromInt(100), Cost: decimal.NewFromInt(-1000), DtOpen: mustDate(t, "2005-10-03")},
		{Account: "acct2", Security: "AAPL", Units: decimal.NewFromInt(50), Cost: decimal.NewFromInt(-500), DtOpen: mustDate(t, "2005-10-03")},
	}

	var buf bytes.Buffer
	require.NoError(t, ledgercsv.WriteLots(&buf, lots, testConfig(t), ledgercsv.WriteLotsOptions{Account: "acct1"}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "acct1", records[1][1])
}
