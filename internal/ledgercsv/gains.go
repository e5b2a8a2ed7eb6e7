package ledgercsv

import (
	"encoding/csv"
	"io"

	"github.com/shopspring/decimal"

	"github.com/bufdev/capgains/internal/config"
	"github.com/bufdev/capgains/internal/ledger"
)

var gainsFields = []string{
	"brokerid", "acctid", "ticker", "secname", "dtclose", "fitidclose",
	"longterm", "dtopen", "fitidopen", "units", "proceeds", "cost", "gain",
	"washcost", "washloss",
}

var consolidatedGainsFields = []string{
	"brokerid", "acctid", "ticker", "secname", "units", "proceeds", "cost",
	"gain", "washcost", "washloss",
}

// GainRow pairs a Gain with the Lot it realizes against, the shape
// WriteGains consumes (the caller resolves this join against the
// repository, since Repository exposes no gains-with-lot query directly).
type GainRow struct {
	Gain *ledger.Gain
	Lot  *ledger.Lot
}

// WriteGainsOptions controls WriteGains' filtering and consolidation.
type WriteGainsOptions struct {
	Account     string
	Security    string
	Consolidate bool
}

// WriteGains writes rows as the Gains CSV. longterm is rendered as the
// literal string LTCG/STCG per the derived long-term classification.
func WriteGains(w io.Writer, rows []GainRow, cfg *config.Config, opts WriteGainsOptions) error {
	writer := csv.NewWriter(w)

	filtered := make([]GainRow, 0, len(rows))
	for _, row := range rows {
		if opts.Account != "" && row.Lot.Account != opts.Account {
			continue
		}
		if opts.Security != "" && row.Lot.Security != opts.Security {
			continue
		}
		filtered = append(filtered, row)
	}

	if opts.Consolidate {
		return writeConsolidatedGains(writer, filtered, cfg)
	}

	if err := writer.Write(gainsFields); err != nil {
		return err
	}
	for _, row := range filtered {
		derived := ledger.DeriveGain(row.Lot, row.Gain)
		longTerm := "STCG"
		if derived.LongTerm {
			longTerm = "LTCG"
		}
		dtClose := ""
		if row.Lot.DtClose != nil {
			dtClose = row.Lot.DtClose.String()
		}
		record := []string{
			"", row.Lot.Account, row.Lot.Security, securityInfo(cfg, row.Lot.Security).Name,
			dtClose, row.Gain.TransactionID.String(), longTerm,
			row.Lot.DtOpen.String(), row.Lot.Opener.String(),
			derived.Units.String(), row.Gain.Proceeds.String(), derived.Cost.String(),
			derived.Value.String(), derived.WashCost.String(), row.Gain.WashLoss.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

type gainPosition struct {
	account, security                                 string
	units, proceeds, cost, gain, washcost, washloss decimal.Decimal
}

func writeConsolidatedGains(writer *csv.Writer, rows []GainRow, cfg *config.Config) error {
	if err := writer.Write(consolidatedGainsFields); err != nil {
		return err
	}
	index := map[[2]string]*gainPosition{}
	var order [][2]string
	for _, row := range rows {
		key := [2]string{row.Lot.Account, row.Lot.Security}
		pos, ok := index[key]
		if !ok {
			pos = &gainPosition{account: row.Lot.Account, security: row.Lot.Security}
			index[key] = pos
			order = append(order, key)
		}
		derived := ledger.DeriveGain(row.Lot, row.Gain)
		pos.units = pos.units.Add(derived.Units)
		pos.proceeds = pos.proceeds.Add(row.Gain.Proceeds)
		pos.cost = pos.cost.Add(derived.Cost)
		pos.gain = pos.gain.Add(derived.Value)
		pos.washcost = pos.washcost.Add(derived.WashCost)
		pos.washloss = pos.washloss.Add(row.Gain.WashLoss)
	}
	for _, key := range order {
		pos := index[key]
		record := []string{
			"", pos.account, pos.security, securityInfo(cfg, pos.security).Name,
			pos.units.String(), pos.proceeds.String(), pos.cost.String(),
			pos.gain.String(), pos.washcost.String(), pos.washloss.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
