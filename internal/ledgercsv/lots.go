package ledgercsv

import (
	"encoding/csv"
	"io"

	"github.com/shopspring/decimal"

	"github.com/bufdev/capgains/internal/config"
	"github.com/bufdev/capgains/internal/ledger"
)

var lotsFields = []string{
	"brokerid", "acctid", "ticker", "secname", "uniqueidtype", "uniqueid",
	"dtopen", "units", "cost", "washcost",
}

var consolidatedLotsFields = []string{
	"brokerid", "acctid", "ticker", "secname", "uniqueidtype", "uniqueid",
	"units", "cost",
}

// WriteLotsOptions controls WriteLots' filtering and consolidation.
type WriteLotsOptions struct {
	// Account, if non-empty, restricts output to that account.
	Account string
	// Security, if non-empty, restricts output to that security.
	Security string
	// Consolidate sums units/cost per (account, security), dropping
	// dtopen/washcost.
	Consolidate bool
}

// WriteLots writes lots as the Lots CSV, enriching each row with
// secname/uniqueidtype/uniqueid from cfg by ticker lookup (blank if the
// ticker is unconfigured).
func WriteLots(w io.Writer, lots []*ledger.Lot, cfg *config.Config, opts WriteLotsOptions) error {
	writer := csv.NewWriter(w)

	filtered := make([]*ledger.Lot, 0, len(lots))
	for _, lot := range lots {
		if opts.Account != "" && lot.Account != opts.Account {
			continue
		}
		if opts.Security != "" && lot.Security != opts.Security {
			continue
		}
		filtered = append(filtered, lot)
	}

	if opts.Consolidate {
		return writeConsolidatedLots(writer, filtered, cfg)
	}

	if err := writer.Write(lotsFields); err != nil {
		return err
	}
	for _, lot := range filtered {
		info := securityInfo(cfg, lot.Security)
		record := []string{
			"", lot.Account, lot.Security, info.Name, info.UniqueIDType, info.UniqueID,
			lot.DtOpen.String(), lot.Units.String(), lot.Cost.String(), lot.WashCost.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

type lotPosition struct {
	account, security string
	units, cost        decimal.Decimal
}

func writeConsolidatedLots(writer *csv.Writer, lots []*ledger.Lot, cfg *config.Config) error {
	if err := writer.Write(consolidatedLotsFields); err != nil {
		return err
	}
	index := map[[2]string]*lotPosition{}
	var order [][2]string
	for _, lot := range lots {
		key := [2]string{lot.Account, lot.Security}
		pos, ok := index[key]
		if !ok {
			pos = &lotPosition{account: lot.Account, security: lot.Security}
			index[key] = pos
			order = append(order, key)
		}
		pos.units = pos.units.Add(lot.Units)
		pos.cost = pos.cost.Add(lot.Cost)
	}
	for _, key := range order {
		pos := index[key]
		info := securityInfo(cfg, pos.security)
		record := []string{
			"", pos.account, pos.security, info.Name, info.UniqueIDType, info.UniqueID,
			pos.units.String(), pos.cost.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func securityInfo(cfg *config.Config, ticker string) config.SecurityInfo {
	if cfg == nil {
		return config.SecurityInfo{}
	}
	return cfg.Securities[ticker]
}
