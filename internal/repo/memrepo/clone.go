package memrepo

import (
	"github.com/google/uuid"

	"github.com/bufdev/capgains/internal/ledger"
	"github.com/bufdev/capgains/internal/xtime"
)

func cloneDate(d *xtime.Date) *xtime.Date {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func cloneLot(lot *ledger.Lot) *ledger.Lot {
	if lot == nil {
		return nil
	}
	clone := *lot
	clone.DtClose = cloneDate(lot.DtClose)
	clone.DtEnd = cloneDate(lot.DtEnd)
	clone.Closer = cloneUUID(lot.Closer)
	clone.Ender = cloneUUID(lot.Ender)
	clone.Predecessor = cloneUUID(lot.Predecessor)
	return &clone
}

func cloneLots(lots []*ledger.Lot) []*ledger.Lot {
	if lots == nil {
		return nil
	}
	out := make([]*ledger.Lot, len(lots))
	for i, lot := range lots {
		out[i] = cloneLot(lot)
	}
	return out
}

func cloneGain(gain *ledger.Gain) *ledger.Gain {
	if gain == nil {
		return nil
	}
	clone := *gain
	return &clone
}

func cloneGains(gains []*ledger.Gain) []*ledger.Gain {
	if gains == nil {
		return nil
	}
	out := make([]*ledger.Gain, len(gains))
	for i, gain := range gains {
		out[i] = cloneGain(gain)
	}
	return out
}

func cloneTransaction(tx *ledger.Transaction) *ledger.Transaction {
	if tx == nil {
		return nil
	}
	clone := *tx
	return &clone
}

func cloneTransactions(txs []*ledger.Transaction) []*ledger.Transaction {
	if txs == nil {
		return nil
	}
	out := make([]*ledger.Transaction, len(txs))
	for i, tx := range txs {
		out[i] = cloneTransaction(tx)
	}
	return out
}

func cloneLogged(logged map[uuid.UUID]bool) map[uuid.UUID]bool {
	out := make(map[uuid.UUID]bool, len(logged))
	for k, v := range logged {
		out[k] = v
	}
	return out
}
