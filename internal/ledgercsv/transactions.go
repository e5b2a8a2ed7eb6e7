// Package ledgercsv reads the plain CSV transaction log that stands in for
// OFX import, and writes the Lots and Gains CSV output surfaces.
package ledgercsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bufdev/capgains/internal/ledger"
)

// transactionFields is the transaction-log column order.
var transactionFields = []string{
	"id", "brokerid", "acctid", "ticker", "kind", "dttrade",
	"units", "total", "oldunits", "newunits", "numerator", "denominator",
	"memo", "seq",
}

// ReadTransactionFiles reads and concatenates the transaction logs at paths,
// in order, assigning Seq from each row's position across the combined
// stream (ties on DtTrade break by file/row order).
func ReadTransactionFiles(paths []string) ([]*ledger.Transaction, error) {
	var all []*ledger.Transaction
	seq := int64(0)
	for _, path := range paths {
		txs, nextSeq, err := readTransactionFile(path, seq)
		if err != nil {
			return nil, fmt.Errorf("ledgercsv: reading %s: %w", path, err)
		}
		all = append(all, txs...)
		seq = nextSeq
	}
	return all, nil
}

func readTransactionFile(path string, startSeq int64) ([]*ledger.Transaction, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, startSeq, err
	}
	defer f.Close()
	return readTransactions(f, startSeq)
}

func readTransactions(r io.Reader, startSeq int64) ([]*ledger.Transaction, int64, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, startSeq, nil
		}
		return nil, startSeq, fmt.Errorf("reading header: %w", err)
	}
	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[strings.TrimSpace(name)] = i
	}

	seq := startSeq
	var txs []*ledger.Transaction
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, startSeq, fmt.Errorf("reading row: %w", err)
		}
		tx, err := parseTransactionRow(record, colIndex, seq)
		if err != nil {
			return nil, startSeq, fmt.Errorf("row %d: %w", seq-startSeq+1, err)
		}
		txs = append(txs, tx)
		seq++
	}
	return txs, seq, nil
}

func col(record []string, colIndex map[string]int, name string) string {
	i, ok := colIndex[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseTransactionRow(record []string, colIndex map[string]int, seq int64) (*ledger.Transaction, error) {
	idStr := col(record, colIndex, "id")
	var id uuid.UUID
	var err error
	if idStr == "" {
		id = uuid.New()
	} else {
		id, err = uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("parsing id %q: %w", idStr, err)
		}
	}

	dtTrade, err := ParseFlexibleDate(col(record, colIndex, "dttrade"))
	if err != nil {
		return nil, fmt.Errorf("parsing dttrade: %w", err)
	}

	units, err := parseDecimalOrZero(col(record, colIndex, "units"))
	if err != nil {
		return nil, fmt.Errorf("parsing units: %w", err)
	}
	total, err := parseDecimalOrZero(col(record, colIndex, "total"))
	if err != nil {
		return nil, fmt.Errorf("parsing total: %w", err)
	}
	oldUnits, err := parseDecimalOrZero(col(record, colIndex, "oldunits"))
	if err != nil {
		return nil, fmt.Errorf("parsing oldunits: %w", err)
	}
	newUnits, err := parseDecimalOrZero(col(record, colIndex, "newunits"))
	if err != nil {
		return nil, fmt.Errorf("parsing newunits: %w", err)
	}
	numerator, err := parseIntOrZero(col(record, colIndex, "numerator"))
	if err != nil {
		return nil, fmt.Errorf("parsing numerator: %w", err)
	}
	denominator, err := parseIntOrZero(col(record, colIndex, "denominator"))
	if err != nil {
		return nil, fmt.Errorf("parsing denominator: %w", err)
	}

	return &ledger.Transaction{
		ID:          id,
		BrokerID:    col(record, colIndex, "brokerid"),
		Account:     col(record, colIndex, "acctid"),
		Security:    col(record, colIndex, "ticker"),
		Kind:        ledger.ParseKind(col(record, colIndex, "kind")),
		DtTrade:     dtTrade,
		Units:       units,
		Total:       total,
		OldUnits:    oldUnits,
		NewUnits:    newUnits,
		Numerator:   numerator,
		Denominator: denominator,
		Memo:        col(record, colIndex, "memo"),
		Seq:         seq,
	}, nil
}

func parseDecimalOrZero(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func parseIntOrZero(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

// WriteTransactions writes txs back out in transaction-log format, the
// inverse of ReadTransactionFiles — used to round-trip a loaded stream, e.g.
// for snapshotting or diffing.
func WriteTransactions(w io.Writer, txs []*ledger.Transaction) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(transactionFields); err != nil {
		return err
	}
	for _, tx := range txs {
		record := []string{
			tx.ID.String(),
			tx.BrokerID,
			tx.Account,
			tx.Security,
			tx.Kind.String(),
			tx.DtTrade.String(),
			tx.Units.String(),
			tx.Total.String(),
			tx.OldUnits.String(),
			tx.NewUnits.String(),
			strconv.FormatInt(tx.Numerator, 10),
			strconv.FormatInt(tx.Denominator, 10),
			tx.Memo,
			strconv.FormatInt(tx.Seq, 10),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
