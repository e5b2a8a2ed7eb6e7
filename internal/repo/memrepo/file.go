package memrepo

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/bufdev/capgains/internal/ledger"
)

func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// snapshotFile is the on-disk JSON shape memrepo persists to, standing in
// for the relational persistence layer the abstract spec assumes.
type snapshotFile struct {
	Lots    []*ledger.Lot         `json:"lots"`
	Gains   []*ledger.Gain        `json:"gains"`
	Txs     []*ledger.Transaction `json:"transactions"`
	Logged  []string              `json:"logged"`
}

// LoadFile reads a JSON snapshot previously written by SaveFile. A missing
// file is not an error: it returns a fresh, empty Repository, since the
// first run against a database path has nothing to load yet.
func LoadFile(path string) (*Repository, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("memrepo: reading snapshot %s: %w", path, err)
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("memrepo: decoding snapshot %s: %w", path, err)
	}

	r := New()
	r.lots = file.Lots
	r.gains = file.Gains
	r.txs = file.Txs
	for _, id := range file.Logged {
		parsed, err := parseUUID(id)
		if err != nil {
			return nil, fmt.Errorf("memrepo: decoding logged transaction id %q: %w", id, err)
		}
		r.logged[parsed] = true
	}
	return r, nil
}

// SaveFile writes the repository's current state to path as JSON.
func (r *Repository) SaveFile(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file := snapshotFile{
		Lots:   r.lots,
		Gains:  r.gains,
		Txs:    r.txs,
		Logged: make([]string, 0, len(r.logged)),
	}
	for id := range r.logged {
		file.Logged = append(file.Logged, id.String())
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("memrepo: encoding snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("memrepo: writing snapshot %s: %w", path, err)
	}
	return nil
}
