// Package capctlcmd holds wiring shared across capctl's subcommands: global
// flag state, config/repository loading, and logger construction.
package capctlcmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/bufdev/capgains/internal/config"
	"github.com/bufdev/capgains/internal/ledger"
	"github.com/bufdev/capgains/internal/repo/memrepo"
	"github.com/bufdev/capgains/internal/standard/xos"
)

// Globals holds the persistent root-flag values every subcommand reads.
type Globals struct {
	// ConfigPath is the --config flag value.
	ConfigPath string
	// Verbosity is the -v/--verbose repeat count.
	Verbosity int
}

// Logger builds the zerolog.Logger for the configured verbosity: warn at
// zero, info at one, debug at two or more.
func (g *Globals) Logger() zerolog.Logger {
	level := zerolog.WarnLevel
	switch {
	case g.Verbosity >= 2:
		level = zerolog.DebugLevel
	case g.Verbosity == 1:
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

// LoadConfig reads and validates the configuration file at g.ConfigPath,
// expanding a leading ~ first.
func (g *Globals) LoadConfig() (*config.Config, error) {
	path, err := xos.ExpandHome(g.ConfigPath)
	if err != nil {
		return nil, err
	}
	return config.ReadConfig(path)
}

// OpenRepo loads the in-memory repository's JSON snapshot from cfg's
// configured database path, expanding a leading ~ first.
func OpenRepo(cfg *config.Config) (*memrepo.Repository, error) {
	path, err := xos.ExpandHome(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	repo, err := memrepo.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading repository snapshot %s: %w", path, err)
	}
	return repo, nil
}

// SaveRepo persists repo's state back to cfg's configured database path.
func SaveRepo(repo *memrepo.Repository, cfg *config.Config) error {
	path, err := xos.ExpandHome(cfg.DatabasePath)
	if err != nil {
		return err
	}
	if err := repo.SaveFile(path); err != nil {
		return fmt.Errorf("saving repository snapshot %s: %w", path, err)
	}
	return nil
}

// BuildQuirks assembles the broker-quirks dispatch table from cfg, seeding
// the always-active IBKR default alongside any configured overrides.
func BuildQuirks(cfg *config.Config) ledger.QuirksTable {
	return ledger.BuildQuirksTable(cfg.BrokerQuirks)
}
