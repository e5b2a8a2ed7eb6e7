// Package config provides configuration parsing and validation for capctl.
//
// Configuration is stored at a path given by the --config flag, defaulting
// to ./capctl.yaml. It names the security metadata used to fill in the Lots
// and Gains CSV surfaces, the broker-quirks override table, and the path of
// the JSON snapshot the in-memory repository persists to.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// configTemplate is the default configuration file template with comments.
// yaml.v3 does not preserve comments, so we hardcode the template string.
const configTemplate = `# The configuration file version.
#
# Required. The only current valid version is v1.
version: v1
# Path to the JSON snapshot file the in-memory repository loads at startup
# and persists to at clean shutdown.
#
# Required.
database_path: ./capctl.db.json
# Security metadata, used to fill secname/uniqueidtype/uniqueid on the Lots
# and Gains CSV surfaces.
#
# Optional.
# securities:
#   - ticker: AAPL
#     name: Apple Inc.
# Broker-quirks overrides: per-broker transaction-kind remaps onto the
# canonical handlers (see the transfer and income-as-return-of-capital
# overrides).
#
# Optional. The IBKR quirk (broker 4705: transfer, income) is always active
# regardless of this list; entries here add further brokers.
# broker_quirks:
#   - broker_id: "4705"
#     kinds: ["transfer", "income"]
`

// ExternalConfig is the YAML-serializable configuration file structure.
type ExternalConfig struct {
	// Version is the configuration file version (must be "v1").
	Version string `yaml:"version"`
	// DatabasePath is the path to the JSON snapshot file.
	DatabasePath string `yaml:"database_path"`
	// Securities is the optional list of security metadata.
	Securities []ExternalSecurityConfig `yaml:"securities"`
	// BrokerQuirks is the optional list of additional broker-quirk overrides.
	BrokerQuirks []ExternalBrokerQuirk `yaml:"broker_quirks"`
}

// ExternalSecurityConfig holds display metadata for a security.
type ExternalSecurityConfig struct {
	// Ticker is the security's ticker symbol, used as its identity.
	Ticker string `yaml:"ticker"`
	// Name is the security's display name.
	Name string `yaml:"name"`
	// UniqueIDType is the identifier scheme for UniqueID (e.g. "CUSIP").
	UniqueIDType string `yaml:"unique_id_type"`
	// UniqueID is the security's identifier under UniqueIDType.
	UniqueID string `yaml:"unique_id"`
}

// ExternalBrokerQuirk names the transaction kinds a broker overrides.
// Kinds are lowercase names matching ledger.Kind.String: "transfer" or
// "income".
type ExternalBrokerQuirk struct {
	BrokerID string   `yaml:"broker_id"`
	Kinds    []string `yaml:"kinds"`
}

// SecurityInfo holds display metadata for a security.
type SecurityInfo struct {
	Name         string
	UniqueIDType string
	UniqueID     string
}

// Config is the validated runtime configuration derived from the config
// file.
type Config struct {
	// DatabasePath is the path to the JSON snapshot file.
	DatabasePath string
	// Securities maps ticker symbols to their display metadata.
	Securities map[string]SecurityInfo
	// BrokerQuirks maps broker ID to the set of transaction kind names
	// (lowercase) it overrides, beyond the always-active IBKR default.
	BrokerQuirks map[string][]string
}

// NewConfig validates an ExternalConfig and returns a runtime Config.
func NewConfig(externalConfig ExternalConfig) (*Config, error) {
	if externalConfig.Version != "v1" {
		return nil, fmt.Errorf("config: unsupported version %q, must be v1", externalConfig.Version)
	}
	if externalConfig.DatabasePath == "" {
		return nil, errors.New("config: database_path is required")
	}
	securities := make(map[string]SecurityInfo, len(externalConfig.Securities))
	for _, s := range externalConfig.Securities {
		if s.Ticker == "" {
			return nil, errors.New("config: security ticker is required")
		}
		if _, ok := securities[s.Ticker]; ok {
			return nil, fmt.Errorf("config: duplicate security ticker %q", s.Ticker)
		}
		securities[s.Ticker] = SecurityInfo{
			Name:         s.Name,
			UniqueIDType: s.UniqueIDType,
			UniqueID:     s.UniqueID,
		}
	}
	brokerQuirks := make(map[string][]string, len(externalConfig.BrokerQuirks))
	for _, bq := range externalConfig.BrokerQuirks {
		if bq.BrokerID == "" {
			return nil, errors.New("config: broker_quirks entry requires broker_id")
		}
		if _, ok := brokerQuirks[bq.BrokerID]; ok {
			return nil, fmt.Errorf("config: duplicate broker_quirks entry for broker %q", bq.BrokerID)
		}
		brokerQuirks[bq.BrokerID] = bq.Kinds
	}
	return &Config{
		DatabasePath: externalConfig.DatabasePath,
		Securities:   securities,
		BrokerQuirks: brokerQuirks,
	}, nil
}

// ReadConfig reads and validates the configuration file at filePath.
func ReadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config: file not found at %s, run \"capctl config init\" to create one", filePath)
		}
		return nil, fmt.Errorf("config: reading file: %w", err)
	}
	var externalConfig ExternalConfig
	if err := unmarshalYAMLStrict(data, &externalConfig); err != nil {
		return nil, fmt.Errorf("config: parsing file %s: %w", filePath, err)
	}
	return NewConfig(externalConfig)
}

// InitConfig creates a new configuration file with a documented template at
// filePath. Returns an error if the file already exists.
func InitConfig(filePath string) error {
	if _, err := os.Stat(filePath); err == nil {
		return fmt.Errorf("config: file already exists: %s", filePath)
	}
	return os.WriteFile(filePath, []byte(configTemplate), 0o644)
}

// unmarshalYAMLStrict unmarshals data as YAML, rejecting unknown fields.
func unmarshalYAMLStrict(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	yamlDecoder := yaml.NewDecoder(bytes.NewReader(data))
	yamlDecoder.KnownFields(true)
	if err := yamlDecoder.Decode(v); err != nil {
		return fmt.Errorf("config: could not unmarshal as YAML: %w", err)
	}
	return nil
}
