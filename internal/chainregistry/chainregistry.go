// Package chainregistry loads the chain registry and chain polling
// configuration described in spec.md §6. The registry is a TOML file
// (CHAIN_REGISTRY_PATH), matching the pack's TOML-based node config idiom
// (naoina/toml is a direct teacher dependency, see gxp/config.go); polling
// config defaults are built in code and may be overridden by a JSON blob
// (CHAIN_POLLING_CONFIGS), since the spec names that override format
// explicitly.
package chainregistry

import (
	"encoding/json"
	"fmt"
	"io/ioutil"

	"github.com/naoina/toml"
	"github.com/pkg/errors"

	"github.com/iskay-network/usdc-flow-tracker/internal/model"
)

// ContractAddresses names the on-chain contracts a chain's adapter needs to
// reference (spec.md §6, chain registry "contracts?" field).
type ContractAddresses struct {
	USDC              string `toml:",omitempty" json:"usdc,omitempty"`
	TokenMessenger    string `toml:",omitempty" json:"tokenMessenger,omitempty"`
	MessageTransmitter string `toml:",omitempty" json:"messageTransmitter,omitempty"`
}

// ChainEntry is one chain registry record.
type ChainEntry struct {
	ChainType   model.ChainType    `toml:"chain_type" json:"chainType"`
	Network     string             `toml:"network" json:"network"`
	DisplayName string             `toml:"display_name" json:"displayName"`
	RPCUrls     []string           `toml:"rpc_urls" json:"rpcUrls"`
	Explorer    string             `toml:",omitempty" json:"explorer,omitempty"`
	Contracts   ContractAddresses  `toml:",omitempty" json:"contracts,omitempty"`
	Gasless     bool               `toml:",omitempty" json:"gasless,omitempty"`
}

// Registry maps a chain id (e.g. "sepolia", "noble-1", "namada-testnet") to
// its ChainEntry.
type Registry map[string]ChainEntry

// Lookup returns the entry for id and whether id is present in the
// registry.
func (r Registry) Lookup(id string) (ChainEntry, bool) {
	e, ok := r[id]
	return e, ok
}

// LoadRegistry reads and parses the TOML chain registry file at path.
func LoadRegistry(path string) (Registry, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read chain registry file")
	}
	var wrapper struct {
		Chains map[string]ChainEntry `toml:"chains"`
	}
	if err := toml.Unmarshal(raw, &wrapper); err != nil {
		return nil, errors.Wrap(err, "parse chain registry toml")
	}
	return Registry(wrapper.Chains), nil
}

// PollingConfig is the per-chain polling tuning of spec.md §6.
type PollingConfig struct {
	MaxDurationMin      int `json:"maxDurationMin"`
	BlockWindowBackscan int `json:"blockWindowBackscan"`
	PollIntervalMs      int `json:"pollIntervalMs"`
	BlockRequestDelayMs int `json:"blockRequestDelayMs,omitempty"`
}

// DefaultPollingConfig is applied to any chain id absent from the override
// blob (spec.md §6).
var DefaultPollingConfig = PollingConfig{
	MaxDurationMin:      30,
	BlockWindowBackscan: 20,
	PollIntervalMs:      5000,
}

// PollingConfigs maps a chain id to its PollingConfig.
type PollingConfigs map[string]PollingConfig

// Get returns the configured PollingConfig for id, or DefaultPollingConfig
// if id has no override.
func (c PollingConfigs) Get(id string) PollingConfig {
	if cfg, ok := c[id]; ok {
		return withDefaults(cfg)
	}
	return DefaultPollingConfig
}

func withDefaults(cfg PollingConfig) PollingConfig {
	if cfg.MaxDurationMin == 0 {
		cfg.MaxDurationMin = DefaultPollingConfig.MaxDurationMin
	}
	if cfg.BlockWindowBackscan == 0 {
		cfg.BlockWindowBackscan = DefaultPollingConfig.BlockWindowBackscan
	}
	if cfg.PollIntervalMs == 0 {
		cfg.PollIntervalMs = DefaultPollingConfig.PollIntervalMs
	}
	return cfg
}

// LoadPollingConfigs parses the CHAIN_POLLING_CONFIGS JSON override blob.
// An empty raw value yields an empty override map (every chain then uses
// DefaultPollingConfig).
func LoadPollingConfigs(raw string) (PollingConfigs, error) {
	if raw == "" {
		return PollingConfigs{}, nil
	}
	var out PollingConfigs
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("parse CHAIN_POLLING_CONFIGS: %w", err)
	}
	return out, nil
}
