// Package config loads runtime configuration from environment variables
// over built-in defaults, following the pack's
// defaults-struct-plus-os.Getenv idiom (gxp/config.go's DefaultConfig).
// cmd/flowtracker defines no CLI flags, so nothing overrides these values.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/iskay-network/usdc-flow-tracker/internal/chainregistry"
	"github.com/iskay-network/usdc-flow-tracker/internal/queue"
	"github.com/iskay-network/usdc-flow-tracker/internal/worker"
)

// Config is every environment-configurable setting the service needs.
type Config struct {
	Host               string
	Port               int
	LogLevel           string
	CORSOrigins        []string
	DatabaseURL        string
	RedisURL           string
	EVMRPCURLs         []string
	TendermintRPCURLs  []string
	NobleRPCURLs       []string
	NamadaRPCURLs      []string
	ChainRegistryPath  string
	PollingConfigsJSON string
	KafkaBrokers       []string
	WorkerConfig       worker.Config
	QueuePolicy        queue.Policy
}

// Default returns a Config populated with non-dependency-bearing
// defaults; Load overlays environment variables on top of it.
func Default() Config {
	return Config{
		Host:              "0.0.0.0",
		Port:              8080,
		LogLevel:          "info",
		ChainRegistryPath: "chains.toml",
		WorkerConfig:      worker.DefaultConfig,
		QueuePolicy:       queue.DefaultPolicy,
	}
}

// Load reads environment variables into a Config, starting from Default().
func Load() (Config, error) {
	cfg := Default()

	if v := os.Getenv("HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return cfg, errors.Wrap(err, "parse PORT")
		}
		cfg.Port = port
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	cfg.CORSOrigins = splitCSV(os.Getenv("CORS_ORIGINS"))

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}
	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.RedisURL == "" {
		return cfg, errors.New("REDIS_URL is required")
	}

	cfg.EVMRPCURLs = splitCSV(os.Getenv("EVM_RPC_URLS"))
	cfg.NobleRPCURLs = splitCSV(os.Getenv("NOBLE_RPC_URLS"))
	cfg.NamadaRPCURLs = splitCSV(os.Getenv("NAMADA_RPC_URLS"))
	cfg.TendermintRPCURLs = append(append([]string{}, cfg.NobleRPCURLs...), cfg.NamadaRPCURLs...)

	if v := os.Getenv("CHAIN_REGISTRY_PATH"); v != "" {
		cfg.ChainRegistryPath = v
	}
	cfg.PollingConfigsJSON = os.Getenv("CHAIN_POLLING_CONFIGS")
	cfg.KafkaBrokers = splitCSV(os.Getenv("KAFKA_BROKERS"))

	return cfg, nil
}

// LoadChainRegistry reads the chain registry file named by
// cfg.ChainRegistryPath.
func (c Config) LoadChainRegistry() (chainregistry.Registry, error) {
	return chainregistry.LoadRegistry(c.ChainRegistryPath)
}

// LoadPollingConfigs parses cfg.PollingConfigsJSON.
func (c Config) LoadPollingConfigs() (chainregistry.PollingConfigs, error) {
	return chainregistry.LoadPollingConfigs(c.PollingConfigsJSON)
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
