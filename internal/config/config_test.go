package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"HOST", "PORT", "LOG_LEVEL", "CORS_ORIGINS", "DATABASE_URL", "REDIS_URL",
		"EVM_RPC_URLS", "NOBLE_RPC_URLS", "NAMADA_RPC_URLS", "CHAIN_REGISTRY_PATH",
		"CHAIN_POLLING_CONFIGS", "KAFKA_BROKERS",
	} {
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RequiresRedisURL(t *testing.T) {
	clearEnv(t)
	os.Setenv("DATABASE_URL", "user:pass@tcp(127.0.0.1:3306)/flowtracker")
	defer os.Unsetenv("DATABASE_URL")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	os.Setenv("DATABASE_URL", "user:pass@tcp(127.0.0.1:3306)/flowtracker")
	os.Setenv("REDIS_URL", "redis://127.0.0.1:6379/0")
	defer clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "chains.toml", cfg.ChainRegistryPath)
}

func TestLoad_OverridesAndCSVSplitting(t *testing.T) {
	clearEnv(t)
	os.Setenv("DATABASE_URL", "user:pass@tcp(127.0.0.1:3306)/flowtracker")
	os.Setenv("REDIS_URL", "redis://127.0.0.1:6379/0")
	os.Setenv("PORT", "9090")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	os.Setenv("EVM_RPC_URLS", "https://evm1.example, https://evm2.example")
	defer clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, []string{"https://evm1.example", "https://evm2.example"}, cfg.EVMRPCURLs)
}

func TestLoad_InvalidPort(t *testing.T) {
	clearEnv(t)
	os.Setenv("DATABASE_URL", "user:pass@tcp(127.0.0.1:3306)/flowtracker")
	os.Setenv("REDIS_URL", "redis://127.0.0.1:6379/0")
	os.Setenv("PORT", "not-a-number")
	defer clearEnv(t)

	_, err := Load()
	assert.Error(t, err)
}

func TestSplitCSV(t *testing.T) {
	assert.Nil(t, splitCSV(""))
	assert.Equal(t, []string{"a", "b"}, splitCSV("a, b"))
	assert.Equal(t, []string{"a"}, splitCSV(" a , , "))
}
