package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
wallet:
  path: /tmp/w.json
  default_balance: 2500
  strategy_fraction: 0.2
journal:
  enabled: true
  path: /tmp/j.db
exchange:
  name: bybit
  rest_endpoint: https://api-testnet.bybit.com
monitor:
  symbols: [BTCUSDT, ETH/USDT]
  interval_ms: 1500
  use_ws: true
logging:
  level: debug
server:
  port: 9090
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/w.json", cfg.Wallet.Path)
	assert.Equal(t, 2500.0, cfg.Wallet.DefaultBalance)
	assert.Equal(t, 0.2, cfg.Wallet.StrategyFraction)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, "https://api-testnet.bybit.com", cfg.Exchange.RESTEndpoint)
	assert.Equal(t, "linear", cfg.Exchange.Category)
	assert.Equal(t, []string{"BTCUSDT", "ETH/USDT"}, cfg.Monitor.Symbols)
	assert.Equal(t, 1500*time.Millisecond, cfg.MonitorInterval())
	assert.True(t, cfg.Monitor.UseWS)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 8081\n"))
	require.NoError(t, err)

	assert.Equal(t, "data/paper_wallet.json", cfg.Wallet.Path)
	assert.Equal(t, 10000.0, cfg.Wallet.DefaultBalance)
	assert.Equal(t, 0.1, cfg.Wallet.StrategyFraction)
	assert.Equal(t, "data/journal.db", cfg.Journal.Path)
	assert.False(t, cfg.Journal.Enabled)
	assert.Equal(t, "bybit", cfg.Exchange.Name)
	assert.Equal(t, 5*time.Second, cfg.MonitorInterval())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 8081, cfg.Server.Port)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"fraction above one", "wallet:\n  strategy_fraction: 1.5\n"},
		{"negative balance", "wallet:\n  default_balance: -1\n"},
		{"negative interval", "monitor:\n  interval_ms: -10\n"},
		{"unknown exchange", "exchange:\n  name: binance\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, 8080, cfg.Server.Port)
}
