package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
auth:
  jwt_secret: test-secret
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "localhost", cfg.Database.Host)
	require.True(t, cfg.Wallet.TestnetDisplay)
	require.Equal(t, "tb1q", cfg.Wallet.AddressPrefix)
	require.InDelta(t, 0.01, cfg.Wallet.FaucetMin, 1e-9)
	require.InDelta(t, 0.11, cfg.Wallet.FaucetMax, 1e-9)
	require.Equal(t, "info", cfg.Logging.Level)
	require.False(t, cfg.Redis.Enabled)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
auth:
  jwt_secret: test-secret
  issuer: wallet-api
wallet:
  testnet_display: false
  faucet_min: 0.5
  faucet_max: 1.5
  preferences_file: /var/lib/wallet/preferences.yaml
redis:
  enabled: true
  addr: redis:6379
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "wallet-api", cfg.Auth.Issuer)
	require.False(t, cfg.Wallet.TestnetDisplay)
	require.InDelta(t, 0.5, cfg.Wallet.FaucetMin, 1e-9)
	require.Equal(t, "/var/lib/wallet/preferences.yaml", cfg.Wallet.PreferencesFile)
	require.True(t, cfg.Redis.Enabled)
	require.Equal(t, "redis:6379", cfg.Redis.Addr)
}

func TestLoad_MissingJWTSecretFails(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 8080
`)

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "validation")
}

func TestLoad_FaucetBoundsValidated(t *testing.T) {
	path := writeConfigFile(t, `
auth:
  jwt_secret: test-secret
wallet:
  faucet_min: 0.5
  faucet_max: 0.1
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
