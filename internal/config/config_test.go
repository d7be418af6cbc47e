package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "missing.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultContractAddress, cfg.ContractAddress)
	assert.Equal(t, ".cat", cfg.TLD)
	assert.Equal(t, 2*time.Second, cfg.RefreshDelay)
	assert.Equal(t, 8, cfg.FetchConcurrency)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "https://testnets.opensea.io/assets/mumbai", cfg.MarketplaceURL)
	assert.Empty(t, cfg.Keystore)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "wallets", filepath.Base(cfg.WalletDir))
}

func TestLoadFileAndEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tld: .meow\nrefresh_delay: 5s\nfetch_concurrency: 2\n"), 0600))
	t.Setenv("CATCTL_FETCH_CONCURRENCY", "4")
	t.Setenv("CATCTL_METRICS_ADDR", "127.0.0.1:9400")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ".meow", cfg.TLD)
	assert.Equal(t, 5*time.Second, cfg.RefreshDelay)
	assert.Equal(t, 4, cfg.FetchConcurrency)
	assert.Equal(t, "127.0.0.1:9400", cfg.MetricsAddr)
}

func TestLoadRejectsBadAddress(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CATCTL_CONTRACT_ADDRESS", "not-an-address")

	_, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contract_address")
}

func TestPersistKeepsOtherKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Persist(KeyTLD, ".meow"))
	require.NoError(t, cfg.Persist(KeyKeystore, "/tmp/key.json"))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ".meow", reloaded.TLD)
	assert.Equal(t, "/tmp/key.json", reloaded.Keystore)
	assert.Equal(t, 2*time.Second, reloaded.RefreshDelay)
}
