// Package config loads catctl settings from defaults, a YAML file and CATCTL_ environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Keys.
const (
	KeyContractAddress  = "contract_address"
	KeyTLD              = "tld"
	KeyKeystore         = "keystore"
	KeyWalletDir        = "wallet_dir"
	KeyChainStore       = "chain_store"
	KeyRefreshDelay     = "refresh_delay"
	KeyFetchConcurrency = "fetch_concurrency"
	KeyLogLevel         = "log_level"
	KeyLogFile          = "log_file"
	KeyMetricsAddr      = "metrics_addr"
	KeyMarketplaceURL   = "marketplace_url"
)

// DefaultContractAddress is the name registry deployed on Polygon Mumbai.
const DefaultContractAddress = "0x72809fd489a5e7354dAC43bB2FedA3a6B40Ae538"

// Config holds catctl settings.
type Config struct {
	ContractAddress  string        `mapstructure:"contract_address"`
	TLD              string        `mapstructure:"tld"`
	Keystore         string        `mapstructure:"keystore"`
	WalletDir        string        `mapstructure:"wallet_dir"`
	ChainStore       string        `mapstructure:"chain_store"`
	RefreshDelay     time.Duration `mapstructure:"refresh_delay"`
	FetchConcurrency int           `mapstructure:"fetch_concurrency"`
	LogLevel         string        `mapstructure:"log_level"`
	LogFile          string        `mapstructure:"log_file"`
	MetricsAddr      string        `mapstructure:"metrics_addr"`
	MarketplaceURL   string        `mapstructure:"marketplace_url"`

	// File is the config file this Config was loaded from (or would be saved to).
	File string `mapstructure:"-"`
}

// DefaultDir returns ~/.catctl.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, ".catctl"), nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault(KeyContractAddress, DefaultContractAddress)
	v.SetDefault(KeyTLD, ".cat")
	v.SetDefault(KeyKeystore, "")
	v.SetDefault(KeyWalletDir, filepath.Join(dir, "wallets"))
	v.SetDefault(KeyChainStore, filepath.Join(dir, "chains.json"))
	v.SetDefault(KeyRefreshDelay, 2*time.Second)
	v.SetDefault(KeyFetchConcurrency, 8)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, filepath.Join(dir, "catctl.log"))
	v.SetDefault(KeyMetricsAddr, "")
	v.SetDefault(KeyMarketplaceURL, "https://testnets.opensea.io/assets/mumbai")
}

// Load reads configuration. An empty path means ~/.catctl/config.yaml; a missing file is not an error.
func Load(path string) (*Config, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = filepath.Join(dir, "config.yaml")
	}

	v := viper.New()
	setDefaults(v, dir)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CATCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	cfg.File = path
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside a command.
func (c *Config) Validate() error {
	if !common.IsHexAddress(c.ContractAddress) {
		return errors.Errorf("%s %q is not an address", KeyContractAddress, c.ContractAddress)
	}
	if c.RefreshDelay < 0 {
		return errors.Errorf("%s must not be negative", KeyRefreshDelay)
	}
	if c.FetchConcurrency < 0 {
		return errors.Errorf("%s must not be negative", KeyFetchConcurrency)
	}
	return nil
}

// Contract returns the registry address.
func (c *Config) Contract() common.Address {
	return common.HexToAddress(c.ContractAddress)
}

// Persist writes key=value into the config file, keeping the file's other settings.
func (c *Config) Persist(key string, value any) error {
	v := viper.New()
	v.SetConfigFile(c.File)
	v.SetConfigType("yaml")
	if _, err := os.Stat(c.File); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "failed to read %s", c.File)
		}
	}
	v.Set(key, value)

	if err := os.MkdirAll(filepath.Dir(c.File), 0700); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	if err := v.WriteConfigAs(c.File); err != nil {
		return errors.Wrapf(err, "failed to write %s", c.File)
	}
	return nil
}
