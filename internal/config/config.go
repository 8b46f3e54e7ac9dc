package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	defaultNetwork     = "ethereum"
	defaultMode        = "testnet"
	defaultPriceSource = PriceSourceStatic
	defaultStaticPrice = "2000"
	defaultMinimumUSD  = "5"
	defaultCurrency    = "USD"
	defaultChainID     = 31337
	defaultAlgorithm   = "fastest"

	configFile  = "config.json"
	walletsFile = "wallets.json"
	stateFile   = "state.json"

	// EnvDir overrides the config directory.
	EnvDir = "W3FUND_CONFIG_DIR"
)

// ErrUnknownKey is returned by Set for keys that do not exist.
var ErrUnknownKey = errors.New("unknown config key")

// Load reads config from dir (or creates defaults). dir defaults to
// $W3FUND_CONFIG_DIR, then ~/.w3fund.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = os.Getenv(EnvDir)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".w3fund")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	path := filepath.Join(dir, configFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.configDir = dir
	if cfg.CustomRPCs == nil {
		cfg.CustomRPCs = make(map[string][]string)
	}

	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// Set assigns a config value by its JSON key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "default_network":
		c.DefaultNetwork = value
	case "default_wallet":
		c.DefaultWallet = value
	case "network_mode":
		if value != "mainnet" && value != "testnet" {
			return fmt.Errorf("network_mode must be mainnet or testnet, got %q", value)
		}
		c.NetworkMode = value
	case "price_source":
		switch value {
		case PriceSourceStatic, PriceSourceChainlink, PriceSourceCoinGecko:
			c.PriceSource = value
		default:
			return fmt.Errorf("price_source must be static, chainlink or coingecko, got %q", value)
		}
	case "static_price":
		c.StaticPrice = value
	case "minimum_usd":
		c.MinimumUSD = value
	case "price_feed":
		c.PriceFeed = value
	case "max_price_age":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("max_price_age must be a non-negative number of seconds, got %q", value)
		}
		c.MaxPriceAge = n
	case "chain_id":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("chain_id must be a positive integer, got %q", value)
		}
		c.ChainID = n
	case "price_currency":
		c.PriceCurrency = strings.ToUpper(value)
	case "rpc_algorithm":
		if value != "fastest" && value != "failover" {
			return fmt.Errorf("rpc_algorithm must be fastest or failover, got %q", value)
		}
		c.RPCAlgorithm = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return nil
}

// MaxPriceAgeDuration returns MaxPriceAge as a duration.
func (c *Config) MaxPriceAgeDuration() time.Duration {
	return time.Duration(c.MaxPriceAge) * time.Second
}

// AddRPC adds a custom RPC URL for a chain.
func (c *Config) AddRPC(chain, url string) error {
	if c.CustomRPCs == nil {
		c.CustomRPCs = make(map[string][]string)
	}
	if slices.Contains(c.CustomRPCs[chain], url) {
		return fmt.Errorf("RPC %s already exists for chain %s", url, chain)
	}
	c.CustomRPCs[chain] = append(c.CustomRPCs[chain], url)
	return nil
}

// RemoveRPC removes a custom RPC URL for a chain.
func (c *Config) RemoveRPC(chain, url string) error {
	rpcs := c.CustomRPCs[chain]
	idx := slices.Index(rpcs, url)
	if idx == -1 {
		return fmt.Errorf("RPC %s not found for chain %s", url, chain)
	}
	c.CustomRPCs[chain] = slices.Delete(rpcs, idx, idx+1)
	return nil
}

// GetRPCs returns custom RPCs for a chain.
func (c *Config) GetRPCs(chain string) []string {
	return c.CustomRPCs[chain]
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// WalletsPath returns the path of wallets.json.
func (c *Config) WalletsPath() string {
	return filepath.Join(c.configDir, walletsFile)
}

// LoadState reads state.json. A missing file yields an empty state.
func (c *Config) LoadState() (*StateFile, error) {
	return loadJSON[StateFile](filepath.Join(c.configDir, stateFile))
}

// SaveState writes state.json.
func (c *Config) SaveState(sf *StateFile) error {
	return saveJSON(filepath.Join(c.configDir, stateFile), sf)
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		DefaultNetwork: defaultNetwork,
		NetworkMode:    defaultMode,
		PriceSource:    defaultPriceSource,
		StaticPrice:    defaultStaticPrice,
		MinimumUSD:     defaultMinimumUSD,
		ChainID:        defaultChainID,
		PriceCurrency:  defaultCurrency,
		RPCAlgorithm:   defaultAlgorithm,
		CustomRPCs:     make(map[string][]string),
		configDir:      dir,
	}
}

func loadJSON[T any](path string) (*T, error) {
	var zero T
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &zero, nil
	}
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return &v, nil
}

func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
