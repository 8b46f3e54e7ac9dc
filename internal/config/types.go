package config

import (
	"github.com/Mohsinsiddi/w3fund/internal/host"
	"github.com/Mohsinsiddi/w3fund/internal/ledger"
)

// Config holds all w3fund configuration.
type Config struct {
	DefaultNetwork string              `json:"default_network"`
	DefaultWallet  string              `json:"default_wallet"`
	NetworkMode    string              `json:"network_mode"` // "mainnet" | "testnet"
	PriceSource    string              `json:"price_source"` // "static" | "chainlink" | "coingecko"
	StaticPrice    string              `json:"static_price"` // USD per ETH, e.g. "2000"
	MinimumUSD     string              `json:"minimum_usd"`
	PriceFeed      string              `json:"price_feed,omitempty"` // aggregator override
	MaxPriceAge    int                 `json:"max_price_age"`        // seconds, 0 = off
	ChainID        int64               `json:"chain_id"`
	PriceCurrency  string              `json:"price_currency"`
	RPCAlgorithm   string              `json:"rpc_algorithm"` // "fastest" | "failover"
	CustomRPCs     map[string][]string `json:"custom_rpcs"`

	// internal: config dir path used for Save()
	configDir string
}

// StateFile is the structure of state.json: the deployed ledger and the
// local host it lives on.
type StateFile struct {
	Ledger     *ledger.Snapshot `json:"ledger,omitempty"`
	Host       *host.Snapshot   `json:"host,omitempty"`
	MinimumUSD string           `json:"minimum_usd,omitempty"` // fixed at deploy time
	DeployedAt string           `json:"deployed_at,omitempty"`
}

// Deployed reports whether a ledger has been initialised.
func (s *StateFile) Deployed() bool {
	return s != nil && s.Ledger != nil && s.Host != nil
}
