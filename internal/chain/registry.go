package chain

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrChainNotFound is returned when a chain is not in the registry.
var ErrChainNotFound = errors.New("chain not found")

// ErrNoPriceFeed is returned when a chain has no ETH/USD aggregator in a mode.
var ErrNoPriceFeed = errors.New("no price feed registered")

// LocalChainID is the chain ID of the built-in execution host.
const LocalChainID int64 = 31337

// Chain holds all metadata for a single chain.
type Chain struct {
	Name            string   `json:"name"`
	DisplayName     string   `json:"display_name"`
	ChainID         int64    `json:"chain_id"`
	TestnetChainID  int64    `json:"testnet_chain_id"`
	NativeCurrency  string   `json:"native_currency"`
	MainnetRPCs     []string `json:"mainnet_rpcs"`
	TestnetRPCs     []string `json:"testnet_rpcs"`
	MainnetExplorer string   `json:"mainnet_explorer"`
	TestnetExplorer string   `json:"testnet_explorer"`
	TestnetName     string   `json:"testnet_name"`
	// ETH/USD aggregator addresses; empty when none is deployed.
	MainnetPriceFeed string `json:"mainnet_price_feed,omitempty"`
	TestnetPriceFeed string `json:"testnet_price_feed,omitempty"`
	FaucetURL        string `json:"faucet_url,omitempty"`
}

// Registry is the chain registry.
type Registry struct {
	chains []Chain
	byName map[string]*Chain
	byID   map[int64]*Chain
}

// NewRegistry creates the registry of supported chains.
func NewRegistry() *Registry {
	chains := allChains()
	r := &Registry{
		chains: chains,
		byName: make(map[string]*Chain, len(chains)),
		byID:   make(map[int64]*Chain, len(chains)*2),
	}
	for i := range r.chains {
		c := &r.chains[i]
		r.byName[c.Name] = c
		r.byID[c.ChainID] = c
		if c.TestnetChainID != 0 {
			r.byID[c.TestnetChainID] = c
		}
	}
	return r
}

// All returns every chain in the registry.
func (r *Registry) All() []Chain {
	return r.chains
}

// GetByName finds a chain by its slug name (e.g. "base", "ethereum").
func (r *Registry) GetByName(name string) (*Chain, error) {
	c, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, ErrChainNotFound
	}
	return c, nil
}

// GetByChainID finds a chain by mainnet or testnet chain ID.
func (r *Registry) GetByChainID(id int64) (*Chain, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, ErrChainNotFound
	}
	return c, nil
}

// RPCs returns the RPC list for a chain in the given mode ("mainnet"/"testnet").
func (c *Chain) RPCs(mode string) []string {
	if mode == "testnet" {
		return c.TestnetRPCs
	}
	return c.MainnetRPCs
}

// Explorer returns the explorer URL for a chain in the given mode.
func (c *Chain) Explorer(mode string) string {
	if mode == "testnet" {
		return c.TestnetExplorer
	}
	return c.MainnetExplorer
}

// PriceFeed returns the ETH/USD aggregator address in the given mode.
func (c *Chain) PriceFeed(mode string) (common.Address, error) {
	addr := c.MainnetPriceFeed
	if mode == "testnet" {
		addr = c.TestnetPriceFeed
	}
	if addr == "" || !common.IsHexAddress(addr) {
		return common.Address{}, ErrNoPriceFeed
	}
	return common.HexToAddress(addr), nil
}

// ChainIDFor returns the chain ID served in the given mode.
func (c *Chain) ChainIDFor(mode string) int64 {
	if mode == "testnet" && c.TestnetChainID != 0 {
		return c.TestnetChainID
	}
	return c.ChainID
}

// IsLocal reports whether c is the in-process execution host.
func (c *Chain) IsLocal() bool { return c.ChainID == LocalChainID }

// --- chain data ---

func allChains() []Chain {
	return []Chain{
		{
			Name: "ethereum", DisplayName: "Ethereum", ChainID: 1, TestnetChainID: 11155111,
			NativeCurrency:   "ETH",
			MainnetRPCs:      []string{"https://eth.llamarpc.com", "https://ethereum-rpc.publicnode.com"},
			TestnetRPCs:      []string{"https://rpc.sepolia.org", "https://sepolia.gateway.tenderly.co"},
			MainnetExplorer:  "https://etherscan.io",
			TestnetExplorer:  "https://sepolia.etherscan.io",
			TestnetName:      "Sepolia",
			MainnetPriceFeed: "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419",
			TestnetPriceFeed: "0x694AA1769357215DE4FAC081bf1f309aDC325306",
			FaucetURL:        "https://sepoliafaucet.com",
		},
		{
			Name: "base", DisplayName: "Base", ChainID: 8453, TestnetChainID: 84532,
			NativeCurrency:   "ETH",
			MainnetRPCs:      []string{"https://mainnet.base.org", "https://base.llamarpc.com"},
			TestnetRPCs:      []string{"https://sepolia.base.org"},
			MainnetExplorer:  "https://basescan.org",
			TestnetExplorer:  "https://sepolia.basescan.org",
			TestnetName:      "Base Sepolia",
			MainnetPriceFeed: "0x71041dddad3595F9CEd3DcCFBe3D1F4b0a16Bb70",
			TestnetPriceFeed: "0x4aDC67696bA383F43DD60A9e78F2C97Fbbfc7cb1",
			FaucetURL:        "https://www.alchemy.com/faucets/base-sepolia",
		},
		{
			Name: "arbitrum", DisplayName: "Arbitrum", ChainID: 42161, TestnetChainID: 421614,
			NativeCurrency:   "ETH",
			MainnetRPCs:      []string{"https://arb1.arbitrum.io/rpc", "https://arbitrum.llamarpc.com"},
			TestnetRPCs:      []string{"https://sepolia-rollup.arbitrum.io/rpc"},
			MainnetExplorer:  "https://arbiscan.io",
			TestnetExplorer:  "https://sepolia.arbiscan.io",
			TestnetName:      "Arb Sepolia",
			MainnetPriceFeed: "0x639Fe6ab55C921f74e7fac1ee960C0B6293ba612",
			TestnetPriceFeed: "0xd30e2101a97dcbAeBCBC04F14C3f624E67A35165",
			FaucetURL:        "https://www.alchemy.com/faucets/arbitrum-sepolia",
		},
		{
			Name: "optimism", DisplayName: "Optimism", ChainID: 10, TestnetChainID: 11155420,
			NativeCurrency:   "ETH",
			MainnetRPCs:      []string{"https://mainnet.optimism.io", "https://optimism.llamarpc.com"},
			TestnetRPCs:      []string{"https://sepolia.optimism.io"},
			MainnetExplorer:  "https://optimistic.etherscan.io",
			TestnetExplorer:  "https://sepolia-optimism.etherscan.io",
			TestnetName:      "OP Sepolia",
			MainnetPriceFeed: "0x13e3Ee699D1909E989722E753853AE30b17e08c5",
			TestnetPriceFeed: "0x61Ec26aA57019C486B10502285c5A3D4A4750AD7",
			FaucetURL:        "https://www.alchemy.com/faucets/optimism-sepolia",
		},
		{
			Name: "polygon", DisplayName: "Polygon", ChainID: 137, TestnetChainID: 80002,
			NativeCurrency:  "MATIC",
			MainnetRPCs:     []string{"https://polygon-bor-rpc.publicnode.com", "https://polygon-pokt.nodies.app"},
			TestnetRPCs:     []string{"https://rpc-amoy.polygon.technology"},
			MainnetExplorer: "https://polygonscan.com",
			TestnetExplorer: "https://amoy.polygonscan.com",
			TestnetName:     "Amoy",
			FaucetURL:       "https://faucet.polygon.technology",
		},
		{
			Name: "local", DisplayName: "Local host", ChainID: LocalChainID,
			NativeCurrency: "ETH",
			MainnetRPCs:    []string{"http://127.0.0.1:8545"},
			TestnetRPCs:    []string{"http://127.0.0.1:8545"},
			TestnetName:    "Local",
		},
	}
}
