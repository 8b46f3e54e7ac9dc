package config_test

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mohsinsiddi/w3fund/internal/config"
	"github.com/Mohsinsiddi/w3fund/internal/host"
	"github.com/Mohsinsiddi/w3fund/internal/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "ethereum", cfg.DefaultNetwork)
	assert.Equal(t, "testnet", cfg.NetworkMode)
	assert.Equal(t, config.PriceSourceStatic, cfg.PriceSource)
	assert.Equal(t, "2000", cfg.StaticPrice)
	assert.Equal(t, "5", cfg.MinimumUSD)
	assert.Equal(t, int64(31337), cfg.ChainID)
	assert.Equal(t, "USD", cfg.PriceCurrency)
	assert.Equal(t, "fastest", cfg.RPCAlgorithm)
	assert.Zero(t, cfg.MaxPriceAge)
}

func TestLoadUsesEnvDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvDir, dir)
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Dir())
}

func TestSaveAndReloadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	cfg.DefaultNetwork = "base"
	cfg.DefaultWallet = "mywallet"
	cfg.PriceSource = config.PriceSourceChainlink

	require.NoError(t, cfg.Save())

	reloaded, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "base", reloaded.DefaultNetwork)
	assert.Equal(t, "mywallet", reloaded.DefaultWallet)
	assert.Equal(t, config.PriceSourceChainlink, reloaded.PriceSource)
}

func TestLoadCorruptConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0o600))
	_, err := config.Load(dir)
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Set
// ---------------------------------------------------------------------------

func TestSet(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, cfg.Set("price_source", "coingecko"))
	require.NoError(t, cfg.Set("static_price", "3100.25"))
	require.NoError(t, cfg.Set("minimum_usd", "10"))
	require.NoError(t, cfg.Set("max_price_age", "3600"))
	require.NoError(t, cfg.Set("chain_id", "1337"))
	require.NoError(t, cfg.Set("network_mode", "mainnet"))
	require.NoError(t, cfg.Set("price_currency", "eur"))
	require.NoError(t, cfg.Set("rpc_algorithm", "failover"))

	assert.Equal(t, config.PriceSourceCoinGecko, cfg.PriceSource)
	assert.Equal(t, "3100.25", cfg.StaticPrice)
	assert.Equal(t, "10", cfg.MinimumUSD)
	assert.Equal(t, time.Hour, cfg.MaxPriceAgeDuration())
	assert.Equal(t, int64(1337), cfg.ChainID)
	assert.Equal(t, "mainnet", cfg.NetworkMode)
	assert.Equal(t, "EUR", cfg.PriceCurrency)
	assert.Equal(t, "failover", cfg.RPCAlgorithm)
}

func TestSetRejectsInvalidValues(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	tests := []struct{ key, value string }{
		{"price_source", "oracle"},
		{"network_mode", "devnet"},
		{"max_price_age", "-1"},
		{"max_price_age", "soon"},
		{"chain_id", "0"},
		{"rpc_algorithm", "round-robin"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			assert.Error(t, cfg.Set(tt.key, tt.value))
		})
	}

	assert.ErrorIs(t, cfg.Set("session_ttl", "60"), config.ErrUnknownKey)
}

// ---------------------------------------------------------------------------
// custom RPCs
// ---------------------------------------------------------------------------

func TestAddCustomRPC(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	require.NoError(t, cfg.AddRPC("base", "https://custom.base.rpc"))

	rpcs := cfg.GetRPCs("base")
	assert.Contains(t, rpcs, "https://custom.base.rpc")
}

func TestAddDuplicateRPCErrors(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)

	cfg.AddRPC("base", "https://custom.base.rpc") //nolint:errcheck
	err := cfg.AddRPC("base", "https://custom.base.rpc")
	assert.Error(t, err)
}

func TestRemoveCustomRPC(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	cfg.AddRPC("base", "https://rpc1.base") //nolint:errcheck
	cfg.AddRPC("base", "https://rpc2.base") //nolint:errcheck

	require.NoError(t, cfg.RemoveRPC("base", "https://rpc1.base"))

	rpcs := cfg.GetRPCs("base")
	assert.NotContains(t, rpcs, "https://rpc1.base")
	assert.Contains(t, rpcs, "https://rpc2.base")
}

func TestRemoveNonExistentRPCErrors(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)

	err := cfg.RemoveRPC("base", "https://nonexistent.rpc")
	assert.Error(t, err)
}

func TestConfigFileCreatedOnSave(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)
	require.NoError(t, cfg.Save())

	_, err := os.Stat(filepath.Join(dir, "config.json"))
	assert.NoError(t, err, "config.json should be created on save")
}

func TestLoadFromNonExistentDir(t *testing.T) {
	dir := t.TempDir() + "/subdir"
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "ethereum", cfg.DefaultNetwork)
}

// ---------------------------------------------------------------------------
// sidecar files
// ---------------------------------------------------------------------------

func TestWalletsPath(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "wallets.json"), cfg.WalletsPath())
}

func TestStateRoundTrip(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	empty, err := cfg.LoadState()
	require.NoError(t, err)
	assert.False(t, empty.Deployed())

	controller := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	alice := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	contract := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	amount, _ := new(big.Int).SetString("2500000000000000", 10)

	sf := &config.StateFile{
		Ledger: &ledger.Snapshot{
			Controller:   controller,
			Contributors: []ledger.Funding{{Address: alice, Amount: amount}},
			Balance:      amount,
		},
		Host: &host.Snapshot{
			ChainID:  big.NewInt(31337),
			Contract: contract,
			Accounts: map[common.Address]*big.Int{alice: big.NewInt(7)},
			Nonces:   map[common.Address]uint64{alice: 1, controller: 1},
		},
		MinimumUSD: "5",
	}
	require.NoError(t, cfg.SaveState(sf))

	loaded, err := cfg.LoadState()
	require.NoError(t, err)
	require.True(t, loaded.Deployed())
	assert.Equal(t, controller, loaded.Ledger.Controller)
	require.Len(t, loaded.Ledger.Contributors, 1)
	assert.Equal(t, alice, loaded.Ledger.Contributors[0].Address)
	assert.Equal(t, "2500000000000000", loaded.Ledger.Contributors[0].Amount.String())
	assert.Equal(t, contract, loaded.Host.Contract)
	assert.Equal(t, "7", loaded.Host.Accounts[alice].String())
	assert.Equal(t, uint64(1), loaded.Host.Nonces[controller])
	assert.Equal(t, "5", loaded.MinimumUSD)

	_, err = os.Stat(filepath.Join(cfg.Dir(), "state.json.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestLoadCorruptState(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Dir(), "state.json"), []byte("[]"), 0o600))
	_, err = cfg.LoadState()
	assert.Error(t, err)
}
