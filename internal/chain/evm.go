package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// EVMClient is a thin JSON-RPC client for EVM chains.
type EVMClient struct {
	url string
	rpc *ethclient.Client
}

// Balance holds a native balance result.
type Balance struct {
	Wei *big.Int
	ETH string
}

// Dial connects to the EVM endpoint at url.
func Dial(ctx context.Context, url string) (*EVMClient, error) {
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	return &EVMClient{url: url, rpc: c}, nil
}

// URL returns the endpoint this client talks to.
func (c *EVMClient) URL() string { return c.url }

// Close releases the underlying connection.
func (c *EVMClient) Close() { c.rpc.Close() }

// BalanceAt returns the latest native balance of addr.
func (c *EVMClient) BalanceAt(ctx context.Context, addr common.Address) (*Balance, error) {
	wei, err := c.rpc.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching balance: %w", err)
	}
	return &Balance{Wei: wei, ETH: WeiToETH(wei)}, nil
}

// ChainID returns the chain's ID.
func (c *EVMClient) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := c.rpc.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching chain id: %w", err)
	}
	return id, nil
}

// Ping tests the RPC endpoint and returns latency + block number.
func (c *EVMClient) Ping(ctx context.Context) (latency time.Duration, blockNum uint64, err error) {
	start := time.Now()
	blockNum, err = c.rpc.BlockNumber(ctx)
	latency = time.Since(start)
	return latency, blockNum, err
}

// CodeAt returns the bytecode at addr. Empty means no contract.
func (c *EVMClient) CodeAt(ctx context.Context, addr common.Address, block *big.Int) ([]byte, error) {
	return c.rpc.CodeAt(ctx, addr, block)
}

// CallContract executes a read-only call.
func (c *EVMClient) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	return c.rpc.CallContract(ctx, msg, block)
}

var _ ethereum.ContractCaller = (*EVMClient)(nil)
