package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"time"

	"github.com/Mohsinsiddi/w3fund/internal/chain"
	"github.com/Mohsinsiddi/w3fund/internal/config"
	"github.com/Mohsinsiddi/w3fund/internal/host"
	"github.com/Mohsinsiddi/w3fund/internal/ledger"
	"github.com/Mohsinsiddi/w3fund/internal/price"
	"github.com/Mohsinsiddi/w3fund/internal/rpc"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

var errNotInitialised = errors.New("no ledger deployed; run `w3fund init` first")

// feedSource is a price feed plus what is needed to describe and release it.
type feedSource struct {
	feed  price.Feed
	label string // e.g. "chainlink 0x694A…5306 on ethereum/testnet"
	close func()
}

// openFeed builds the price feed selected by cfg.PriceSource.
func openFeed(ctx context.Context) (*feedSource, error) {
	switch cfg.PriceSource {
	case config.PriceSourceStatic, "":
		answer, err := price.ParseUSD(cfg.StaticPrice, price.FeedDecimals)
		if err != nil {
			return nil, fmt.Errorf("static_price: %w", err)
		}
		return &feedSource{
			feed:  price.NewStaticFeed(answer),
			label: "static",
			close: func() {},
		}, nil

	case config.PriceSourceCoinGecko:
		f := price.NewFetcher(cfg.PriceCurrency)
		return &feedSource{
			feed:  price.NewCoinGeckoFeed(f, cfg.DefaultNetwork),
			label: "coingecko " + cfg.DefaultNetwork,
			close: func() {},
		}, nil

	case config.PriceSourceChainlink:
		return openAggregator(ctx)
	}
	return nil, fmt.Errorf("unknown price_source %q", cfg.PriceSource)
}

// openAggregator dials the first reachable RPC of the default network and
// verifies the ETH/USD aggregator there.
func openAggregator(ctx context.Context) (*feedSource, error) {
	c, err := chain.NewRegistry().GetByName(cfg.DefaultNetwork)
	if err != nil {
		return nil, fmt.Errorf("default_network %q: %w", cfg.DefaultNetwork, err)
	}

	var addr common.Address
	if cfg.PriceFeed != "" {
		if !common.IsHexAddress(cfg.PriceFeed) {
			return nil, fmt.Errorf("price_feed %q is not an address", cfg.PriceFeed)
		}
		addr = common.HexToAddress(cfg.PriceFeed)
	} else if addr, err = c.PriceFeed(cfg.NetworkMode); err != nil {
		return nil, fmt.Errorf("%s/%s: %w (set price_feed to override)", c.Name, cfg.NetworkMode, err)
	}

	client, err := dialBest(ctx, slices.Concat(cfg.GetRPCs(c.Name), c.RPCs(cfg.NetworkMode)), c.ChainIDFor(cfg.NetworkMode))
	if err != nil {
		return nil, err
	}

	feed := chain.NewAggregatorFeed(client, addr)
	vctx, cancel := context.WithTimeout(ctx, config.PriceReadTimeout)
	defer cancel()
	if err := feed.Verify(vctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("aggregator %s: %w", addr.Hex(), err)
	}
	logger.Debug("aggregator verified",
		zap.Stringer("address", addr),
		zap.String("rpc", client.URL()))

	return &feedSource{
		feed:  feed,
		label: fmt.Sprintf("chainlink %s on %s/%s", addr.Hex(), c.Name, cfg.NetworkMode),
		close: client.Close,
	}, nil
}

// dialBest probes urls, picks one with cfg.RPCAlgorithm among endpoints
// serving wantChainID, and dials it.
func dialBest(ctx context.Context, urls []string, wantChainID int64) (*chain.EVMClient, error) {
	algo, err := rpc.ParseAlgorithm(cfg.RPCAlgorithm)
	if err != nil {
		return nil, err
	}
	url, err := rpc.Best(ctx, urls, algo, wantChainID, config.RPCDialTimeout)
	if err != nil {
		return nil, fmt.Errorf("%d RPCs tried: %w", len(urls), err)
	}
	logger.Debug("rpc selected", zap.String("url", url), zap.String("algorithm", string(algo)))

	dctx, cancel := context.WithTimeout(ctx, config.RPCDialTimeout)
	defer cancel()
	return chain.Dial(dctx, url)
}

// ledgerOptions returns the ledger options shared by init and every
// command that reopens the ledger.
func ledgerOptions(minimumUSD string) ([]ledger.Option, error) {
	minimum, err := price.ParseUSD(minimumUSD, 18)
	if err != nil {
		return nil, fmt.Errorf("minimum_usd: %w", err)
	}
	return []ledger.Option{
		ledger.WithMinimumUSD(minimum),
		ledger.WithMaxPriceAge(cfg.MaxPriceAgeDuration()),
		ledger.WithLogger(logger.Named("ledger")),
	}, nil
}

// workspace is the deployed ledger and its host, restored from state.json.
type workspace struct {
	state  *config.StateFile
	host   *host.Host
	ledger *ledger.Ledger
	feed   *feedSource
}

// openWorkspace restores the ledger and host and attaches the configured
// price feed. Callers must Close it.
func openWorkspace(ctx context.Context) (*workspace, error) {
	state, err := cfg.LoadState()
	if err != nil {
		return nil, err
	}
	if !state.Deployed() {
		return nil, errNotInitialised
	}

	chainID := big.NewInt(cfg.ChainID)
	if state.Host.ChainID != nil {
		chainID = state.Host.ChainID
	}
	h := host.New(chainID, host.WithLogger(logger.Named("host")))
	if err := h.Restore(*state.Host); err != nil {
		return nil, fmt.Errorf("restoring host: %w", err)
	}

	fs, err := openFeed(ctx)
	if err != nil {
		return nil, err
	}
	opts, err := ledgerOptions(state.MinimumUSD)
	if err != nil {
		fs.close()
		return nil, err
	}
	l, err := ledger.New(state.Ledger.Controller, fs.feed, h.Payout(), opts...)
	if err != nil {
		fs.close()
		return nil, err
	}
	if err := l.Restore(*state.Ledger); err != nil {
		fs.close()
		return nil, fmt.Errorf("restoring ledger: %w", err)
	}
	h.Attach(state.Host.Contract, l)

	return &workspace{state: state, host: h, ledger: l, feed: fs}, nil
}

// Save writes the ledger and host back to state.json.
func (w *workspace) Save() error {
	ls := w.ledger.Snapshot()
	hs := w.host.Snapshot()
	w.state.Ledger = &ls
	w.state.Host = &hs
	if err := cfg.SaveState(w.state); err != nil {
		return fmt.Errorf("saving state: %w", err)
	}
	return nil
}

// Close releases the price feed connection.
func (w *workspace) Close() {
	w.feed.close()
}

// priceNow reads the feed once, bounded by PriceReadTimeout.
func priceNow(ctx context.Context, feed price.Feed) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, config.PriceReadTimeout)
	defer cancel()
	return price.Price(ctx, feed)
}

// deployLedger creates a fresh ledger owned by controller on a host that
// keeps the balances and nonces from prev, if any.
func deployLedger(ctx context.Context, controller common.Address, prev *config.StateFile) (*workspace, error) {
	chainID := big.NewInt(cfg.ChainID)
	h := host.New(chainID, host.WithLogger(logger.Named("host")))
	if prev != nil && prev.Host != nil && (prev.Host.ChainID == nil || prev.Host.ChainID.Cmp(chainID) == 0) {
		if err := h.Restore(*prev.Host); err != nil {
			return nil, fmt.Errorf("restoring host: %w", err)
		}
	}

	fs, err := openFeed(ctx)
	if err != nil {
		return nil, err
	}
	opts, err := ledgerOptions(cfg.MinimumUSD)
	if err != nil {
		fs.close()
		return nil, err
	}
	l, err := ledger.New(controller, fs.feed, h.Payout(), opts...)
	if err != nil {
		fs.close()
		return nil, err
	}
	h.Deploy(controller, l)

	state := &config.StateFile{
		MinimumUSD: cfg.MinimumUSD,
		DeployedAt: time.Now().UTC().Format(time.RFC3339),
	}
	return &workspace{state: state, host: h, ledger: l, feed: fs}, nil
}
