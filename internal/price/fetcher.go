package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Fetcher retrieves token prices from CoinGecko.
type Fetcher struct {
	client   *http.Client
	currency string
	baseURL  string
}

// NewFetcher creates a new price fetcher.
func NewFetcher(currency string) *Fetcher {
	if currency == "" {
		currency = "usd"
	}
	return &Fetcher{
		client:   &http.Client{Timeout: 10 * time.Second},
		currency: strings.ToLower(currency),
		baseURL:  "https://api.coingecko.com/api/v3",
	}
}

// coinGeckoIDs maps chain names to CoinGecko coin IDs.
var coinGeckoIDs = map[string]string{
	"ethereum": "ethereum",
	"base":     "ethereum",
	"arbitrum": "ethereum",
	"optimism": "ethereum",
	"linea":    "ethereum",
	"scroll":   "ethereum",
	"polygon":  "matic-network",
	"bnb":      "binancecoin",
	"local":    "ethereum",
}

// GetPrice returns the price of a chain's native token.
func (f *Fetcher) GetPrice(ctx context.Context, chainName string) (decimal.Decimal, error) {
	id, ok := coinGeckoIDs[strings.ToLower(chainName)]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown chain: %s", chainName)
	}
	return f.getByID(ctx, id)
}

// GetPrices fetches prices for several chains in a single request.
func (f *Fetcher) GetPrices(ctx context.Context, chainNames []string) (map[string]decimal.Decimal, error) {
	ids := make(map[string]string)
	for _, cn := range chainNames {
		if id, ok := coinGeckoIDs[strings.ToLower(cn)]; ok {
			ids[cn] = id
		}
	}

	// Collect unique coin IDs.
	uniqueIDs := make(map[string]struct{})
	for _, id := range ids {
		uniqueIDs[id] = struct{}{}
	}
	idList := make([]string, 0, len(uniqueIDs))
	for id := range uniqueIDs {
		idList = append(idList, id)
	}

	prices, err := f.fetchBatch(ctx, idList)
	if err != nil {
		return nil, err
	}

	result := make(map[string]decimal.Decimal)
	for cn, id := range ids {
		if p, ok := prices[id]; ok {
			result[cn] = p
		}
	}
	return result, nil
}

func (f *Fetcher) getByID(ctx context.Context, id string) (decimal.Decimal, error) {
	prices, err := f.fetchBatch(ctx, []string{id})
	if err != nil {
		return decimal.Zero, err
	}
	p, ok := prices[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("price not available for: %s", id)
	}
	return p, nil
}

func (f *Fetcher) fetchBatch(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	url := fmt.Sprintf(
		"%s/simple/price?ids=%s&vs_currencies=%s",
		f.baseURL,
		strings.Join(ids, ","),
		f.currency,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building price request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching prices: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading price response: %w", err)
	}

	// Response: {"ethereum":{"usd":1234.56}, ...}
	var raw map[string]map[string]decimal.Decimal
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing price response: %w", err)
	}

	prices := make(map[string]decimal.Decimal)
	for id, currencies := range raw {
		if p, ok := currencies[f.currency]; ok {
			prices[id] = p
		}
	}
	return prices, nil
}

// CoinGeckoFeed adapts a Fetcher to the Feed interface for one chain.
// Each call is a fresh round stamped with the local clock.
type CoinGeckoFeed struct {
	fetcher *Fetcher
	chain   string
	now     func() time.Time
}

// NewCoinGeckoFeed returns a Feed backed by CoinGecko simple prices.
func NewCoinGeckoFeed(f *Fetcher, chainName string) *CoinGeckoFeed {
	return &CoinGeckoFeed{fetcher: f, chain: chainName, now: time.Now}
}

// LatestRoundData implements Feed.
func (c *CoinGeckoFeed) LatestRoundData(ctx context.Context) (*RoundData, error) {
	p, err := c.fetcher.GetPrice(ctx, c.chain)
	if err != nil {
		return nil, err
	}
	ts := c.now()
	round := big.NewInt(ts.Unix())
	return &RoundData{
		RoundID:         round,
		Answer:          p.Shift(FeedDecimals).BigInt(),
		StartedAt:       ts,
		UpdatedAt:       ts,
		AnsweredInRound: new(big.Int).Set(round),
	}, nil
}

// ParseUSD parses a decimal string such as "5" or "2000.25" into a
// fixed-point integer with the given number of decimals. Digits past
// that scale are truncated.
func ParseUSD(s string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(strings.TrimPrefix(s, "$")))
	if err != nil {
		return nil, fmt.Errorf("invalid USD amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("invalid USD amount %q: negative", s)
	}
	return d.Shift(decimals).BigInt(), nil
}

// FormatUSD renders an 18-decimal USD value with two decimals.
func FormatUSD(v *big.Int) string {
	if v == nil {
		return "$0.00"
	}
	return "$" + decimal.NewFromBigInt(v, -18).StringFixed(2)
}
