package price

import (
	"context"
	"io"
	"math/big"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// fixedTransport: replaces the HTTP client without needing a real server.
// ---------------------------------------------------------------------------

type fixedTransport struct {
	body string
	code int
	err  error
}

func (ft *fixedTransport) RoundTrip(_ *http.Request) (*http.Response, error) {
	if ft.err != nil {
		return nil, ft.err
	}
	return &http.Response{
		StatusCode: ft.code,
		Body:       io.NopCloser(strings.NewReader(ft.body)),
		Header:     make(http.Header),
	}, nil
}

// newMockFetcher returns a Fetcher whose HTTP calls are intercepted.
func newMockFetcher(body string, code int) *Fetcher {
	f := NewFetcher("usd")
	f.client = &http.Client{Transport: &fixedTransport{body: body, code: code}}
	return f
}

func newErrFetcher(err error) *Fetcher {
	f := NewFetcher("usd")
	f.client = &http.Client{Transport: &fixedTransport{err: err}}
	return f
}

// ---------------------------------------------------------------------------
// NewFetcher
// ---------------------------------------------------------------------------

func TestNewFetcherDefaultCurrency(t *testing.T) {
	f := NewFetcher("")
	assert.Equal(t, "usd", f.currency)
}

func TestNewFetcherCustomCurrency(t *testing.T) {
	f := NewFetcher("EUR")
	assert.Equal(t, "eur", f.currency, "currency must be lowercased")
}

// ---------------------------------------------------------------------------
// GetPrice
// ---------------------------------------------------------------------------

func TestGetPriceKnownChain(t *testing.T) {
	f := newMockFetcher(`{"ethereum":{"usd":3000.50}}`, http.StatusOK)

	p, err := f.GetPrice(context.Background(), "ethereum")
	require.NoError(t, err)
	assert.Equal(t, "3000.5", p.String())
}

func TestGetPriceBaseUsesEthereumID(t *testing.T) {
	f := newMockFetcher(`{"ethereum":{"usd":2500.00}}`, http.StatusOK)

	p, err := f.GetPrice(context.Background(), "base")
	require.NoError(t, err)
	assert.Equal(t, "2500", p.String())
}

func TestGetPriceUnknownChain(t *testing.T) {
	f := newMockFetcher("{}", http.StatusOK)
	_, err := f.GetPrice(context.Background(), "fakechain99")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown chain")
}

func TestGetPriceCaseInsensitive(t *testing.T) {
	f := newMockFetcher(`{"ethereum":{"usd":2000.0}}`, http.StatusOK)

	p, err := f.GetPrice(context.Background(), "Ethereum")
	require.NoError(t, err)
	assert.Equal(t, "2000", p.String())
}

func TestGetPriceHTTPError(t *testing.T) {
	f := newErrFetcher(&networkError{msg: "connection refused"})
	_, err := f.GetPrice(context.Background(), "ethereum")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching prices")
}

func TestGetPriceNon200(t *testing.T) {
	f := newMockFetcher(`{"status":{"error_code":429}}`, http.StatusTooManyRequests)
	_, err := f.GetPrice(context.Background(), "ethereum")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 429")
}

func TestGetPriceInvalidJSON(t *testing.T) {
	f := newMockFetcher("{not valid json", http.StatusOK)
	_, err := f.GetPrice(context.Background(), "ethereum")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing price response")
}

func TestGetPriceMissingIDInResponse(t *testing.T) {
	f := newMockFetcher(`{"bitcoin":{"usd":50000}}`, http.StatusOK)

	_, err := f.GetPrice(context.Background(), "ethereum")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price not available")
}

// ---------------------------------------------------------------------------
// GetPrices (batch)
// ---------------------------------------------------------------------------

func TestGetPricesDedupsCoinGeckoIDs(t *testing.T) {
	// ethereum, base, arbitrum, optimism all map to "ethereum".
	callCount := 0
	f := NewFetcher("usd")
	f.client = &http.Client{Transport: &countingTransport{
		body:  `{"ethereum":{"usd":3000}}`,
		count: &callCount,
	}}

	prices, err := f.GetPrices(context.Background(), []string{"ethereum", "base", "arbitrum", "optimism"})
	require.NoError(t, err)
	assert.Equal(t, 1, callCount, "deduped IDs should produce a single HTTP request")
	for _, chain := range []string{"ethereum", "base", "arbitrum", "optimism"} {
		assert.Equal(t, "3000", prices[chain].String(), "chain %s", chain)
	}
}

func TestGetPricesMixedKnownUnknown(t *testing.T) {
	f := newMockFetcher(`{"ethereum":{"usd":3000}}`, http.StatusOK)

	prices, err := f.GetPrices(context.Background(), []string{"ethereum", "unknownchain99"})
	require.NoError(t, err)
	assert.Contains(t, prices, "ethereum")
	assert.NotContains(t, prices, "unknownchain99")
}

// ---------------------------------------------------------------------------
// CoinGeckoFeed
// ---------------------------------------------------------------------------

func TestCoinGeckoFeedScalesToFeedDecimals(t *testing.T) {
	f := newMockFetcher(`{"ethereum":{"usd":2000.12345678}}`, http.StatusOK)
	feed := NewCoinGeckoFeed(f, "ethereum")

	rd, err := feed.LatestRoundData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "200012345678", rd.Answer.String())
	assert.Equal(t, rd.RoundID, rd.AnsweredInRound)
}

func TestCoinGeckoFeedTruncatesExtraDigits(t *testing.T) {
	f := newMockFetcher(`{"ethereum":{"usd":1.123456789}}`, http.StatusOK)
	rd, err := NewCoinGeckoFeed(f, "ethereum").LatestRoundData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "112345678", rd.Answer.String())
}

func TestCoinGeckoFeedPropagatesError(t *testing.T) {
	f := newErrFetcher(&networkError{msg: "dial tcp: connection refused"})
	_, err := NewCoinGeckoFeed(f, "ethereum").LatestRoundData(context.Background())
	require.Error(t, err)
}

// ---------------------------------------------------------------------------
// ParseUSD / FormatUSD
// ---------------------------------------------------------------------------

func TestParseUSD(t *testing.T) {
	v, err := ParseUSD("5", 18)
	require.NoError(t, err)
	assert.Equal(t, "5000000000000000000", v.String())

	v, err = ParseUSD("$2000.5", FeedDecimals)
	require.NoError(t, err)
	assert.Equal(t, "200050000000", v.String())
}

func TestParseUSDRejectsGarbage(t *testing.T) {
	_, err := ParseUSD("five", 18)
	assert.Error(t, err)
	_, err = ParseUSD("-1", 18)
	assert.Error(t, err)
}

func TestFormatUSD(t *testing.T) {
	v, _ := new(big.Int).SetString("5000000000000000000", 10)
	assert.Equal(t, "$5.00", FormatUSD(v))
	assert.Equal(t, "$0.00", FormatUSD(nil))
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// networkError satisfies the error interface for transport-level failures.
type networkError struct{ msg string }

func (e *networkError) Error() string { return e.msg }

// countingTransport counts how many HTTP requests are made.
type countingTransport struct {
	body  string
	count *int
}

func (ct *countingTransport) RoundTrip(_ *http.Request) (*http.Response, error) {
	*ct.count++
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(ct.body)),
		Header:     make(http.Header),
	}, nil
}
