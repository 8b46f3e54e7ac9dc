package cmd

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mohsinsiddi/w3fund/internal/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// formatting helpers
// ---------------------------------------------------------------------------

func TestTrimDollar(t *testing.T) {
	assert.Equal(t, "2000.00", trimDollar("$2000.00"))
	assert.Equal(t, "2000.00", trimDollar("2000.00"))
	assert.Equal(t, "", trimDollar(""))
}

func TestCheckInterval(t *testing.T) {
	assert.Error(t, checkInterval(0))
	assert.Error(t, checkInterval(-time.Second))
	assert.Error(t, checkInterval(500*time.Millisecond))
	assert.NoError(t, checkInterval(time.Second))
	assert.NoError(t, checkInterval(5*time.Second))
}

func TestFmtAge(t *testing.T) {
	assert.Equal(t, "unknown", fmtAge(time.Time{}))
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Contains(t, fmtAge(ts), "2024-01-02T03:04:05Z")
	assert.Contains(t, fmtAge(ts), "ago")
}

func TestMinimumETH(t *testing.T) {
	usd5, _ := new(big.Int).SetString("5000000000000000000", 10)
	assert.Equal(t, "0.0025", minimumETH(twoThousand, usd5))
}

func TestWalletTypeLabel(t *testing.T) {
	assert.Equal(t, "read-write", walletTypeLabel("signing"))
	assert.Equal(t, "watch-only", walletTypeLabel("watch-only"))
}

func TestFeedLabel(t *testing.T) {
	reg := chain.NewRegistry()
	eth, err := reg.GetByName("ethereum")
	require.NoError(t, err)
	assert.Equal(t, "0x694AA1769357215DE4FAC081bf1f309aDC325306", feedLabel(*eth, "testnet"))
}

// ---------------------------------------------------------------------------
// readReceipt
// ---------------------------------------------------------------------------

func TestReadReceipt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.json")
	body := `{"receipt":{"ledger":"0x5fbdb2315678afecb367f032d93f642f64180aa3","chain_id":31337,` +
		`"contributor":"0x70997970c51812dc3a010c7d01b50e0d17dc79c8","amount":2500000000000000,` +
		`"issued_at":"2024-01-01T00:00:00Z"},"signature":"0x00"}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	sr, err := readReceipt(path)
	require.NoError(t, err)
	assert.Equal(t, int64(31337), sr.Receipt.ChainID)
	assert.Equal(t, "2500000000000000", sr.Receipt.Amount.String())
}

func TestReadReceiptMissingSignature(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"receipt":{"amount":1}}`), 0o644))
	_, err := readReceipt(path)
	assert.ErrorContains(t, err, "missing")
}

func TestReadReceiptNoFile(t *testing.T) {
	_, err := readReceipt(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// config validation
// ---------------------------------------------------------------------------

func TestValidateConfigValueRejectsNonPositiveUSD(t *testing.T) {
	for _, key := range []string{"minimum_usd", "static_price"} {
		assert.Error(t, validateConfigValue(key, "0"), key)
		assert.Error(t, validateConfigValue(key, "0.00"), key)
		assert.Error(t, validateConfigValue(key, "-5"), key)
		assert.NoError(t, validateConfigValue(key, "5"), key)
	}
}
