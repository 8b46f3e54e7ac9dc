package chain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for unparsable or negative ETH amounts.
var ErrInvalidAmount = errors.New("invalid ETH amount")

// WeiToETH converts a wei amount to an ETH decimal string with 18 places.
func WeiToETH(wei *big.Int) string {
	if wei == nil {
		wei = new(big.Int)
	}
	return decimal.NewFromBigInt(wei, -18).StringFixed(18)
}

// FormatETH renders wei as ETH without trailing zeros: "0.0025", "1".
func FormatETH(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -18).String()
}

// ParseETH converts a decimal ETH string ("0.0025", "1") to wei. Precision
// beyond 18 places is rejected rather than rounded.
func ParseETH(s string) (*big.Int, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "ETH"))
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}
	wei := d.Shift(18)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("%w: %q has more than 18 decimals", ErrInvalidAmount, s)
	}
	return wei.BigInt(), nil
}
