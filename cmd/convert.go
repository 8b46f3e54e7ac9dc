package cmd

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/Mohsinsiddi/w3fund/internal/chain"
	"github.com/Mohsinsiddi/w3fund/internal/price"
	"github.com/Mohsinsiddi/w3fund/internal/ui"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert <amount> [unit]",
	Short: "Convert between ETH, Gwei, Wei and USD at the feed price",
	Long: `Convert an amount between ETH denominations and USD using the
configured price feed. A USD amount is converted to the smallest wei
value worth at least that much, the same rounding the ledger minimum uses.

Units: eth (default), gwei, wei, usd

Examples:
  w3fund convert 0.0025          # → wei, gwei, USD
  w3fund convert 50 gwei
  w3fund convert 2500000000000000 wei
  w3fund convert 5 usd           # → ETH needed for $5`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		unit := "eth"
		if len(args) > 1 {
			unit = strings.ToLower(args[1])
		}

		fs, err := openFeed(cmd.Context())
		if err != nil {
			return err
		}
		defer fs.close()

		p, err := priceNow(cmd.Context(), fs.feed)
		if err != nil {
			return err
		}

		rows, err := conversionRows(args[0], unit, p)
		if err != nil {
			return err
		}
		rows = append(rows, [2]string{"Price", fmtPrice(p) + " (" + fs.label + ")"})
		fmt.Println(ui.KeyValueBlock("Unit conversion", rows))
		return nil
	},
}

// conversionRows converts amount in unit to wei and renders every unit at
// the 18-decimal price p.
func conversionRows(amount, unit string, p *big.Int) ([][2]string, error) {
	wei, err := toWei(amount, unit, p)
	if err != nil {
		return nil, err
	}
	return [][2]string{
		{"Input", ui.Val(amount + " " + unit)},
		{"ETH", chain.FormatETH(wei) + " ETH"},
		{"Gwei", decimal.NewFromBigInt(wei, -9).String() + " gwei"},
		{"Wei", wei.String() + " wei"},
		{"USD", price.FormatUSD(price.Convert(p, wei))},
	}, nil
}

func toWei(amount, unit string, p *big.Int) (*big.Int, error) {
	switch unit {
	case "eth":
		return chain.ParseETH(amount)
	case "gwei":
		d, err := decimal.NewFromString(amount)
		if err != nil || d.IsNegative() {
			return nil, fmt.Errorf("invalid gwei amount: %s", amount)
		}
		w := d.Shift(9)
		if !w.Equal(w.Truncate(0)) {
			return nil, fmt.Errorf("invalid gwei amount: %s has more than 9 decimals", amount)
		}
		return w.BigInt(), nil
	case "wei":
		w, ok := new(big.Int).SetString(amount, 10)
		if !ok || w.Sign() < 0 {
			return nil, fmt.Errorf("invalid wei amount: %s", amount)
		}
		return w, nil
	case "usd", "$":
		usd, err := price.ParseUSD(amount, 18)
		if err != nil {
			return nil, err
		}
		w := price.MinimumWei(p, usd)
		if w == nil {
			return nil, fmt.Errorf("cannot convert USD at price %s", fmtPrice(p))
		}
		return w, nil
	default:
		return nil, fmt.Errorf("unknown unit %q; use eth, gwei, wei or usd", unit)
	}
}
