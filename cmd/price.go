package cmd

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/w3fund/internal/chain"
	"github.com/Mohsinsiddi/w3fund/internal/config"
	"github.com/Mohsinsiddi/w3fund/internal/price"
	"github.com/Mohsinsiddi/w3fund/internal/ui"
	"github.com/spf13/cobra"
)

var priceCmd = &cobra.Command{
	Use:   "price [eth-amount]",
	Short: "Show the ETH/USD price, the minimum in ETH and an optional conversion",
	Long: `Read the configured price feed once and show the latest round, the
ETH needed to meet the USD minimum, and the USD value of an amount.

Examples:
  w3fund price
  w3fund price 0.0025
  w3fund price --mainnet      # with price_source=chainlink`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var amount *big.Int
		if len(args) == 1 {
			var err error
			if amount, err = chain.ParseETH(args[0]); err != nil {
				return err
			}
		}

		fs, err := openFeed(ctx)
		if err != nil {
			return err
		}
		defer fs.close()

		sp := ui.NewSpinner("Reading " + fs.label + "…")
		sp.Start()
		rd, err := latestRound(ctx, fs.feed)
		sp.Stop()
		if err != nil {
			return err
		}
		p, err := price.Normalize(rd)
		if err != nil {
			return err
		}

		minUSD, minLabel, err := effectiveMinimum()
		if err != nil {
			return err
		}

		pairs := [][2]string{
			{"Source", fs.label},
			{"Round", rd.RoundID.String()},
			{"Answer", rd.Answer.String() + " (8 decimals)"},
			{"ETH/USD", fmtPrice(p)},
			{"Updated", fmtAge(rd.UpdatedAt)},
			{"Minimum", "$" + minLabel + " = " + minimumETH(p, minUSD) + " ETH"},
		}
		if amount != nil {
			pairs = append(pairs, [2]string{chain.FormatETH(amount) + " ETH", price.FormatUSD(price.Convert(p, amount))})
		}
		fmt.Println(ui.KeyValueBlock("Price feed", pairs))

		if maxAge := cfg.MaxPriceAgeDuration(); maxAge > 0 && time.Since(rd.UpdatedAt) > maxAge {
			fmt.Println(ui.Warn(fmt.Sprintf("Round is older than max_price_age (%s); contributions will be rejected.", maxAge)))
		}
		return nil
	},
}

func latestRound(ctx context.Context, feed price.Feed) (*price.RoundData, error) {
	ctx, cancel := context.WithTimeout(ctx, config.PriceReadTimeout)
	defer cancel()
	rd, err := feed.LatestRoundData(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading price feed: %w", err)
	}
	return rd, nil
}

// effectiveMinimum is the deployed ledger's minimum, or the configured one
// when nothing is deployed.
func effectiveMinimum() (*big.Int, string, error) {
	label := cfg.MinimumUSD
	if state, err := cfg.LoadState(); err == nil && state.Deployed() && state.MinimumUSD != "" {
		label = state.MinimumUSD
	}
	v, err := price.ParseUSD(label, 18)
	if err != nil {
		return nil, "", fmt.Errorf("minimum_usd: %w", err)
	}
	return v, label, nil
}

// fmtPrice renders an 18-decimal USD price.
func fmtPrice(p *big.Int) string {
	return price.FormatUSD(p)
}

// minimumETH renders the ETH needed to meet minUSD at price p.
func minimumETH(p, minUSD *big.Int) string {
	return chain.FormatETH(price.MinimumWei(p, minUSD))
}

func fmtAge(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return fmt.Sprintf("%s (%s ago)", t.UTC().Format(time.RFC3339), time.Since(t).Round(time.Second))
}
