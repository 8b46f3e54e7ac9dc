package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Mohsinsiddi/w3fund/internal/chain"
	"github.com/Mohsinsiddi/w3fund/internal/price"
	"github.com/Mohsinsiddi/w3fund/internal/ui"
	"github.com/spf13/cobra"
)

var (
	statusLiveFlag     bool
	statusIntervalFlag time.Duration
)

// minStatusInterval bounds --interval; each refresh rereads state.json and
// may probe RPC endpoints.
const minStatusInterval = time.Second

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the ledger, its price and every contributor",
	Long: `Show the deployed ledger: controller, balance, the current ETH/USD
price and minimum, and each contributor in first-contribution order.

--live keeps a dashboard open that re-reads state.json and the price feed
every --interval, so contributions made from another terminal show up.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if statusLiveFlag {
			if err := checkInterval(statusIntervalFlag); err != nil {
				return err
			}
			_, err := ui.NewDashboard(statusIntervalFlag, func() (*ui.StatusView, error) {
				return buildStatus(ctx)
			}).Run()
			return err
		}

		v, err := buildStatus(ctx)
		if err != nil {
			return err
		}
		fmt.Println(ui.RenderStatus(v))
		return nil
	},
}

// buildStatus reopens the workspace and renders it into a StatusView.
func buildStatus(ctx context.Context) (*ui.StatusView, error) {
	ws, err := openWorkspace(ctx)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	p, err := priceNow(ctx, ws.feed.feed)
	if err != nil {
		return nil, err
	}

	network := "local"
	if c, err := chain.NewRegistry().GetByChainID(ws.host.ChainID().Int64()); err == nil {
		network = c.DisplayName
	}
	network += fmt.Sprintf(" (chain %s)", ws.host.ChainID())

	v := &ui.StatusView{
		Network:     network,
		Contract:    ws.host.Contract().Hex(),
		Controller:  ws.ledger.Controller().Hex(),
		PriceSource: ws.feed.label,
		Price:       trimDollar(fmtPrice(p)),
		Minimum:     minimumETH(p, ws.ledger.MinimumUSD()),
		MinimumUSD:  ws.state.MinimumUSD,
		Balance:     chain.FormatETH(ws.ledger.Balance()),
	}
	for _, addr := range ws.ledger.Contributors() {
		amt := ws.ledger.AmountFunded(addr)
		v.Contributors = append(v.Contributors, ui.ContributorView{
			Address: addr.Hex(),
			Amount:  chain.FormatETH(amt),
			USD:     price.FormatUSD(price.Convert(p, amt)),
		})
	}
	return v, nil
}

func checkInterval(d time.Duration) error {
	if d < minStatusInterval {
		return fmt.Errorf("--interval must be at least %s, got %s", minStatusInterval, d)
	}
	return nil
}

func trimDollar(s string) string {
	if len(s) > 0 && s[0] == '$' {
		return s[1:]
	}
	return s
}

func init() {
	statusCmd.Flags().BoolVar(&statusLiveFlag, "live", false, "open a live dashboard")
	statusCmd.Flags().DurationVar(&statusIntervalFlag, "interval", 5*time.Second, "refresh interval for --live")
}
