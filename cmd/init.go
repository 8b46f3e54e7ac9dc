package cmd

import (
	"fmt"

	"github.com/Mohsinsiddi/w3fund/internal/chain"
	"github.com/Mohsinsiddi/w3fund/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	initControllerFlag  string
	initForceFlag       bool
	initInteractiveFlag bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Deploy a fresh funding ledger",
	Long: `Deploy a fresh funding ledger on the local host.

The controller (the only account allowed to withdraw) is the --controller
wallet, address or ENS name, or the default wallet. The USD minimum and the price source come from
the config. With --interactive a setup wizard asks for them first.

Account balances and nonces on the host survive a redeploy with --force;
the previous ledger and anything it still holds are abandoned.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if initInteractiveFlag {
			fmt.Println(ui.Banner())
			if err := runInitWizard(); err != nil {
				return err
			}
		}

		prev, err := cfg.LoadState()
		if err != nil {
			return err
		}
		if prev.Deployed() && !initForceFlag {
			return fmt.Errorf("a ledger is already deployed at %s; use --force to replace it", prev.Host.Contract.Hex())
		}

		controller, label, err := resolveAccount(cmd.Context(), initControllerFlag)
		if err != nil {
			return fmt.Errorf("controller: %w", err)
		}

		ws, err := deployLedger(cmd.Context(), controller, prev)
		if err != nil {
			return err
		}
		defer ws.Close()

		p, err := priceNow(cmd.Context(), ws.feed.feed)
		if err != nil {
			return fmt.Errorf("checking price feed: %w", err)
		}
		if err := ws.Save(); err != nil {
			return err
		}
		logger.Info("ledger initialised",
			zap.Stringer("contract", ws.host.Contract()),
			zap.Stringer("controller", controller),
			zap.String("price_source", ws.feed.label))

		fmt.Println(ui.KeyValueBlock("Ledger deployed", [][2]string{
			{"Contract", ws.host.Contract().Hex()},
			{"Controller", label},
			{"Chain ID", ws.host.ChainID().String()},
			{"Price feed", ws.feed.label},
			{"ETH/USD", fmtPrice(p)},
			{"Minimum", "$" + ws.state.MinimumUSD + " = " + minimumETH(p, ws.ledger.MinimumUSD()) + " ETH"},
		}))
		fmt.Println(ui.Hint("Fund it with: w3fund fund 0.01 --from <wallet>"))
		return nil
	},
}

func runInitWizard() error {
	var names []string
	for _, c := range chain.NewRegistry().All() {
		names = append(names, c.Name)
	}
	result, err := ui.RunWizard(names, cfg.MinimumUSD)
	if err != nil {
		return err
	}
	if result.Cancelled {
		return fmt.Errorf("setup cancelled")
	}

	for key, value := range map[string]string{
		"default_network": result.Network,
		"network_mode":    result.NetworkMode,
		"price_source":    result.PriceSource,
		"minimum_usd":     result.MinimumUSD,
	} {
		if value == "" {
			continue
		}
		if err := cfg.Set(key, value); err != nil {
			return err
		}
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}

func init() {
	initCmd.Flags().StringVar(&initControllerFlag, "controller", "", "wallet, address or ENS name that may withdraw (default: the default wallet)")
	initCmd.Flags().BoolVar(&initForceFlag, "force", false, "replace an existing ledger")
	initCmd.Flags().BoolVarP(&initInteractiveFlag, "interactive", "i", false, "run the setup wizard first")
}
