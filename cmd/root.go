package cmd

import (
	"fmt"
	"os"

	"github.com/Mohsinsiddi/w3fund/internal/config"
	"github.com/Mohsinsiddi/w3fund/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/w3fund/cmd.Version=1.2.3" .
var Version = ui.Version

var (
	cfgDir  string
	cfg     *config.Config
	logger  = zap.NewNop()
	verbose bool
	testnet bool
	mainnet bool
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "w3fund",
	Short: "A crowdfunding ledger with a USD minimum",
	Long: `w3fund runs a crowdfunding ledger on a local execution host.

  Contributors fund it with ETH, each contribution must be worth at least
  the USD minimum at the current ETH/USD price, and only the controller
  can pay the pool out. Prices come from a static value, a Chainlink
  aggregator or CoinGecko.

Global flags --testnet and --mainnet override the configured network mode
(used to pick the Chainlink aggregator) for a single invocation.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		if verbose {
			logger, err = zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("creating logger: %w", err)
			}
		}
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if testnet {
			cfg.NetworkMode = "testnet"
		}
		if mainnet {
			cfg.NetworkMode = "mainnet"
		}
		logger.Debug("config loaded",
			zap.String("dir", cfg.Dir()),
			zap.String("price_source", cfg.PriceSource),
			zap.String("network", cfg.DefaultNetwork),
			zap.String("mode", cfg.NetworkMode))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Err(err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", "", "config directory (default: $"+config.EnvDir+" or ~/.w3fund)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log ledger and host events")
	rootCmd.PersistentFlags().BoolVar(&testnet, "testnet", false, "use testnet price feeds")
	rootCmd.PersistentFlags().BoolVar(&mainnet, "mainnet", false, "use mainnet price feeds")
	rootCmd.MarkFlagsMutuallyExclusive("testnet", "mainnet")

	rootCmd.AddCommand(
		initCmd,
		walletCmd,
		accountCmd,
		faucetCmd,
		fundCmd,
		withdrawCmd,
		statusCmd,
		priceCmd,
		convertCmd,
		selectorCmd,
		receiptCmd,
		networkCmd,
		configCmd,
	)
}
