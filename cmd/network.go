package cmd

import (
	"fmt"
	"slices"
	"time"

	"github.com/Mohsinsiddi/w3fund/internal/chain"
	"github.com/Mohsinsiddi/w3fund/internal/config"
	"github.com/Mohsinsiddi/w3fund/internal/rpc"
	"github.com/Mohsinsiddi/w3fund/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Manage networks and their price feeds",
}

var networkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List supported chains and their ETH/USD aggregators",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := chain.NewRegistry()
		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 10},
			{Title: "Display", Width: 12},
			{Title: "Chain ID", Width: 10, Right: true},
			{Title: "Testnet", Width: 14},
			{Title: "Feed (" + cfg.NetworkMode + ")", Width: 44},
		})

		for _, c := range reg.All() {
			name := c.Name
			if c.Name == cfg.DefaultNetwork {
				name = "* " + name
			}
			t.AddRow(ui.Row{
				ui.ChainName(name),
				c.DisplayName,
				fmt.Sprintf("%d", c.ChainID),
				c.TestnetName,
				feedLabel(c, cfg.NetworkMode),
			})
		}

		fmt.Println(t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("%d chains, * = default", len(reg.All()))))
		return nil
	},
}

var networkUseCmd = &cobra.Command{
	Use:   "use <chain>",
	Short: "Set the default network",
	Long: `Set the default chain and persist it to config. With price_source
chainlink the aggregator on this chain prices every contribution.

When combined with --testnet or --mainnet the network mode is also persisted.

Examples:
  w3fund network use base              # set default chain, keep current mode
  w3fund network use base --testnet    # set default chain + persist testnet mode`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := chain.NewRegistry().GetByName(args[0])
		if err != nil {
			return fmt.Errorf("unknown chain %q; run `w3fund network list` to see all chains", args[0])
		}

		cfg.DefaultNetwork = c.Name
		if err := cfg.Save(); err != nil {
			return err
		}

		fmt.Println(ui.Success(fmt.Sprintf("Default network set to %s (%s)", ui.ChainName(c.Name), cfg.NetworkMode)))
		if _, err := c.PriceFeed(cfg.NetworkMode); err != nil && cfg.PriceSource == config.PriceSourceChainlink {
			fmt.Println(ui.Warn("No ETH/USD aggregator on this chain in " + cfg.NetworkMode + " mode; set price_feed or change price_source."))
		}
		return nil
	},
}

var networkPingCmd = &cobra.Command{
	Use:   "ping [chain]",
	Short: "Check every RPC of a chain: latency, block and chain ID",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := cfg.DefaultNetwork
		if len(args) == 1 {
			name = args[0]
		}
		c, err := chain.NewRegistry().GetByName(name)
		if err != nil {
			return err
		}
		if c.IsLocal() {
			fmt.Println(ui.Info("The local host runs in-process; nothing to ping."))
			return nil
		}

		want := c.ChainIDFor(cfg.NetworkMode)
		urls := slices.Concat(cfg.GetRPCs(c.Name), c.RPCs(cfg.NetworkMode))
		sp := ui.NewSpinner(fmt.Sprintf("Probing %d RPCs…", len(urls)))
		sp.Start()
		probes := rpc.ProbeAll(cmd.Context(), urls, config.RPCDialTimeout)
		sp.StopWithMsg(ui.Meta(fmt.Sprintf("%d of %d RPCs eligible", len(rpc.Eligible(probes, want)), len(urls))))

		algo, err := rpc.ParseAlgorithm(cfg.RPCAlgorithm)
		if err != nil {
			return err
		}
		winner, pickErr := rpc.Pick(probes, algo, want)

		t := ui.NewTable([]ui.Column{
			{Title: "RPC", Width: 44},
			{Title: "Latency", Width: 10, Right: true},
			{Title: "Block", Width: 12, Right: true},
			{Title: "Chain ID", Width: 10, Right: true},
			{Title: "", Width: 8},
		})
		for i := range probes {
			p := &probes[i]
			if !p.OK() {
				logger.Debug("probe failed", zap.String("url", p.URL), zap.Error(p.Err))
				t.AddRow(ui.Row{p.URL, ui.Err("down"), "", "", ""})
				continue
			}
			mark := ""
			switch {
			case p == winner:
				mark = ui.Success("picked")
			case p.ChainID != want:
				mark = ui.Warn("chain")
			}
			t.AddRow(ui.Row{
				p.URL,
				p.Latency.Round(time.Millisecond).String(),
				fmt.Sprintf("%d", p.Block),
				fmt.Sprintf("%d", p.ChainID),
				mark,
			})
		}
		fmt.Println(t.Render())
		if pickErr != nil {
			fmt.Println(ui.Warn(fmt.Sprintf("No usable RPC for %s/%s (chain %d)", c.Name, cfg.NetworkMode, want)))
		} else {
			fmt.Println(ui.Meta(fmt.Sprintf("Algorithm %s, expecting chain %d", algo, want)))
		}
		return nil
	},
}

// feedLabel shows the aggregator address for c in mode, or why there is none.
func feedLabel(c chain.Chain, mode string) string {
	if c.IsLocal() {
		return "static"
	}
	addr, err := c.PriceFeed(mode)
	if err != nil {
		return "-"
	}
	return addr.Hex()
}

func init() {
	networkCmd.AddCommand(networkListCmd, networkUseCmd, networkPingCmd)
}
