package cmd

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"slices"

	"github.com/Mohsinsiddi/w3fund/internal/chain"
	"github.com/Mohsinsiddi/w3fund/internal/config"
	"github.com/Mohsinsiddi/w3fund/internal/ens"
	"github.com/Mohsinsiddi/w3fund/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var faucetOpen bool

var faucetCmd = &cobra.Command{
	Use:   "faucet <wallet|address|ens> <eth-amount>",
	Short: "Credit test ETH to an account on the local host",
	Long: `Mint test ETH into an account on the local host so it can fund the
ledger. The account may be a wallet name, a raw address or an ENS name.

For real testnet ETH (to read Chainlink feeds or check on-chain balances)
see: w3fund faucet links

Examples:
  w3fund faucet alice 1
  w3fund faucet 0x70997970C51812dc3A010C7d01b50e0d17dc79C8 0.5`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, label, err := resolveAccount(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		amount, err := chain.ParseETH(args[1])
		if err != nil {
			return err
		}

		ws, err := openWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()

		ws.host.Credit(addr, amount)
		if err := ws.Save(); err != nil {
			return err
		}
		logger.Debug("faucet credit", zap.Stringer("to", addr), zap.Stringer("wei", amount))

		fmt.Println(ui.Success(fmt.Sprintf("Credited %s ETH to %s", chain.FormatETH(amount), label)))
		fmt.Println(ui.Meta("Balance: " + chain.FormatETH(ws.host.BalanceOf(addr)) + " ETH"))
		return nil
	},
}

var faucetLinksCmd = &cobra.Command{
	Use:   "links [chain]",
	Short: "Show public testnet faucet links",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := chain.NewRegistry()
		if len(args) == 1 {
			return showChainFaucet(reg, args[0])
		}
		return listAllFaucets(reg)
	},
}

// resolveAccount accepts a wallet name, a hex address or an ENS name. An
// empty arg means the default wallet.
func resolveAccount(ctx context.Context, arg string) (common.Address, string, error) {
	switch {
	case common.IsHexAddress(arg):
		a := common.HexToAddress(arg)
		return a, a.Hex(), nil
	case ens.IsName(arg):
		a, err := resolveENS(ctx, arg)
		if err != nil {
			return common.Address{}, "", err
		}
		return a, arg + " (" + ui.TruncateAddr(a.Hex()) + ")", nil
	}
	w, err := resolveWallet(arg)
	if err != nil {
		return common.Address{}, "", err
	}
	return w.Addr(), w.Name + " (" + ui.TruncateAddr(w.Address) + ")", nil
}

// resolveENS looks name up on Ethereum in the configured network mode.
func resolveENS(ctx context.Context, name string) (common.Address, error) {
	c, err := chain.NewRegistry().GetByName("ethereum")
	if err != nil {
		return common.Address{}, err
	}
	client, err := dialBest(ctx, slices.Concat(cfg.GetRPCs(c.Name), c.RPCs(cfg.NetworkMode)), c.ChainIDFor(cfg.NetworkMode))
	if err != nil {
		return common.Address{}, fmt.Errorf("resolving %s: %w", name, err)
	}
	defer client.Close()

	rctx, cancel := context.WithTimeout(ctx, config.PriceReadTimeout)
	defer cancel()
	addr, err := ens.NewResolver(client).Resolve(rctx, name)
	if err != nil {
		return common.Address{}, err
	}
	logger.Debug("ens resolved", zap.String("name", name), zap.Stringer("address", addr))
	return addr, nil
}

func showChainFaucet(reg *chain.Registry, name string) error {
	c, err := reg.GetByName(name)
	if err != nil {
		return fmt.Errorf("unknown chain %q; run `w3fund network list` to see all chains", name)
	}

	fmt.Println()
	fmt.Printf("  %s  %s\n", ui.ChainName(c.Name), ui.Meta("testnet: "+c.TestnetName))
	fmt.Println()

	if c.FaucetURL == "" {
		if c.IsLocal() {
			fmt.Println(ui.Info("The local host has a built-in faucet: w3fund faucet <wallet> <eth>"))
		} else {
			fmt.Println(ui.Warn("No dedicated faucet for this chain. Bridge assets from its parent network."))
		}
		return nil
	}

	fmt.Printf("  %s  %s\n", ui.Meta("Faucet  :"), ui.Addr(c.FaucetURL))
	fmt.Printf("  %s  %s\n", ui.Meta("Currency:"), c.NativeCurrency)
	fmt.Printf("  %s  %s\n\n", ui.Meta("Explorer:"), ui.Addr(c.TestnetExplorer))

	if faucetOpen {
		fmt.Println(ui.Meta("  Opening in browser…"))
		openBrowser(c.FaucetURL)
	} else {
		fmt.Println(ui.Hint("  Tip: add --open to launch in your browser."))
	}
	return nil
}

func listAllFaucets(reg *chain.Registry) error {
	t := ui.NewTable([]ui.Column{
		{Title: "Chain", Width: 12},
		{Title: "Testnet", Width: 18},
		{Title: "Currency", Width: 10},
		{Title: "Faucet URL", Width: 52},
	})
	for _, c := range reg.All() {
		faucet := c.FaucetURL
		switch {
		case c.IsLocal():
			faucet = "w3fund faucet <wallet> <eth>"
		case faucet == "":
			faucet = "(bridge from parent chain)"
		}
		t.AddRow(ui.Row{c.Name, c.TestnetName, c.NativeCurrency, faucet})
	}
	fmt.Println(t.Render())
	fmt.Println(ui.Info("Tip: run `w3fund faucet links <chain> --open` to launch a faucet in your browser."))
	return nil
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	cmd.Start() //nolint:errcheck
}

func init() {
	faucetLinksCmd.Flags().BoolVar(&faucetOpen, "open", false, "open the faucet URL in your default browser")
	faucetCmd.AddCommand(faucetLinksCmd)
}
