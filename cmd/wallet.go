package cmd

import (
	"context"
	"fmt"
	"slices"

	"github.com/Mohsinsiddi/w3fund/internal/chain"
	"github.com/Mohsinsiddi/w3fund/internal/ui"
	"github.com/Mohsinsiddi/w3fund/internal/wallet"
	"github.com/spf13/cobra"
)

var (
	walletKeyFlag      string
	walletGenerateFlag bool
	walletYesFlag      bool
	walletOnchainFlag  bool
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage contributor and controller wallets",
}

var walletAddCmd = &cobra.Command{
	Use:   "add <name> [address]",
	Short: "Add a wallet",
	Long: `Add a wallet by private key, generate a new one, or track an address.

Examples:
  w3fund wallet add alice --key 0xac09…ff80   # signing wallet
  w3fund wallet add bob --generate            # fresh key, shown once
  w3fund wallet add carol 0x7099…79C8         # watch-only`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		mgr := newWalletManager()

		switch {
		case walletGenerateFlag:
			w, hexKey, err := mgr.Generate(name)
			if err != nil {
				return err
			}
			fmt.Println()
			fmt.Printf("  %s  %s\n", ui.Meta("Wallet :"), ui.Val(w.Name))
			fmt.Printf("  %s  %s\n\n", ui.Meta("Address:"), ui.Addr(w.Address))
			fmt.Println(ui.DangerBox(
				ui.Warn("SAVE YOUR PRIVATE KEY. It is shown only once.") + "\n\n" +
					ui.Val(hexKey) + "\n\n" +
					ui.Hint("Re-export later with: w3fund wallet export " + name),
			))

		case walletKeyFlag != "":
			if err := mgr.AddWithKey(name, walletKeyFlag); err != nil {
				return err
			}
			w, _ := mgr.Get(name)
			fmt.Println(ui.Success(fmt.Sprintf("Signing wallet %q added: %s", name, ui.Addr(w.Address))))

		default:
			if len(args) < 2 {
				return fmt.Errorf("address required for a watch-only wallet\n  Usage: w3fund wallet add <name> <address>\n  Or:    w3fund wallet add <name> --key <private-key> | --generate")
			}
			w := &wallet.Wallet{Address: args[1], Type: wallet.TypeWatchOnly}
			if err := mgr.Add(name, w); err != nil {
				return err
			}
			fmt.Println(ui.Success(fmt.Sprintf("Watch-only wallet %q added: %s", name, ui.Addr(w.Address))))
		}

		fmt.Println(ui.Hint(fmt.Sprintf("Give it test ETH with: w3fund faucet %s 1", name)))
		return nil
	},
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all wallets",
	RunE: func(cmd *cobra.Command, args []string) error {
		wallets := newWalletManager().List()
		if len(wallets) == 0 {
			fmt.Println(ui.Info("No wallets configured yet."))
			fmt.Println(ui.Hint("Add one with: w3fund wallet add alice --generate"))
			return nil
		}

		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 16},
			{Title: "Address", Width: 42},
			{Title: "Type", Width: 12},
			{Title: "Default", Width: 8},
		})
		for _, w := range wallets {
			def := ""
			if w.IsDefault || w.Name == cfg.DefaultWallet {
				def = "✓"
			}
			t.AddRow(ui.Row{w.Name, w.Address, walletTypeLabel(w.Type), def})
		}
		fmt.Println(t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("%d wallet(s) configured", len(wallets))))
		return nil
	},
}

var walletUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Set the default wallet (interactive picker without a name)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := newWalletManager()

		var name string
		if len(args) == 1 {
			name = args[0]
		} else {
			items := make([]ui.PickerItem, 0)
			for _, w := range mgr.List() {
				items = append(items, ui.PickerItem{
					Label:    w.Name,
					SubLabel: ui.TruncateAddr(w.Address) + "  " + walletTypeLabel(w.Type),
					Value:    w.Name,
				})
			}
			picked, err := ui.PickItem("Default wallet", items)
			if err != nil {
				return err
			}
			if picked == "" {
				fmt.Println(ui.Meta("Cancelled."))
				return nil
			}
			name = picked
		}

		if err := mgr.SetDefault(name); err != nil {
			return err
		}
		cfg.DefaultWallet = name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Default wallet set to %q.", name)))
		return nil
	},
}

var walletRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a wallet and its stored key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if !walletYesFlag && !ui.Confirm(fmt.Sprintf("Remove wallet %q and delete its key?", name)) {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}
		if err := newWalletManager().Remove(name); err != nil {
			return err
		}
		if cfg.DefaultWallet == name {
			cfg.DefaultWallet = ""
			if err := cfg.Save(); err != nil {
				return err
			}
		}
		fmt.Println(ui.Success(fmt.Sprintf("Wallet %q removed.", name)))
		return nil
	},
}

var walletExportCmd = &cobra.Command{
	Use:   "export <name>",
	Short: "Show the private key of a signing wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if !ui.ConfirmDanger(fmt.Sprintf("Reveal the private key of %q?", name)) {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}
		hexKey, err := newWalletManager().ExportKey(name)
		if err != nil {
			return err
		}
		fmt.Println(ui.DangerBox(ui.Warn("PRIVATE KEY. Do not share it.") + "\n\n" + ui.Val(hexKey)))
		return nil
	},
}

var walletBalanceCmd = &cobra.Command{
	Use:   "balance [name]",
	Short: "Show a wallet's balance on the local host (or on-chain with --onchain)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := resolveWallet(firstArg(args))
		if err != nil {
			return err
		}

		if walletOnchainFlag {
			return showOnchainBalance(cmd.Context(), w)
		}

		ws, err := openWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()

		bal := ws.host.BalanceOf(w.Addr())
		funded := ws.ledger.AmountFunded(w.Addr())
		fmt.Println(ui.KeyValueBlock(w.Name, [][2]string{
			{"Address", w.Address},
			{"Balance", chain.WeiToETH(bal) + " ETH"},
			{"Nonce", fmt.Sprintf("%d", ws.host.NonceOf(w.Addr()))},
			{"Funded", chain.WeiToETH(funded) + " ETH"},
		}))
		return nil
	},
}

func showOnchainBalance(ctx context.Context, w *wallet.Wallet) error {
	c, err := chain.NewRegistry().GetByName(cfg.DefaultNetwork)
	if err != nil {
		return fmt.Errorf("default_network %q: %w", cfg.DefaultNetwork, err)
	}
	client, err := dialBest(ctx, slices.Concat(cfg.GetRPCs(c.Name), c.RPCs(cfg.NetworkMode)), c.ChainIDFor(cfg.NetworkMode))
	if err != nil {
		return err
	}
	defer client.Close()

	bal, err := client.BalanceAt(ctx, w.Addr())
	if err != nil {
		return err
	}
	fmt.Println(ui.KeyValueBlock(w.Name, [][2]string{
		{"Address", w.Address},
		{"Network", c.Name + "/" + cfg.NetworkMode},
		{"Balance", bal.ETH + " " + c.NativeCurrency},
		{"RPC", client.URL()},
	}))
	return nil
}

// walletTypeLabel maps an internal wallet type to a user-facing label.
func walletTypeLabel(t string) string {
	if t == wallet.TypeSigning {
		return "read-write"
	}
	return t
}

// newWalletManager creates a Manager backed by wallets.json in the config dir.
func newWalletManager() *wallet.Manager {
	return wallet.NewManager(wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath())))
}

// resolveWallet returns the named wallet, falling back to the configured
// default wallet.
func resolveWallet(name string) (*wallet.Wallet, error) {
	if name == "" {
		name = cfg.DefaultWallet
	}
	w, err := newWalletManager().Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("%w (run `w3fund wallet list` or `w3fund wallet use <name>`)", err)
	}
	return w, nil
}

// loadSigner resolves a wallet that can sign ledger calls.
func loadSigner(name string) (*wallet.Wallet, *wallet.Signer, error) {
	w, err := resolveWallet(name)
	if err != nil {
		return nil, nil, err
	}
	if w.Type != wallet.TypeSigning {
		return nil, nil, fmt.Errorf("%w: %q cannot sign\n  To add a signing wallet: w3fund wallet add <name> --key <private-key>", wallet.ErrWatchOnly, w.Name)
	}
	mgr := newWalletManager()
	return w, wallet.NewSigner(w, mgr.Keystore()), nil
}

func firstArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func init() {
	walletAddCmd.Flags().StringVar(&walletKeyFlag, "key", "", "private key (hex) for a signing wallet")
	walletAddCmd.Flags().BoolVar(&walletGenerateFlag, "generate", false, "generate a new signing key")
	walletAddCmd.MarkFlagsMutuallyExclusive("key", "generate")
	walletRemoveCmd.Flags().BoolVarP(&walletYesFlag, "yes", "y", false, "skip the confirmation prompt")
	walletBalanceCmd.Flags().BoolVar(&walletOnchainFlag, "onchain", false, "query the default network instead of the local host")

	walletCmd.AddCommand(walletAddCmd, walletListCmd, walletUseCmd, walletRemoveCmd, walletExportCmd, walletBalanceCmd)
}
