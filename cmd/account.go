package cmd

import (
	"fmt"

	"github.com/Mohsinsiddi/w3fund/internal/chain"
	"github.com/Mohsinsiddi/w3fund/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var accountOffFlag bool

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Inspect and configure accounts on the local host",
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List host accounts with balance and nonce",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()

		names := make(map[string]string)
		for _, w := range newWalletManager().List() {
			names[w.Addr().Hex()] = w.Name
		}

		t := ui.NewTable([]ui.Column{
			{Title: "Address", Width: 42},
			{Title: "Wallet", Width: 12},
			{Title: "Balance (ETH)", Width: 22, Right: true},
			{Title: "Nonce", Width: 6, Right: true},
			{Title: "Funded (ETH)", Width: 22, Right: true},
		})
		for _, addr := range ws.host.Accounts() {
			name := names[addr.Hex()]
			switch addr {
			case ws.host.Contract():
				name = "(ledger)"
			case ws.ledger.Controller():
				name += " ★"
			}
			t.AddRow(ui.Row{
				addr.Hex(),
				name,
				chain.FormatETH(ws.host.BalanceOf(addr)),
				fmt.Sprintf("%d", ws.host.NonceOf(addr)),
				chain.FormatETH(ws.ledger.AmountFunded(addr)),
			})
		}
		fmt.Println(t.Render())
		fmt.Println(ui.Meta("★ = controller"))
		return nil
	},
}

var accountRejectCmd = &cobra.Command{
	Use:   "reject <wallet|address|ens>",
	Short: "Make an account refuse incoming ETH",
	Long: `Mark an account as rejecting incoming transfers, like a contract with
no payable receive. A withdraw paying a rejecting controller reverts and
the ledger rolls back. --off clears the flag.

Examples:
  w3fund account reject owner
  w3fund account reject owner --off`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, label, err := resolveAccount(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		ws, err := openWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()

		ws.host.SetRejecting(addr, !accountOffFlag)
		if err := ws.Save(); err != nil {
			return err
		}
		logger.Debug("reject flag", zap.Stringer("account", addr), zap.Bool("rejecting", !accountOffFlag))

		if accountOffFlag {
			fmt.Println(ui.Success(label + " accepts transfers again"))
		} else {
			fmt.Println(ui.Warn(label + " now rejects incoming transfers"))
		}
		return nil
	},
}

func init() {
	accountRejectCmd.Flags().BoolVar(&accountOffFlag, "off", false, "accept transfers again")
	accountCmd.AddCommand(accountListCmd, accountRejectCmd)
}
