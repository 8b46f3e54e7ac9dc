package cmd

import (
	"fmt"

	"github.com/Mohsinsiddi/w3fund/internal/chain"
	"github.com/Mohsinsiddi/w3fund/internal/host"
	"github.com/Mohsinsiddi/w3fund/internal/ui"
	"github.com/spf13/cobra"
)

var (
	withdrawFromFlag    string
	withdrawCheaperFlag bool
	withdrawYesFlag     bool
)

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Pay the whole pool to the controller",
	Long: `Settle the ledger: pay the full balance to the controller, zero every
contributor and clear the contributor list. Only the controller may call
it. If the payout fails nothing changes.

--cheaper calls cheaperWithdraw(), which has the same outcome.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, signer, err := loadSigner(withdrawFromFlag)
		if err != nil {
			return err
		}

		ws, err := openWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()

		pool := ws.ledger.Balance()
		count := ws.ledger.ContributorCount()
		if !withdrawYesFlag {
			prompt := fmt.Sprintf("Pay %s ETH from %d contributor(s) to %s?", chain.FormatETH(pool), count, ui.TruncateAddr(ws.ledger.Controller().Hex()))
			if !ui.ConfirmDanger(prompt) {
				fmt.Println(ui.Meta("Cancelled."))
				return nil
			}
		}

		method := host.MethodWithdraw
		if withdrawCheaperFlag {
			method = host.MethodCheaperWithdraw
		}
		rcpt, callErr := submitCall(cmd.Context(), ws, signer, nil, host.CallData(method))
		if rcpt == nil {
			return callErr
		}
		if err := ws.Save(); err != nil {
			return err
		}
		if callErr != nil {
			return explainRevert(cmd.Context(), ws, callErr)
		}

		fmt.Println(ui.KeyValueBlock("Ledger settled", [][2]string{
			{"Tx", rcpt.TxHash.Hex()},
			{"Entry point", rcpt.Method},
			{"Paid", chain.FormatETH(pool) + " ETH"},
			{"Contributors", fmt.Sprintf("%d cleared", count)},
			{"Controller", w.Name + " " + w.Address},
			{"New balance", chain.FormatETH(ws.host.BalanceOf(w.Addr())) + " ETH"},
		}))
		return nil
	},
}

func init() {
	withdrawCmd.Flags().StringVar(&withdrawFromFlag, "from", "", "calling wallet (default: the default wallet)")
	withdrawCmd.Flags().BoolVar(&withdrawCheaperFlag, "cheaper", false, "use cheaperWithdraw()")
	withdrawCmd.Flags().BoolVarP(&withdrawYesFlag, "yes", "y", false, "skip the confirmation prompt")
}
