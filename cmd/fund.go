package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/w3fund/internal/chain"
	"github.com/Mohsinsiddi/w3fund/internal/host"
	"github.com/Mohsinsiddi/w3fund/internal/ledger"
	"github.com/Mohsinsiddi/w3fund/internal/price"
	"github.com/Mohsinsiddi/w3fund/internal/ui"
	"github.com/Mohsinsiddi/w3fund/internal/wallet"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

var (
	fundFromFlag string
	fundRawFlag  bool
	fundDataFlag string
)

var fundCmd = &cobra.Command{
	Use:   "fund <eth-amount>",
	Short: "Contribute ETH to the ledger",
	Long: `Sign and submit a contribution. The amount must be worth at least the
ledger's USD minimum at the current price or the call reverts and the
value is refunded.

By default the transaction calls fund(). --raw sends plain value with no
calldata (the receive path) and --data sends arbitrary calldata, which
reaches fund() through the fallback when the selector is unknown.

Examples:
  w3fund fund 0.01 --from alice
  w3fund fund 0.01 --raw
  w3fund fund 0.01 --data 0xdeadbeef`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := chain.ParseETH(args[0])
		if err != nil {
			return err
		}

		data := host.CallData(host.MethodFund)
		switch {
		case fundRawFlag:
			data = nil
		case fundDataFlag != "":
			if data, err = hexutil.Decode(fundDataFlag); err != nil {
				return fmt.Errorf("--data: %w", err)
			}
		}

		w, signer, err := loadSigner(fundFromFlag)
		if err != nil {
			return err
		}

		ws, err := openWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()

		rcpt, callErr := submitCall(cmd.Context(), ws, signer, amount, data)
		if rcpt == nil {
			return callErr
		}
		if err := ws.Save(); err != nil {
			return err
		}
		if callErr != nil {
			return explainRevert(cmd.Context(), ws, callErr)
		}

		funded := ws.ledger.AmountFunded(w.Addr())
		pairs := [][2]string{
			{"Tx", rcpt.TxHash.Hex()},
			{"Entry point", rcpt.Method},
			{"From", w.Name + " " + w.Address},
			{"Value", chain.FormatETH(amount) + " ETH"},
			{"Total funded", chain.FormatETH(funded) + " ETH"},
		}
		if p, err := priceNow(cmd.Context(), ws.feed.feed); err == nil {
			pairs = append(pairs, [2]string{"Worth", ui.USD(price.FormatUSD(price.Convert(p, amount)))})
		}
		fmt.Println(ui.KeyValueBlock("Contribution accepted", pairs))
		return nil
	},
}

// submitCall signs a ledger call from signer at its current host nonce
// and executes it. A non-nil receipt means the nonce was consumed and the
// state must be saved even if the call reverted.
func submitCall(ctx context.Context, ws *workspace, signer *wallet.Signer, value *big.Int, data []byte) (*host.Receipt, error) {
	nonce := ws.host.NonceOf(signer.Address())
	raw, err := signer.SignCall(ws.host.ChainID(), nonce, ws.host.Contract(), value, data)
	if err != nil {
		return nil, err
	}
	return ws.host.SubmitRaw(ctx, raw)
}

// explainRevert adds the user-facing reason to a reverted call.
func explainRevert(ctx context.Context, ws *workspace, err error) error {
	switch {
	case errors.Is(err, ledger.ErrInsufficientContribution):
		if p, perr := priceNow(ctx, ws.feed.feed); perr == nil {
			fmt.Println(ui.Hint(fmt.Sprintf("The minimum is $%s, currently %s ETH at %s.",
				ws.state.MinimumUSD, minimumETH(p, ws.ledger.MinimumUSD()), fmtPrice(p))))
		}
	case errors.Is(err, ledger.ErrStalePrice):
		fmt.Println(ui.Hint("The price round is older than max_price_age. Try again later or raise it with `w3fund config set max_price_age`."))
	case errors.Is(err, ledger.ErrUnauthorized):
		fmt.Println(ui.Hint("Only the controller " + ws.ledger.Controller().Hex() + " can withdraw."))
	case errors.Is(err, host.ErrTransferRejected):
		fmt.Println(ui.Hint("The payout was rejected, so the ledger rolled back. Nothing was paid and every contribution is still recorded."))
	}
	fmt.Println(ui.Meta("Value refunded; the nonce was used."))
	return err
}

func init() {
	fundCmd.Flags().StringVar(&fundFromFlag, "from", "", "contributing wallet (default: the default wallet)")
	fundCmd.Flags().BoolVar(&fundRawFlag, "raw", false, "send value with empty calldata (receive)")
	fundCmd.Flags().StringVar(&fundDataFlag, "data", "", "hex calldata to send instead of fund()")
	fundCmd.MarkFlagsMutuallyExclusive("raw", "data")
}
