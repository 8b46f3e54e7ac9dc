package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Mohsinsiddi/w3fund/internal/chain"
	"github.com/Mohsinsiddi/w3fund/internal/ui"
	"github.com/Mohsinsiddi/w3fund/internal/wallet"
	"github.com/spf13/cobra"
)

var (
	receiptFromFlag  string
	receiptOutFlag   string
	receiptCheckFlag bool
)

var receiptCmd = &cobra.Command{
	Use:   "receipt",
	Short: "Sign and verify contribution receipts",
	Long: `A receipt is a contributor's EIP-191 signed statement of how much they
have funded the ledger, useful as off-chain proof of contribution.`,
}

var receiptSignCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign a receipt for the wallet's recorded contribution",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, _, err := loadSigner(receiptFromFlag)
		if err != nil {
			return err
		}

		ws, err := openWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()

		amount := ws.ledger.AmountFunded(w.Addr())
		if amount.Sign() == 0 {
			return fmt.Errorf("%s has no recorded contribution", w.Name)
		}

		r := wallet.Receipt{
			Ledger:      ws.host.Contract(),
			ChainID:     ws.host.ChainID().Int64(),
			Contributor: w.Addr(),
			Amount:      amount,
			IssuedAt:    time.Now().UTC().Format(time.RFC3339),
		}
		sr, err := wallet.SignReceipt(w, newWalletManager().Keystore(), r)
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(sr, "", "  ")
		if err != nil {
			return err
		}
		if receiptOutFlag == "" {
			fmt.Println(string(data))
			return nil
		}
		if err := os.WriteFile(receiptOutFlag, append(data, '\n'), 0o644); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Receipt for %s ETH written to %s", chain.FormatETH(amount), receiptOutFlag)))
		return nil
	},
}

var receiptVerifyCmd = &cobra.Command{
	Use:   "verify <file|->",
	Short: "Verify a signed receipt",
	Long: `Check that a receipt was signed by its contributor. With --check the
amount is also compared against the deployed ledger's current record.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sr, err := readReceipt(args[0])
		if err != nil {
			return err
		}
		if err := wallet.VerifyReceipt(sr); err != nil {
			return fmt.Errorf("receipt invalid: %w", err)
		}

		r := sr.Receipt
		fmt.Println(ui.KeyValueBlock("Receipt", [][2]string{
			{"Contributor", r.Contributor.Hex()},
			{"Amount", chain.FormatETH(r.Amount) + " ETH"},
			{"Ledger", r.Ledger.Hex()},
			{"Chain ID", fmt.Sprintf("%d", r.ChainID)},
			{"Issued", r.IssuedAt},
		}))
		fmt.Println(ui.Success("Signature valid"))

		if !receiptCheckFlag {
			return nil
		}
		ws, err := openWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()
		if r.Ledger != ws.host.Contract() {
			fmt.Println(ui.Warn("Receipt is for a different ledger: " + ws.host.Contract().Hex()))
			return nil
		}
		if now := ws.ledger.AmountFunded(r.Contributor); now.Cmp(r.Amount) != 0 {
			fmt.Println(ui.Warn(fmt.Sprintf("Ledger now records %s ETH (settled or topped up since)", chain.FormatETH(now))))
			return nil
		}
		fmt.Println(ui.Success("Matches the ledger"))
		return nil
	},
}

func readReceipt(path string) (*wallet.SignedReceipt, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	var sr wallet.SignedReceipt
	if err := json.Unmarshal(data, &sr); err != nil {
		return nil, fmt.Errorf("parsing receipt: %w", err)
	}
	if sr.Receipt.Amount == nil || sr.Signature == "" {
		return nil, errors.New("parsing receipt: missing amount or signature")
	}
	return &sr, nil
}

func init() {
	receiptSignCmd.Flags().StringVar(&receiptFromFlag, "from", "", "contributor wallet (default: the default wallet)")
	receiptSignCmd.Flags().StringVarP(&receiptOutFlag, "out", "o", "", "write the receipt to a file")
	receiptVerifyCmd.Flags().BoolVar(&receiptCheckFlag, "check", false, "compare against the deployed ledger")
	receiptCmd.AddCommand(receiptSignCmd, receiptVerifyCmd)
}
