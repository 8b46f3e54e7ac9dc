package cmd

import (
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/w3fund/internal/host"
	"github.com/Mohsinsiddi/w3fund/internal/ui"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

var selectorCmd = &cobra.Command{
	Use:   "selector <signature-or-calldata>",
	Short: "Compute a 4-byte selector and show which ledger entry point it reaches",
	Long: `Compute a 4-byte function selector from a signature, or take hex
calldata, and show which ledger entry point it dispatches to. Unknown
selectors reach the fallback, which records a contribution.

Examples:
  w3fund selector "fund()"              # → 0xb60d4288, fund
  w3fund selector "withdraw()"          # → 0x3ccfd60b, withdraw
  w3fund selector "donate(uint256 x)"   # → fallback
  w3fund selector 0x                    # → receive`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]

		if strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X") {
			data, err := hexutil.Decode(input)
			if err != nil {
				return fmt.Errorf("invalid calldata: %w", err)
			}
			fmt.Println(ui.KeyValueBlock("Calldata route", [][2]string{
				{"Calldata", input},
				{"Entry point", ui.Val(host.RouteOf(data))},
			}))
			return nil
		}

		sig := normalizeSignature(input)
		sel := host.Selector(sig)
		fmt.Println(ui.KeyValueBlock("Function selector", [][2]string{
			{"Signature", sig},
			{"Selector", ui.Val(hexutil.Encode(sel))},
			{"Entry point", host.RouteOf(sel)},
		}))
		return nil
	},
}

// normalizeSignature removes parameter names, keeping only types.
// "transfer(address to, uint256 amount)" → "transfer(address,uint256)"
func normalizeSignature(sig string) string {
	parenIdx := strings.Index(sig, "(")
	if parenIdx < 0 || !strings.HasSuffix(sig, ")") {
		return sig
	}

	name := strings.TrimSpace(sig[:parenIdx])
	paramStr := sig[parenIdx+1 : len(sig)-1]
	if strings.TrimSpace(paramStr) == "" {
		return name + "()"
	}

	var types []string
	for _, p := range strings.Split(paramStr, ",") {
		// First word is the type.
		if parts := strings.Fields(p); len(parts) > 0 {
			types = append(types, parts[0])
		}
	}
	return name + "(" + strings.Join(types, ",") + ")"
}
