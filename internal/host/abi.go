package host

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"golang.org/x/crypto/sha3"
)

// Ledger entry point signatures.
const (
	MethodFund            = "fund()"
	MethodWithdraw        = "withdraw()"
	MethodCheaperWithdraw = "cheaperWithdraw()"
)

// LedgerABI is the ledger's external interface.
const LedgerABI = `[
	{"type":"function","name":"fund","stateMutability":"payable","inputs":[],"outputs":[]},
	{"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"cheaperWithdraw","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"receive","stateMutability":"payable"},
	{"type":"fallback","stateMutability":"payable"}
]`

var ledgerABI = mustParseABI(LedgerABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("host: invalid ledger ABI: " + err.Error())
	}
	return parsed
}

// Selector computes the 4-byte function selector for a canonical signature.
// It accepts signatures outside the ledger ABI, which route to the fallback.
func Selector(sig string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(sig))
	return h.Sum(nil)[:4]
}

// CallData returns calldata for a zero-argument entry point.
func CallData(sig string) []byte {
	name := strings.TrimSuffix(sig, "()")
	if data, err := ledgerABI.Pack(name); err == nil {
		return data
	}
	return Selector(sig)
}

// route names the entry point a piece of calldata dispatches to.
type route int

const (
	routeReceive route = iota
	routeFund
	routeWithdraw
	routeCheaperWithdraw
	routeFallback
)

func (r route) String() string {
	switch r {
	case routeReceive:
		return "receive"
	case routeFund:
		return "fund"
	case routeWithdraw:
		return "withdraw"
	case routeCheaperWithdraw:
		return "cheaperWithdraw"
	default:
		return "fallback"
	}
}

func (r route) payable() bool {
	switch r {
	case routeReceive:
		return ledgerABI.Receive.IsPayable()
	case routeFallback:
		return ledgerABI.Fallback.IsPayable()
	}
	m, ok := ledgerABI.Methods[r.String()]
	return ok && m.IsPayable()
}

func dispatch(data []byte) route {
	if len(data) == 0 {
		return routeReceive
	}
	if len(data) < 4 {
		return routeFallback
	}
	m, err := ledgerABI.MethodById(data[:4])
	if err != nil {
		return routeFallback
	}
	switch m.Name {
	case "fund":
		return routeFund
	case "withdraw":
		return routeWithdraw
	case "cheaperWithdraw":
		return routeCheaperWithdraw
	}
	return routeFallback
}

// RouteOf names the ledger entry point that data dispatches to.
func RouteOf(data []byte) string {
	return dispatch(data).String()
}
