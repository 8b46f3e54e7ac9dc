// Package ens resolves ENS names so contributors and controllers can be
// given as "alice.eth" instead of a hex address.
package ens

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// RegistryAddress is the ENS registry on Ethereum mainnet and Sepolia.
var RegistryAddress = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

// Errors.
var (
	ErrNoResolver = errors.New("no resolver set")
	ErrNoAddress  = errors.New("no address record")
)

const resolverABIJSON = `[
	{"type":"function","name":"resolver","stateMutability":"view",
	 "inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"addr","stateMutability":"view",
	 "inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"name","stateMutability":"view",
	 "inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"string"}]}
]`

var resolverABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(resolverABIJSON))
	if err != nil {
		panic("ens: invalid ABI: " + err.Error())
	}
	return parsed
}()

// IsName reports whether s looks like an ENS name rather than an address
// or a wallet name.
func IsName(s string) bool {
	return strings.Contains(s, ".") && !strings.HasPrefix(s, "0x") && !strings.HasSuffix(s, ".")
}

// Resolver looks names up through an ENS registry.
type Resolver struct {
	caller   ethereum.ContractCaller
	registry common.Address
}

// NewResolver returns a Resolver using the canonical registry.
func NewResolver(caller ethereum.ContractCaller) *Resolver {
	return &Resolver{caller: caller, registry: RegistryAddress}
}

// Resolve returns the address name points to.
func (r *Resolver) Resolve(ctx context.Context, name string) (common.Address, error) {
	node := Namehash(name)
	res, err := r.resolverOf(ctx, node)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", name, err)
	}
	out, err := r.call(ctx, res, "addr", node)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", name, err)
	}
	addr, ok := out[0].(common.Address)
	if !ok || addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%s: %w", name, ErrNoAddress)
	}
	return addr, nil
}

// Reverse returns the primary name recorded for addr, or "" when none is set.
func (r *Resolver) Reverse(ctx context.Context, addr common.Address) (string, error) {
	node := Namehash(strings.ToLower(strings.TrimPrefix(addr.Hex(), "0x")) + ".addr.reverse")
	res, err := r.resolverOf(ctx, node)
	if errors.Is(err, ErrNoResolver) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	out, err := r.call(ctx, res, "name", node)
	if err != nil {
		return "", err
	}
	name, _ := out[0].(string)
	return name, nil
}

func (r *Resolver) resolverOf(ctx context.Context, node common.Hash) (common.Address, error) {
	out, err := r.call(ctx, r.registry, "resolver", node)
	if err != nil {
		return common.Address{}, err
	}
	res, ok := out[0].(common.Address)
	if !ok || res == (common.Address{}) {
		return common.Address{}, ErrNoResolver
	}
	return res, nil
}

func (r *Resolver) call(ctx context.Context, to common.Address, method string, node common.Hash) ([]interface{}, error) {
	data, err := resolverABI.Pack(method, [32]byte(node))
	if err != nil {
		return nil, fmt.Errorf("packing %s: %w", method, err)
	}
	raw, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("calling %s on %s: %w", method, to.Hex(), err)
	}
	if len(raw) == 0 {
		return nil, ErrNoResolver
	}
	out, err := resolverABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", method, err)
	}
	return out, nil
}

// Namehash implements the EIP-137 namehash.
func Namehash(name string) common.Hash {
	var node common.Hash
	if name == "" {
		return node
	}
	labels := strings.Split(strings.ToLower(name), ".")
	for i := len(labels) - 1; i >= 0; i-- {
		node = crypto.Keccak256Hash(node[:], crypto.Keccak256([]byte(labels[i])))
	}
	return node
}
