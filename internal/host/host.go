// Package host is a local single-contract execution environment for the
// funding ledger. It plays the chain's part: it authenticates signed
// transactions, tracks balances and nonces, routes calldata to ledger entry
// points and makes every call all-or-nothing.
package host

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/Mohsinsiddi/w3fund/internal/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// Errors.
var (
	ErrInvalidSignature  = errors.New("invalid transaction signature")
	ErrNonceMismatch     = errors.New("nonce mismatch")
	ErrUnknownContract   = errors.New("no contract at destination")
	ErrInsufficientFunds = errors.New("insufficient funds for value")
	ErrNonPayable        = errors.New("entry point is not payable")
	ErrReverted          = errors.New("execution reverted")
	ErrTransferRejected  = errors.New("recipient rejected transfer")
	ErrNoActiveCall      = errors.New("transfer outside of a call")
	ErrNotDeployed       = errors.New("ledger not deployed")
)

// Receipt is the outcome of an executed transaction.
type Receipt struct {
	TxHash common.Hash
	From   common.Address
	Method string
	Value  *big.Int
	Status uint64
	Nonce  uint64
}

// Succeeded reports whether the call committed.
func (r *Receipt) Succeeded() bool {
	return r.Status == types.ReceiptStatusSuccessful
}

// frame journals value moved out of the contract during one call.
type frame struct {
	credits map[common.Address]*big.Int
}

// Host owns account state and the deployed ledger.
type Host struct {
	mu sync.Mutex

	chainID *big.Int
	signer  types.Signer

	contract common.Address
	ledger   *ledger.Ledger

	accounts  map[common.Address]*big.Int
	nonces    map[common.Address]uint64
	rejecting map[common.Address]bool

	active *frame
	log    *zap.Logger
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the host logger.
func WithLogger(log *zap.Logger) Option {
	return func(h *Host) {
		if log != nil {
			h.log = log
		}
	}
}

// New creates an empty host for chainID.
func New(chainID *big.Int, opts ...Option) *Host {
	h := &Host{
		chainID:   new(big.Int).Set(chainID),
		signer:    types.LatestSignerForChainID(chainID),
		accounts:  make(map[common.Address]*big.Int),
		nonces:    make(map[common.Address]uint64),
		rejecting: make(map[common.Address]bool),
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ChainID returns the host's chain ID.
func (h *Host) ChainID() *big.Int {
	return new(big.Int).Set(h.chainID)
}

// Payout returns the Transferer the ledger must be built with.
func (h *Host) Payout() ledger.Transferer {
	return payout{h: h}
}

// Deploy places l at the address derived from deployer and its nonce, and
// consumes that nonce.
func (h *Host) Deploy(deployer common.Address, l *ledger.Ledger) common.Address {
	h.mu.Lock()
	defer h.mu.Unlock()
	addr := crypto.CreateAddress(deployer, h.nonces[deployer])
	h.nonces[deployer]++
	h.contract = addr
	h.ledger = l
	h.log.Info("ledger deployed",
		zap.Stringer("address", addr),
		zap.Stringer("deployer", deployer))
	return addr
}

// Attach binds an already-deployed ledger at addr (after Restore).
func (h *Host) Attach(addr common.Address, l *ledger.Ledger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.contract = addr
	h.ledger = l
}

// Contract returns the ledger's address.
func (h *Host) Contract() common.Address {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.contract
}

// Credit adds amount wei to addr. Local faucet.
func (h *Host) Credit(addr common.Address, amount *big.Int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.credit(addr, amount)
}

// SetRejecting marks addr as a recipient whose receive hook fails.
func (h *Host) SetRejecting(addr common.Address, reject bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if reject {
		h.rejecting[addr] = true
	} else {
		delete(h.rejecting, addr)
	}
}

// BalanceOf returns addr's balance. The contract address reports the
// ledger's held balance.
func (h *Host) BalanceOf(addr common.Address) *big.Int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ledger != nil && addr == h.contract {
		return h.ledger.Balance()
	}
	if v, ok := h.accounts[addr]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// NonceOf returns the next expected nonce for addr.
func (h *Host) NonceOf(addr common.Address) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.nonces[addr]
}

// Accounts returns every funded or used account, sorted by address.
func (h *Host) Accounts() []common.Address {
	h.mu.Lock()
	defer h.mu.Unlock()
	seen := make(map[common.Address]struct{}, len(h.accounts))
	for a := range h.accounts {
		seen[a] = struct{}{}
	}
	for a := range h.nonces {
		seen[a] = struct{}{}
	}
	out := make([]common.Address, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out
}

// SubmitRaw decodes and submits a binary-encoded signed transaction.
func (h *Host) SubmitRaw(ctx context.Context, raw []byte) (*Receipt, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("decoding transaction: %w", err)
	}
	return h.Submit(ctx, tx)
}

// Submit executes a signed transaction against the ledger. Pre-execution
// failures return no receipt and consume no nonce. A reverted call
// consumes the nonce, refunds the value and returns a failed receipt
// together with an error wrapping ErrReverted and the ledger's cause.
func (h *Host) Submit(ctx context.Context, tx *types.Transaction) (*Receipt, error) {
	from, err := types.Sender(h.signer, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ledger == nil {
		return nil, ErrNotDeployed
	}
	if want := h.nonces[from]; tx.Nonce() != want {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrNonceMismatch, tx.Nonce(), want)
	}
	if tx.To() == nil || *tx.To() != h.contract {
		return nil, ErrUnknownContract
	}

	value := tx.Value()
	if value == nil {
		value = new(big.Int)
	}
	if h.balance(from).Cmp(value) < 0 {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientFunds, h.balance(from), value)
	}

	r := dispatch(tx.Data())
	rcpt := &Receipt{
		TxHash: tx.Hash(),
		From:   from,
		Method: r.String(),
		Value:  new(big.Int).Set(value),
		Nonce:  tx.Nonce(),
	}
	h.nonces[from]++

	h.debit(from, value)
	h.active = &frame{credits: make(map[common.Address]*big.Int)}
	callErr := h.execute(ctx, r, from, tx.Data(), value)
	fr := h.active
	h.active = nil

	if callErr != nil {
		h.credit(from, value)
		rcpt.Status = types.ReceiptStatusFailed
		h.log.Info("call reverted",
			zap.Stringer("tx", rcpt.TxHash),
			zap.String("method", rcpt.Method),
			zap.Stringer("from", from),
			zap.Error(callErr))
		return rcpt, fmt.Errorf("%w: %w", ErrReverted, callErr)
	}

	for addr, amt := range fr.credits {
		h.credit(addr, amt)
	}
	rcpt.Status = types.ReceiptStatusSuccessful
	h.log.Debug("call committed",
		zap.Stringer("tx", rcpt.TxHash),
		zap.String("method", rcpt.Method),
		zap.Stringer("from", from),
		zap.Stringer("value", value))
	return rcpt, nil
}

func (h *Host) execute(ctx context.Context, r route, from common.Address, data []byte, value *big.Int) error {
	if !r.payable() && value.Sign() > 0 {
		return fmt.Errorf("%w: %s", ErrNonPayable, r)
	}
	switch r {
	case routeReceive:
		return h.ledger.Receive(ctx, from, value)
	case routeFund:
		return h.ledger.Contribute(ctx, from, value)
	case routeWithdraw:
		return h.ledger.Settle(ctx, from)
	case routeCheaperWithdraw:
		return h.ledger.SettleOptimized(ctx, from)
	default:
		return h.ledger.Fallback(ctx, from, data, value)
	}
}

// --- balance helpers; callers hold h.mu ---

func (h *Host) balance(addr common.Address) *big.Int {
	if v, ok := h.accounts[addr]; ok {
		return v
	}
	return new(big.Int)
}

func (h *Host) credit(addr common.Address, amount *big.Int) {
	h.accounts[addr] = new(big.Int).Add(h.balance(addr), amount)
}

func (h *Host) debit(addr common.Address, amount *big.Int) {
	h.accounts[addr] = new(big.Int).Sub(h.balance(addr), amount)
}

// payout moves value out of the contract within the active call. Credits
// are journaled and applied only if the whole call commits.
type payout struct {
	h *Host
}

func (p payout) Transfer(_ context.Context, to common.Address, amount *big.Int) error {
	fr := p.h.active
	if fr == nil {
		return ErrNoActiveCall
	}
	if p.h.rejecting[to] {
		return fmt.Errorf("%w: %s", ErrTransferRejected, to.Hex())
	}
	cur, ok := fr.credits[to]
	if !ok {
		cur = new(big.Int)
	}
	fr.credits[to] = new(big.Int).Add(cur, amount)
	return nil
}
