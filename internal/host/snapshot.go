package host

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Snapshot is the persisted form of host state. The ledger is persisted
// separately.
type Snapshot struct {
	ChainID   *big.Int                    `json:"chain_id"`
	Contract  common.Address              `json:"contract"`
	Accounts  map[common.Address]*big.Int `json:"accounts"`
	Nonces    map[common.Address]uint64   `json:"nonces"`
	Rejecting []common.Address            `json:"rejecting,omitempty"`
}

// Snapshot captures balances, nonces and the contract address.
func (h *Host) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := Snapshot{
		ChainID:  new(big.Int).Set(h.chainID),
		Contract: h.contract,
		Accounts: make(map[common.Address]*big.Int, len(h.accounts)),
		Nonces:   make(map[common.Address]uint64, len(h.nonces)),
	}
	for a, v := range h.accounts {
		s.Accounts[a] = new(big.Int).Set(v)
	}
	for a, n := range h.nonces {
		s.Nonces[a] = n
	}
	for a := range h.rejecting {
		s.Rejecting = append(s.Rejecting, a)
	}
	return s
}

// Restore loads s into the host. The ledger must be re-attached with Attach.
func (h *Host) Restore(s Snapshot) error {
	if s.ChainID != nil && s.ChainID.Cmp(h.chainID) != 0 {
		return fmt.Errorf("snapshot chain ID %s does not match host chain ID %s", s.ChainID, h.chainID)
	}
	accounts := make(map[common.Address]*big.Int, len(s.Accounts))
	for a, v := range s.Accounts {
		if v == nil || v.Sign() < 0 {
			return fmt.Errorf("snapshot balance for %s is negative", a.Hex())
		}
		accounts[a] = new(big.Int).Set(v)
	}
	nonces := make(map[common.Address]uint64, len(s.Nonces))
	for a, n := range s.Nonces {
		nonces[a] = n
	}
	rejecting := make(map[common.Address]bool, len(s.Rejecting))
	for _, a := range s.Rejecting {
		rejecting[a] = true
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.contract = s.Contract
	h.accounts = accounts
	h.nonces = nonces
	h.rejecting = rejecting
	return nil
}
