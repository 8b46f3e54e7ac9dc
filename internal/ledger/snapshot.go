package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Funding is one contributor's cumulative amount.
type Funding struct {
	Address common.Address `json:"address"`
	Amount  *big.Int       `json:"amount"`
}

// Snapshot is the persisted form of a ledger's mutable state.
type Snapshot struct {
	Controller   common.Address `json:"controller"`
	Contributors []Funding      `json:"contributors"`
	Balance      *big.Int       `json:"balance"`
}

// Snapshot captures the ledger state in contribution order.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := Snapshot{
		Controller:   l.controller,
		Contributors: make([]Funding, 0, len(l.contributors)),
		Balance:      new(big.Int).Set(l.balance),
	}
	for _, addr := range l.contributors {
		s.Contributors = append(s.Contributors, Funding{
			Address: addr,
			Amount:  new(big.Int).Set(l.funded[addr]),
		})
	}
	return s
}

// Restore replaces the ledger state with s after checking its invariants.
// The controller in s must match the ledger's.
func (l *Ledger) Restore(s Snapshot) error {
	if s.Controller != l.controller {
		return fmt.Errorf("%w: controller %s does not match %s", ErrInvalidSnapshot, s.Controller.Hex(), l.controller.Hex())
	}

	funded := make(map[common.Address]*big.Int, len(s.Contributors))
	contributors := make([]common.Address, 0, len(s.Contributors))
	sum := new(big.Int)
	for _, f := range s.Contributors {
		if _, dup := funded[f.Address]; dup {
			return fmt.Errorf("%w: duplicate contributor %s", ErrInvalidSnapshot, f.Address.Hex())
		}
		if f.Amount == nil || f.Amount.Sign() <= 0 {
			return fmt.Errorf("%w: non-positive amount for %s", ErrInvalidSnapshot, f.Address.Hex())
		}
		funded[f.Address] = new(big.Int).Set(f.Amount)
		contributors = append(contributors, f.Address)
		sum.Add(sum, f.Amount)
	}

	balance := new(big.Int)
	if s.Balance != nil {
		balance.Set(s.Balance)
	}
	if balance.Cmp(sum) != 0 {
		return fmt.Errorf("%w: balance %s != funded total %s", ErrInvalidSnapshot, balance, sum)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.funded = funded
	l.contributors = contributors
	l.balance = balance
	return nil
}
