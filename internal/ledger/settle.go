package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// settlement is a staged reset, committed only after the payout succeeds.
type settlement struct {
	snapshot []common.Address
	amount   *big.Int
}

// Settle pays the whole held balance to the controller and empties the
// ledger. It walks the stored contributor list directly.
func (l *Ledger) Settle(ctx context.Context, caller common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.controller {
		return ErrUnauthorized
	}

	s := settlement{amount: new(big.Int).Set(l.balance)}
	for i := 0; i < len(l.contributors); i++ {
		s.snapshot = append(s.snapshot, l.contributors[i])
	}
	return l.execute(ctx, s, "withdraw")
}

// SettleOptimized is Settle reading the contributor list once into a
// local copy before iterating. The outcome is identical.
func (l *Ledger) SettleOptimized(ctx context.Context, caller common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.controller {
		return ErrUnauthorized
	}

	contributors := l.contributors
	s := settlement{
		snapshot: make([]common.Address, len(contributors)),
		amount:   new(big.Int).Set(l.balance),
	}
	copy(s.snapshot, contributors)
	return l.execute(ctx, s, "cheaperWithdraw")
}

// execute sends the payout and commits the staged reset. On transfer
// failure nothing is committed. Callers hold l.mu.
func (l *Ledger) execute(ctx context.Context, s settlement, variant string) error {
	if err := l.payout.Transfer(ctx, l.controller, s.amount); err != nil {
		l.log.Warn("settlement transfer failed",
			zap.String("variant", variant),
			zap.Stringer("controller", l.controller),
			zap.Error(err))
		return fmt.Errorf("%w: %w", ErrSettlementTransferFailed, err)
	}

	for _, addr := range s.snapshot {
		delete(l.funded, addr)
	}
	l.contributors = nil
	l.balance = new(big.Int)

	l.log.Info("settled",
		zap.String("variant", variant),
		zap.Stringer("controller", l.controller),
		zap.Stringer("amount_wei", s.amount),
		zap.Int("contributors", len(s.snapshot)))
	return nil
}
