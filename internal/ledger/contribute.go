package ledger

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/w3fund/internal/price"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Contribute records amount wei from caller. The amount's USD value must be
// at least the ledger minimum; the minimum itself is accepted. A zero amount
// never qualifies.
func (l *Ledger) Contribute(ctx context.Context, caller common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	usd, err := l.valueOf(ctx, amount)
	if err != nil {
		return err
	}
	if amount.Sign() == 0 || usd.Cmp(l.minimumUSD) < 0 {
		return fmt.Errorf("%w: %s < %s", ErrInsufficientContribution,
			price.FormatUSD(usd), price.FormatUSD(l.minimumUSD))
	}

	prev, ok := l.funded[caller]
	if !ok {
		l.contributors = append(l.contributors, caller)
		prev = new(big.Int)
	}
	l.funded[caller] = new(big.Int).Add(prev, amount)
	l.balance.Add(l.balance, amount)

	l.log.Info("funded",
		zap.Stringer("contributor", caller),
		zap.Stringer("amount_wei", amount),
		zap.String("usd", price.FormatUSD(usd)),
		zap.Int("contributors", len(l.contributors)))
	return nil
}

// Receive handles a value-only call with no selector.
func (l *Ledger) Receive(ctx context.Context, caller common.Address, value *big.Int) error {
	return l.Contribute(ctx, caller, value)
}

// Fallback handles a call whose selector matches no entry point.
func (l *Ledger) Fallback(ctx context.Context, caller common.Address, data []byte, value *big.Int) error {
	l.log.Debug("fallback routed to contribute",
		zap.Stringer("contributor", caller),
		zap.Int("calldata_len", len(data)))
	return l.Contribute(ctx, caller, value)
}

// valueOf prices amount through the feed, enforcing the staleness window.
func (l *Ledger) valueOf(ctx context.Context, amount *big.Int) (*big.Int, error) {
	rd, err := l.feed.LatestRoundData(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading price feed: %w", err)
	}
	if l.maxPriceAge > 0 {
		if age := l.now().Sub(rd.UpdatedAt); age > l.maxPriceAge {
			return nil, fmt.Errorf("%w: updated %s ago", ErrStalePrice, age.Round(time.Second))
		}
	}
	p, err := price.Normalize(rd)
	if err != nil {
		return nil, err
	}
	return price.Convert(p, amount), nil
}
