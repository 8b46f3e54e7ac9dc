// Package ledger implements the crowdfunding ledger: per-contributor
// accounting of native-currency contributions, a USD minimum enforced
// through a price feed, and controller-only settlement.
//
// Every entry point runs to completion or leaves the ledger untouched.
package ledger

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/Mohsinsiddi/w3fund/internal/price"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Errors.
var (
	ErrInsufficientContribution = errors.New("contribution below minimum USD value")
	ErrUnauthorized             = errors.New("caller is not the controller")
	ErrSettlementTransferFailed = errors.New("settlement transfer failed")
	ErrInvalidAmount            = errors.New("invalid contribution amount")
	ErrStalePrice               = errors.New("price feed round is stale")
	ErrIndexOutOfRange          = errors.New("contributor index out of range")
	ErrInvalidSnapshot          = errors.New("invalid ledger snapshot")
)

// DefaultMinimumUSD is $5 at 18 decimals.
var DefaultMinimumUSD = new(big.Int).Mul(big.NewInt(5), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// Transferer pushes native currency out of the ledger. Implementations must
// not call back into the ledger.
type Transferer interface {
	Transfer(ctx context.Context, to common.Address, amount *big.Int) error
}

// Ledger is a single funding ledger instance.
type Ledger struct {
	mu sync.Mutex

	controller common.Address
	feed       price.Feed
	payout     Transferer
	minimumUSD *big.Int

	contributors []common.Address
	funded       map[common.Address]*big.Int
	balance      *big.Int

	maxPriceAge time.Duration
	now         func() time.Time
	log         *zap.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithMinimumUSD overrides the $5 minimum (18 decimals).
func WithMinimumUSD(v *big.Int) Option {
	return func(l *Ledger) {
		if v != nil {
			l.minimumUSD = new(big.Int).Set(v)
		}
	}
}

// WithMaxPriceAge rejects contributions priced from a round older than d.
// Zero disables the check.
func WithMaxPriceAge(d time.Duration) Option {
	return func(l *Ledger) {
		l.maxPriceAge = d
	}
}

// WithClock sets the time source used for staleness checks.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithLogger sets the event logger.
func WithLogger(log *zap.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

// New creates an empty ledger owned by controller.
func New(controller common.Address, feed price.Feed, payout Transferer, opts ...Option) (*Ledger, error) {
	if controller == (common.Address{}) {
		return nil, errors.New("ledger: controller address is required")
	}
	if feed == nil {
		return nil, errors.New("ledger: price feed is required")
	}
	if payout == nil {
		return nil, errors.New("ledger: transferer is required")
	}
	l := &Ledger{
		controller: controller,
		feed:       feed,
		payout:     payout,
		minimumUSD: new(big.Int).Set(DefaultMinimumUSD),
		funded:     make(map[common.Address]*big.Int),
		balance:    new(big.Int),
		now:        time.Now,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.minimumUSD == nil || l.minimumUSD.Sign() <= 0 {
		return nil, errors.New("ledger: minimum USD must be positive")
	}
	return l, nil
}

// --- read accessors ---

// AmountFunded returns the cumulative wei contributed by addr.
func (l *Ledger) AmountFunded(addr common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.funded[addr]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// ContributorCount returns the number of distinct unsettled contributors.
func (l *Ledger) ContributorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.contributors)
}

// Contributor returns the i-th contributor in first-contribution order.
func (l *Ledger) Contributor(i int) (common.Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= len(l.contributors) {
		return common.Address{}, ErrIndexOutOfRange
	}
	return l.contributors[i], nil
}

// Contributors returns a copy of the contributor list.
func (l *Ledger) Contributors() []common.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]common.Address, len(l.contributors))
	copy(out, l.contributors)
	return out
}

// Controller returns the identity allowed to settle.
func (l *Ledger) Controller() common.Address {
	return l.controller
}

// PriceFeed returns the oracle handle.
func (l *Ledger) PriceFeed() price.Feed {
	return l.feed
}

// MinimumUSD returns the contribution threshold (18 decimals).
func (l *Ledger) MinimumUSD() *big.Int {
	return new(big.Int).Set(l.minimumUSD)
}

// Balance returns the wei currently held.
func (l *Ledger) Balance() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balance)
}
