package price

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"
)

// FeedDecimals is the fixed-point scale of every Feed answer.
const FeedDecimals = 8

// Errors.
var (
	ErrInvalidAnswer = errors.New("price feed returned a non-positive answer")
	ErrNoRound       = errors.New("price feed has no round data")
)

var (
	// answerScale lifts an 8-decimal answer to 18 decimals.
	answerScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18-FeedDecimals), nil)
	// wad is 1e18, the scale of wei and of normalized USD values.
	wad = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

// RoundData mirrors the AggregatorV3 latestRoundData() tuple.
type RoundData struct {
	RoundID         *big.Int
	Answer          *big.Int // USD per native unit, FeedDecimals decimals
	StartedAt       time.Time
	UpdatedAt       time.Time
	AnsweredInRound *big.Int
}

// Feed is a source of the native/USD exchange rate.
type Feed interface {
	LatestRoundData(ctx context.Context) (*RoundData, error)
}

// Price returns the feed's latest answer normalized to 18 decimals.
func Price(ctx context.Context, feed Feed) (*big.Int, error) {
	rd, err := feed.LatestRoundData(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading price feed: %w", err)
	}
	return Normalize(rd)
}

// Normalize validates a round and scales its answer to 18 decimals.
func Normalize(rd *RoundData) (*big.Int, error) {
	if rd == nil || rd.Answer == nil {
		return nil, ErrNoRound
	}
	if rd.Answer.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAnswer, rd.Answer)
	}
	return new(big.Int).Mul(rd.Answer, answerScale), nil
}

// ConversionRate returns the USD value (18 decimals) of weiAmount.
func ConversionRate(ctx context.Context, feed Feed, weiAmount *big.Int) (*big.Int, error) {
	p, err := Price(ctx, feed)
	if err != nil {
		return nil, err
	}
	return Convert(p, weiAmount), nil
}

// Convert multiplies two 18-decimal quantities and rescales the product
// back to 18 decimals. Integer division truncates toward zero.
func Convert(normalizedPrice, weiAmount *big.Int) *big.Int {
	usd := new(big.Int).Mul(normalizedPrice, weiAmount)
	return usd.Quo(usd, wad)
}

// MinimumWei returns the smallest wei amount whose USD value is at least
// minimumUSD at the given normalized price.
func MinimumWei(normalizedPrice, minimumUSD *big.Int) *big.Int {
	if normalizedPrice.Sign() <= 0 {
		return nil
	}
	num := new(big.Int).Mul(minimumUSD, wad)
	q, r := new(big.Int).QuoRem(num, normalizedPrice, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// StaticFeed is a settable in-process feed, the local stand-in for a
// deployed mock aggregator.
type StaticFeed struct {
	mu    sync.RWMutex
	round RoundData
	now   func() time.Time
}

// NewStaticFeed creates a feed whose first round reports answer
// (FeedDecimals decimals).
func NewStaticFeed(answer *big.Int) *StaticFeed {
	f := &StaticFeed{now: time.Now}
	f.UpdateAnswer(answer)
	return f
}

// NewStaticFeedUSD creates a feed from a whole-dollar price.
func NewStaticFeedUSD(usd int64) *StaticFeed {
	a := new(big.Int).Mul(big.NewInt(usd), new(big.Int).Exp(big.NewInt(10), big.NewInt(FeedDecimals), nil))
	return NewStaticFeed(a)
}

// UpdateAnswer starts a new round with answer.
func (f *StaticFeed) UpdateAnswer(answer *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := big.NewInt(1)
	if f.round.RoundID != nil {
		next.Add(f.round.RoundID, big.NewInt(1))
	}
	ts := f.now()
	f.round = RoundData{
		RoundID:         next,
		Answer:          new(big.Int).Set(answer),
		StartedAt:       ts,
		UpdatedAt:       ts,
		AnsweredInRound: new(big.Int).Set(next),
	}
}

// SetUpdatedAt backdates the current round. Used to exercise staleness checks.
func (f *StaticFeed) SetUpdatedAt(ts time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.round.UpdatedAt = ts
}

// LatestRoundData implements Feed.
func (f *StaticFeed) LatestRoundData(_ context.Context) (*RoundData, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.round.RoundID == nil {
		return nil, ErrNoRound
	}
	rd := f.round
	rd.RoundID = new(big.Int).Set(f.round.RoundID)
	rd.Answer = new(big.Int).Set(f.round.Answer)
	rd.AnsweredInRound = new(big.Int).Set(f.round.AnsweredInRound)
	return &rd, nil
}
