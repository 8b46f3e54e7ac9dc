package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/Mohsinsiddi/w3fund/internal/price"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ErrUnexpectedDecimals is returned when an aggregator reports a precision
// other than price.FeedDecimals.
var ErrUnexpectedDecimals = errors.New("aggregator decimals mismatch")

// AggregatorV3ABI is the read surface of a Chainlink AggregatorV3Interface.
const AggregatorV3ABI = `[
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"description","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"latestRoundData","stateMutability":"view","inputs":[],
	 "outputs":[
		{"name":"roundId","type":"uint80"},
		{"name":"answer","type":"int256"},
		{"name":"startedAt","type":"uint256"},
		{"name":"updatedAt","type":"uint256"},
		{"name":"answeredInRound","type":"uint80"}]}
]`

var aggregatorABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(AggregatorV3ABI))
	if err != nil {
		panic("chain: invalid aggregator ABI: " + err.Error())
	}
	return parsed
}()

// AggregatorFeed reads ETH/USD rounds from an on-chain aggregator.
type AggregatorFeed struct {
	caller  ethereum.ContractCaller
	address common.Address
}

// NewAggregatorFeed returns a feed reading the aggregator at address.
func NewAggregatorFeed(caller ethereum.ContractCaller, address common.Address) *AggregatorFeed {
	return &AggregatorFeed{caller: caller, address: address}
}

// Address returns the aggregator contract address.
func (a *AggregatorFeed) Address() common.Address { return a.address }

// Decimals returns the aggregator's answer precision.
func (a *AggregatorFeed) Decimals(ctx context.Context) (uint8, error) {
	out, err := a.unpack(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	d, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decoding decimals: unexpected type %T", out[0])
	}
	return d, nil
}

// Description returns the aggregator's pair description, e.g. "ETH / USD".
func (a *AggregatorFeed) Description(ctx context.Context) (string, error) {
	out, err := a.unpack(ctx, "description")
	if err != nil {
		return "", err
	}
	s, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("decoding description: unexpected type %T", out[0])
	}
	return s, nil
}

// Verify checks the aggregator answers with price.FeedDecimals precision.
func (a *AggregatorFeed) Verify(ctx context.Context) error {
	d, err := a.Decimals(ctx)
	if err != nil {
		return err
	}
	if d != price.FeedDecimals {
		return fmt.Errorf("%w: got %d, want %d", ErrUnexpectedDecimals, d, price.FeedDecimals)
	}
	return nil
}

// LatestRoundData implements price.Feed.
func (a *AggregatorFeed) LatestRoundData(ctx context.Context) (*price.RoundData, error) {
	raw, err := a.call(ctx, "latestRoundData")
	if err != nil {
		return nil, err
	}
	var round struct {
		RoundId         *big.Int
		Answer          *big.Int
		StartedAt       *big.Int
		UpdatedAt       *big.Int
		AnsweredInRound *big.Int
	}
	if err := aggregatorABI.UnpackIntoInterface(&round, "latestRoundData", raw); err != nil {
		return nil, fmt.Errorf("decoding latestRoundData: %w", err)
	}
	return &price.RoundData{
		RoundID:         round.RoundId,
		Answer:          round.Answer,
		StartedAt:       unixTime(round.StartedAt),
		UpdatedAt:       unixTime(round.UpdatedAt),
		AnsweredInRound: round.AnsweredInRound,
	}, nil
}

func (a *AggregatorFeed) unpack(ctx context.Context, method string) ([]interface{}, error) {
	raw, err := a.call(ctx, method)
	if err != nil {
		return nil, err
	}
	out, err := aggregatorABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", method, err)
	}
	return out, nil
}

func (a *AggregatorFeed) call(ctx context.Context, method string) ([]byte, error) {
	data, err := aggregatorABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("packing %s: %w", method, err)
	}
	to := a.address
	raw, err := a.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("calling %s on %s: %w", method, a.address.Hex(), err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("calling %s on %s: empty result (no contract?)", method, a.address.Hex())
	}
	return raw, nil
}

func unixTime(v *big.Int) time.Time {
	if v == nil || !v.IsInt64() || v.Sign() == 0 {
		return time.Time{}
	}
	return time.Unix(v.Int64(), 0).UTC()
}

var _ price.Feed = (*AggregatorFeed)(nil)
