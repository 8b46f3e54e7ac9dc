package host_test

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/Mohsinsiddi/w3fund/internal/host"
	"github.com/Mohsinsiddi/w3fund/internal/ledger"
	"github.com/Mohsinsiddi/w3fund/internal/price"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known development keys.
const (
	controllerKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	aliceKeyHex      = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
	bobKeyHex        = "5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a"
)

var (
	chainID = big.NewInt(31337)
	oneEth  = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	tenEth  = new(big.Int).Mul(big.NewInt(10), oneEth)
)

type account struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

func mustAccount(t *testing.T, hexKey string) account {
	t.Helper()
	k, err := crypto.HexToECDSA(hexKey)
	require.NoError(t, err)
	return account{key: k, addr: crypto.PubkeyToAddress(k.PublicKey)}
}

type fixture struct {
	h          *host.Host
	l          *ledger.Ledger
	feed       *price.StaticFeed
	contract   common.Address
	controller account
	alice      account
	bob        account
}

func newFixture(t *testing.T, opts ...ledger.Option) *fixture {
	t.Helper()
	f := &fixture{
		controller: mustAccount(t, controllerKeyHex),
		alice:      mustAccount(t, aliceKeyHex),
		bob:        mustAccount(t, bobKeyHex),
		feed:       price.NewStaticFeedUSD(2000),
	}
	f.h = host.New(chainID)
	l, err := ledger.New(f.controller.addr, f.feed, f.h.Payout(), opts...)
	require.NoError(t, err)
	f.l = l
	f.contract = f.h.Deploy(f.controller.addr, l)
	for _, a := range []account{f.controller, f.alice, f.bob} {
		f.h.Credit(a.addr, tenEth)
	}
	return f
}

func (f *fixture) tx(t *testing.T, from account, value *big.Int, data []byte) *types.Transaction {
	t.Helper()
	return f.txTo(t, from, f.contract, value, data)
}

func (f *fixture) txTo(t *testing.T, from account, to common.Address, value *big.Int, data []byte) *types.Transaction {
	t.Helper()
	tx, err := types.SignNewTx(from.key, types.LatestSignerForChainID(chainID), &types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     f.h.NonceOf(from.addr),
		GasTipCap: big.NewInt(0),
		GasFeeCap: big.NewInt(0),
		Gas:       100_000,
		To:        &to,
		Value:     value,
		Data:      data,
	})
	require.NoError(t, err)
	return tx
}

func sub(a, b *big.Int) string { return new(big.Int).Sub(a, b).String() }

// ---------------------------------------------------------------------------
// Selectors
// ---------------------------------------------------------------------------

func TestSelectorsMatchSolidity(t *testing.T) {
	assert.Equal(t, "b60d4288", hex.EncodeToString(host.Selector(host.MethodFund)))
	assert.Equal(t, "3ccfd60b", hex.EncodeToString(host.Selector(host.MethodWithdraw)))
	assert.Len(t, host.Selector(host.MethodCheaperWithdraw), 4)

	for _, m := range []string{host.MethodFund, host.MethodWithdraw, host.MethodCheaperWithdraw} {
		assert.Equal(t, host.Selector(m), host.CallData(m), m)
	}
}

func TestRouteOf(t *testing.T) {
	assert.Equal(t, "receive", host.RouteOf(nil))
	assert.Equal(t, "fund", host.RouteOf(host.CallData(host.MethodFund)))
	assert.Equal(t, "withdraw", host.RouteOf(host.CallData(host.MethodWithdraw)))
	assert.Equal(t, "cheaperWithdraw", host.RouteOf(host.CallData(host.MethodCheaperWithdraw)))
	assert.Equal(t, "fallback", host.RouteOf([]byte{0xde, 0xad}))
	assert.Equal(t, "fallback", host.RouteOf(host.Selector("donate(uint256)")))
}

func TestUnknownSelectorRoutesToFallback(t *testing.T) {
	f := newFixture(t)
	rcpt, err := f.h.Submit(context.Background(), f.tx(t, f.alice, oneEth, host.CallData("donate()")))
	require.NoError(t, err)
	assert.Equal(t, "fallback", rcpt.Method)
	assert.Equal(t, oneEth.String(), f.l.AmountFunded(f.alice.addr).String())
}

// ---------------------------------------------------------------------------
// Contribution path
// ---------------------------------------------------------------------------

func TestFundMovesValueIntoLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rcpt, err := f.h.Submit(ctx, f.tx(t, f.alice, oneEth, host.CallData(host.MethodFund)))
	require.NoError(t, err)
	assert.True(t, rcpt.Succeeded())
	assert.Equal(t, "fund", rcpt.Method)
	assert.Equal(t, f.alice.addr, rcpt.From)

	assert.Equal(t, sub(tenEth, oneEth), f.h.BalanceOf(f.alice.addr).String())
	assert.Equal(t, oneEth.String(), f.h.BalanceOf(f.contract).String())
	assert.Equal(t, oneEth.String(), f.l.AmountFunded(f.alice.addr).String())
	assert.Equal(t, uint64(1), f.h.NonceOf(f.alice.addr))
}

func TestFundBelowMinimumRevertsAndRefunds(t *testing.T) {
	f := newFixture(t)
	tooSmall := big.NewInt(2499999999999999)

	rcpt, err := f.h.Submit(context.Background(), f.tx(t, f.alice, tooSmall, host.CallData(host.MethodFund)))
	require.Error(t, err)
	assert.ErrorIs(t, err, host.ErrReverted)
	assert.ErrorIs(t, err, ledger.ErrInsufficientContribution)
	require.NotNil(t, rcpt)
	assert.False(t, rcpt.Succeeded())

	assert.Equal(t, tenEth.String(), f.h.BalanceOf(f.alice.addr).String())
	assert.Equal(t, "0", f.h.BalanceOf(f.contract).String())
	assert.Equal(t, 0, f.l.ContributorCount())
	assert.Equal(t, uint64(1), f.h.NonceOf(f.alice.addr), "reverted call still consumes the nonce")
}

func TestReceiveAndFallbackRouteToFund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rcpt, err := f.h.Submit(ctx, f.tx(t, f.alice, oneEth, nil))
	require.NoError(t, err)
	assert.Equal(t, "receive", rcpt.Method)

	rcpt, err = f.h.Submit(ctx, f.tx(t, f.bob, oneEth, []byte{0x12, 0x34, 0x56, 0x78, 0x00}))
	require.NoError(t, err)
	assert.Equal(t, "fallback", rcpt.Method)

	assert.Equal(t, 2, f.l.ContributorCount())
	assert.Equal(t, new(big.Int).Mul(oneEth, big.NewInt(2)).String(), f.h.BalanceOf(f.contract).String())
}

// ---------------------------------------------------------------------------
// Settlement path
// ---------------------------------------------------------------------------

func TestWithdrawPaysControllerAndResets(t *testing.T) {
	for _, method := range []string{host.MethodWithdraw, host.MethodCheaperWithdraw} {
		t.Run(method, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			for _, a := range []account{f.alice, f.bob, f.alice} {
				_, err := f.h.Submit(ctx, f.tx(t, a, oneEth, host.CallData(host.MethodFund)))
				require.NoError(t, err)
			}
			held := f.h.BalanceOf(f.contract)
			before := f.h.BalanceOf(f.controller.addr)

			rcpt, err := f.h.Submit(ctx, f.tx(t, f.controller, big.NewInt(0), host.CallData(method)))
			require.NoError(t, err)
			assert.True(t, rcpt.Succeeded())

			assert.Equal(t, new(big.Int).Add(before, held).String(), f.h.BalanceOf(f.controller.addr).String())
			assert.Equal(t, "0", f.h.BalanceOf(f.contract).String())
			assert.Equal(t, 0, f.l.ContributorCount())
			assert.Equal(t, "0", f.l.AmountFunded(f.alice.addr).String())
		})
	}
}

func TestWithdrawByStrangerIsUnauthorized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.h.Submit(ctx, f.tx(t, f.alice, oneEth, host.CallData(host.MethodFund)))
	require.NoError(t, err)

	_, err = f.h.Submit(ctx, f.tx(t, f.bob, big.NewInt(0), host.CallData(host.MethodWithdraw)))
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	assert.Equal(t, oneEth.String(), f.h.BalanceOf(f.contract).String())
	assert.Equal(t, 1, f.l.ContributorCount())
}

func TestWithdrawWithValueIsNonPayable(t *testing.T) {
	f := newFixture(t)
	_, err := f.h.Submit(context.Background(), f.tx(t, f.controller, oneEth, host.CallData(host.MethodWithdraw)))
	assert.ErrorIs(t, err, host.ErrNonPayable)
	assert.Equal(t, tenEth.String(), f.h.BalanceOf(f.controller.addr).String())
}

func TestWithdrawToRejectingControllerRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.h.Submit(ctx, f.tx(t, f.alice, oneEth, host.CallData(host.MethodFund)))
	require.NoError(t, err)
	before := f.l.Snapshot()

	f.h.SetRejecting(f.controller.addr, true)
	_, err = f.h.Submit(ctx, f.tx(t, f.controller, big.NewInt(0), host.CallData(host.MethodWithdraw)))
	require.ErrorIs(t, err, ledger.ErrSettlementTransferFailed)
	assert.ErrorIs(t, err, host.ErrTransferRejected)

	assert.Equal(t, before, f.l.Snapshot())
	assert.Equal(t, tenEth.String(), f.h.BalanceOf(f.controller.addr).String())
	assert.Equal(t, oneEth.String(), f.h.BalanceOf(f.contract).String())

	f.h.SetRejecting(f.controller.addr, false)
	_, err = f.h.Submit(ctx, f.tx(t, f.controller, big.NewInt(0), host.CallData(host.MethodWithdraw)))
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).Add(tenEth, oneEth).String(), f.h.BalanceOf(f.controller.addr).String())
}

func TestDirectSettleOutsideCallFails(t *testing.T) {
	f := newFixture(t)
	err := f.l.Settle(context.Background(), f.controller.addr)
	assert.ErrorIs(t, err, ledger.ErrSettlementTransferFailed)
	assert.ErrorIs(t, err, host.ErrNoActiveCall)
}

// ---------------------------------------------------------------------------
// Pre-execution checks
// ---------------------------------------------------------------------------

func TestNonceMismatch(t *testing.T) {
	f := newFixture(t)
	tx := f.tx(t, f.alice, oneEth, host.CallData(host.MethodFund))
	_, err := f.h.Submit(context.Background(), tx)
	require.NoError(t, err)

	// Replaying the same transaction must fail.
	_, err = f.h.Submit(context.Background(), tx)
	assert.ErrorIs(t, err, host.ErrNonceMismatch)
	assert.Equal(t, uint64(1), f.h.NonceOf(f.alice.addr))
}

func TestInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	tooMuch := new(big.Int).Add(tenEth, big.NewInt(1))
	rcpt, err := f.h.Submit(context.Background(), f.tx(t, f.alice, tooMuch, host.CallData(host.MethodFund)))
	assert.ErrorIs(t, err, host.ErrInsufficientFunds)
	assert.Nil(t, rcpt)
	assert.Equal(t, uint64(0), f.h.NonceOf(f.alice.addr))
}

func TestUnknownContract(t *testing.T) {
	f := newFixture(t)
	elsewhere := common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	_, err := f.h.Submit(context.Background(), f.txTo(t, f.alice, elsewhere, oneEth, nil))
	assert.ErrorIs(t, err, host.ErrUnknownContract)
}

func TestWrongChainSignatureRejected(t *testing.T) {
	f := newFixture(t)
	other := big.NewInt(1)
	to := f.contract
	tx, err := types.SignNewTx(f.alice.key, types.LatestSignerForChainID(other), &types.DynamicFeeTx{
		ChainID: other, Nonce: 0, GasTipCap: big.NewInt(0), GasFeeCap: big.NewInt(0),
		Gas: 21_000, To: &to, Value: oneEth,
	})
	require.NoError(t, err)

	_, err = f.h.Submit(context.Background(), tx)
	assert.ErrorIs(t, err, host.ErrInvalidSignature)
}

func TestNotDeployed(t *testing.T) {
	h := host.New(chainID)
	alice := mustAccount(t, aliceKeyHex)
	to := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	tx, err := types.SignNewTx(alice.key, types.LatestSignerForChainID(chainID), &types.DynamicFeeTx{
		ChainID: chainID, GasTipCap: big.NewInt(0), GasFeeCap: big.NewInt(0), Gas: 21_000, To: &to,
	})
	require.NoError(t, err)
	_, err = h.Submit(context.Background(), tx)
	assert.ErrorIs(t, err, host.ErrNotDeployed)
}

func TestSubmitRaw(t *testing.T) {
	f := newFixture(t)
	raw, err := f.tx(t, f.alice, oneEth, host.CallData(host.MethodFund)).MarshalBinary()
	require.NoError(t, err)

	rcpt, err := f.h.SubmitRaw(context.Background(), raw)
	require.NoError(t, err)
	assert.True(t, rcpt.Succeeded())

	_, err = f.h.SubmitRaw(context.Background(), []byte{0x02, 0xff})
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Deploy / Snapshot
// ---------------------------------------------------------------------------

func TestDeployAddressFollowsCreateRule(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, crypto.CreateAddress(f.controller.addr, 0), f.contract)
	assert.Equal(t, uint64(1), f.h.NonceOf(f.controller.addr))
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.h.Submit(ctx, f.tx(t, f.alice, oneEth, host.CallData(host.MethodFund)))
	require.NoError(t, err)
	f.h.SetRejecting(f.bob.addr, true)

	snap := f.h.Snapshot()

	restored := host.New(chainID)
	require.NoError(t, restored.Restore(snap))
	l, err := ledger.New(f.controller.addr, f.feed, restored.Payout())
	require.NoError(t, err)
	require.NoError(t, l.Restore(f.l.Snapshot()))
	restored.Attach(snap.Contract, l)

	assert.Equal(t, f.contract, restored.Contract())
	assert.Equal(t, f.h.BalanceOf(f.alice.addr).String(), restored.BalanceOf(f.alice.addr).String())
	assert.Equal(t, uint64(1), restored.NonceOf(f.alice.addr))
	assert.Equal(t, oneEth.String(), restored.BalanceOf(snap.Contract).String())
	assert.Equal(t, f.h.Accounts(), restored.Accounts())
}

func TestZeroValueFundsSurviveRestore(t *testing.T) {
	minimum := ledger.WithMinimumUSD(big.NewInt(1))
	f := newFixture(t, minimum)
	ctx := context.Background()

	for _, v := range []*big.Int{big.NewInt(0), big.NewInt(0), oneEth, big.NewInt(0)} {
		rcpt, _ := f.h.Submit(ctx, f.tx(t, f.alice, v, host.CallData(host.MethodFund)))
		require.NotNil(t, rcpt)
		assert.Equal(t, v.Sign() > 0, rcpt.Succeeded())
	}
	require.Equal(t, 1, f.l.ContributorCount())
	assert.Equal(t, uint64(4), f.h.NonceOf(f.alice.addr))

	snap := f.h.Snapshot()
	restored := host.New(chainID)
	require.NoError(t, restored.Restore(snap))
	l, err := ledger.New(f.controller.addr, f.feed, restored.Payout(), minimum)
	require.NoError(t, err)
	require.NoError(t, l.Restore(f.l.Snapshot()))
	restored.Attach(snap.Contract, l)

	assert.Equal(t, []common.Address{f.alice.addr}, l.Contributors())
	assert.Equal(t, oneEth.String(), restored.BalanceOf(snap.Contract).String())
}

func TestRestoreRejectsChainMismatch(t *testing.T) {
	f := newFixture(t)
	snap := f.h.Snapshot()
	other := host.New(big.NewInt(1))
	assert.Error(t, other.Restore(snap))
}
