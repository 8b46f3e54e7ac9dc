package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrSignerMismatch is returned when a receipt was not signed by its payer.
var ErrSignerMismatch = errors.New("receipt signer does not match contributor")

// SignMessage signs a message using EIP-191 (personal_sign).
// The message is prefixed with "\x19Ethereum Signed Message:\n<len>" before hashing.
// Returns a 65-byte signature (R || S || V).
func SignMessage(w *Wallet, ks KeystoreBackend, message []byte) ([]byte, error) {
	privKey, err := NewSigner(w, ks).key()
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(eip191Hash(message), privKey)
	if err != nil {
		return nil, fmt.Errorf("signing message: %w", err)
	}

	// V from 0/1 to 27/28.
	sig[64] += 27

	return sig, nil
}

// VerifyMessage recovers the signer address from an EIP-191 signature.
func VerifyMessage(message, sig []byte) (common.Address, error) {
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("invalid signature length: expected 65 bytes, got %d", len(sig))
	}

	recoverSig := make([]byte, 65)
	copy(recoverSig, sig)
	if recoverSig[64] >= 27 {
		recoverSig[64] -= 27
	}

	pubKey, err := crypto.SigToPub(eip191Hash(message), recoverSig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recovering signer: %w", err)
	}

	return crypto.PubkeyToAddress(*pubKey), nil
}

// eip191Hash returns the Keccak-256 hash of the EIP-191 prefixed message.
func eip191Hash(message []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))
	data := append([]byte(prefix), message...)
	return crypto.Keccak256(data)
}

// Receipt is a contributor's signed statement of what they funded.
type Receipt struct {
	Ledger      common.Address `json:"ledger"`
	ChainID     int64          `json:"chain_id"`
	Contributor common.Address `json:"contributor"`
	Amount      *big.Int       `json:"amount"`
	IssuedAt    string         `json:"issued_at"`
}

// SignedReceipt pairs a Receipt with its EIP-191 signature.
type SignedReceipt struct {
	Receipt   Receipt `json:"receipt"`
	Signature string  `json:"signature"` // 0x-prefixed hex
}

// SignReceipt signs r with w. w must be the contributor.
func SignReceipt(w *Wallet, ks KeystoreBackend, r Receipt) (*SignedReceipt, error) {
	if r.Contributor != w.Addr() {
		return nil, fmt.Errorf("%w: wallet %s, receipt %s", ErrSignerMismatch, w.Address, r.Contributor.Hex())
	}
	msg, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	sig, err := SignMessage(w, ks, msg)
	if err != nil {
		return nil, err
	}
	return &SignedReceipt{Receipt: r, Signature: hexutil.Encode(sig)}, nil
}

// VerifyReceipt checks the signature was made by the receipt's contributor.
func VerifyReceipt(sr *SignedReceipt) error {
	msg, err := json.Marshal(sr.Receipt)
	if err != nil {
		return err
	}
	sig, err := hexutil.Decode(sr.Signature)
	if err != nil {
		return fmt.Errorf("decoding signature: %w", err)
	}
	signer, err := VerifyMessage(msg, sig)
	if err != nil {
		return err
	}
	if signer != sr.Receipt.Contributor {
		return fmt.Errorf("%w: signed by %s", ErrSignerMismatch, signer.Hex())
	}
	return nil
}
