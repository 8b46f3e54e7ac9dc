package wallet

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	aliceLower    = "0x70997970c51812dc3a010c7d01b50e0d17dc79c8"
	aliceChecksum = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	// Hardhat account #0.
	controllerKey  = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	controllerAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func storeAt(t *testing.T) (*JSONStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wallets.json")
	return NewJSONStore(path), path
}

// ---------------------------------------------------------------------------
// JSONStore
// ---------------------------------------------------------------------------

func TestJSONStoreLoadNoFile(t *testing.T) {
	store, _ := storeAt(t)
	wallets, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, wallets)
}

func TestJSONStoreLoadCorrupt(t *testing.T) {
	store, path := storeAt(t)
	require.NoError(t, os.WriteFile(path, []byte("{not valid json"), 0o600))
	_, err := store.Load()
	assert.ErrorContains(t, err, "parsing wallets")
}

func TestJSONStoreFileIsOwnerOnly(t *testing.T) {
	store, path := storeAt(t)
	require.NoError(t, store.Save([]*Wallet{{Name: "owner", Address: controllerAddr}}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if info.Mode().Perm() != 0 { // Unix only
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

// ---------------------------------------------------------------------------
// Manager persistence through JSONStore
// ---------------------------------------------------------------------------

func TestAddStoresChecksumAddress(t *testing.T) {
	store, path := storeAt(t)
	mgr := NewManager(WithStore(store), WithKeystore(NewInMemoryKeystore()))
	require.NoError(t, mgr.Add("alice", &Wallet{Address: aliceLower, Type: TypeWatchOnly}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), aliceChecksum)
	assert.NotContains(t, string(raw), aliceLower)

	w, err := NewManager(WithStore(NewJSONStore(path))).Get("alice")
	require.NoError(t, err)
	assert.Equal(t, aliceChecksum, w.Address)
	assert.Equal(t, common.HexToAddress(aliceLower), w.Addr())
}

func TestAddRejectsBadWatchOnlyAddress(t *testing.T) {
	store, path := storeAt(t)
	mgr := NewManager(WithStore(store))
	assert.ErrorIs(t, mgr.Add("bad", &Wallet{Address: "0x1111", Type: TypeWatchOnly}), ErrInvalidAddress)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "a rejected wallet is never persisted")
}

func TestSigningWalletKeyStaysOutOfFile(t *testing.T) {
	store, path := storeAt(t)
	ks := NewInMemoryKeystore()
	mgr := NewManager(WithStore(store), WithKeystore(ks))
	require.NoError(t, mgr.AddWithKey("owner", controllerKey))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, strings.ToLower(string(raw)), strings.TrimPrefix(controllerKey, "0x"))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, controllerAddr, loaded[0].Address)
	assert.Equal(t, TypeSigning, loaded[0].Type)
	assert.Equal(t, keyRef("owner"), loaded[0].KeyRef)

	key, err := ks.Retrieve(loaded[0].KeyRef)
	require.NoError(t, err)
	assert.Equal(t, strings.TrimPrefix(controllerKey, "0x"), normaliseHexKey(key))
}

func TestDefaultSurvivesReload(t *testing.T) {
	store, path := storeAt(t)
	mgr := NewManager(WithStore(store), WithKeystore(NewInMemoryKeystore()))
	require.NoError(t, mgr.Add("alice", &Wallet{Address: aliceChecksum, Type: TypeWatchOnly}))
	require.NoError(t, mgr.Add("owner", &Wallet{Address: controllerAddr, Type: TypeWatchOnly}))
	require.NoError(t, mgr.SetDefault("owner"))

	def := NewManager(WithStore(NewJSONStore(path))).Default()
	require.NotNil(t, def)
	assert.Equal(t, "owner", def.Name)
	assert.Equal(t, common.HexToAddress(controllerAddr), def.Addr())
}
