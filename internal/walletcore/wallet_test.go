package walletcore

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWallet(t *testing.T) *Wallet {
	t.Helper()
	m, err := GenerateMnemonic(12)
	require.NoError(t, err)
	w, err := New(m, "", &chaincfg.TestNet3Params)
	require.NoError(t, err)
	t.Cleanup(w.Close)
	return w
}

func TestWallet_NodeIDIsStableAndCompressed(t *testing.T) {
	w := testWallet(t)

	id1, err := w.NodeID()
	require.NoError(t, err)
	id2, err := w.NodeID()
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	// Compressed secp256k1 public key: 33 bytes, 66 hex chars.
	assert.Len(t, id1, 66)
}

func TestWallet_ReceiveAddressesAreDistinctAndSequential(t *testing.T) {
	w := testWallet(t)

	addr0, idx0, err := w.NewReceiveAddress()
	require.NoError(t, err)
	addr1, idx1, err := w.NewReceiveAddress()
	require.NoError(t, err)

	assert.Equal(t, uint32(0), idx0)
	assert.Equal(t, uint32(1), idx1)
	assert.NotEqual(t, addr0.String(), addr1.String())
}

func TestWallet_ChangeAddressesAreDisjointFromReceive(t *testing.T) {
	w := testWallet(t)

	receive, _, err := w.NewReceiveAddress()
	require.NoError(t, err)
	change, _, err := w.NewChangeAddress()
	require.NoError(t, err)

	assert.NotEqual(t, receive.String(), change.String())
}

func TestWallet_ChannelKeysAreDisjointFromOnChainKeys(t *testing.T) {
	w := testWallet(t)

	nodeKey, err := w.tree.NodeIdentityKey()
	require.NoError(t, err)

	onChainKey, err := w.SigningKeyFor(ChainExternal, 0)
	require.NoError(t, err)

	assert.NotEqual(t,
		nodeKey.Serialize(), onChainKey.Serialize(),
		"lightning identity key must derive along a path disjoint from on-chain addresses",
	)
}

func TestWallet_CloseZeroesSeed(t *testing.T) {
	w := testWallet(t)
	assert.Greater(t, w.seed.Len(), 0)
	w.Close()
	assert.Equal(t, 0, w.seed.Len())
}
