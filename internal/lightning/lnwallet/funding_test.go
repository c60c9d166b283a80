package lnwallet

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) *btcec.PublicKey {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return priv.PubKey()
}

func TestGenFundingPkScript_ProducesP2WSH(t *testing.T) {
	a, b := testKey(t), testKey(t)
	redeem, out, err := GenFundingPkScript(a, b, 50_000)
	require.NoError(t, err)
	assert.NotEmpty(t, redeem)
	assert.Equal(t, int64(50_000), out.Value)
	// P2WSH: OP_0 <32-byte-hash> == 34 bytes total.
	assert.Len(t, out.PkScript, 34)
}

func TestGenFundingPkScript_RejectsNonPositiveAmount(t *testing.T) {
	a, b := testKey(t), testKey(t)
	_, _, err := GenFundingPkScript(a, b, 0)
	assert.Error(t, err)
}

func TestGenFundingPkScript_IsOrderIndependent(t *testing.T) {
	a, b := testKey(t), testKey(t)
	redeem1, _, err := GenFundingPkScript(a, b, 1000)
	require.NoError(t, err)
	redeem2, _, err := GenFundingPkScript(b, a, 1000)
	require.NoError(t, err)
	assert.Equal(t, redeem1, redeem2)
}

func TestCommitScriptToSelf_NonEmpty(t *testing.T) {
	self, revoke := testKey(t), testKey(t)
	script, err := commitScriptToSelf(144, self, revoke)
	require.NoError(t, err)
	assert.NotEmpty(t, script)
}
