package discovery

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/stretchr/testify/require"

	"github.com/satsengine/lnengine/internal/lightning/routing"
)

func signedUpdate(t *testing.T, priv *btcec.PrivateKey) *ChannelUpdate {
	t.Helper()
	u := &ChannelUpdate{
		ChannelID:        "chan-1",
		AdvertisingNode:  "A",
		CounterpartyNode: "B",
		CapacitySats:     100_000,
		FeeBaseMsat:      1000,
		SignerPubKey:     priv.PubKey(),
	}
	digest := u.digest()
	sig := ecdsa.Sign(priv, digest[:])
	u.Signature = sig.Serialize()
	return u
}

func TestApplyChannelUpdateValidSignature(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	g := New(routing.NewGraph())
	require.NoError(t, g.ApplyChannelUpdate(signedUpdate(t, priv)))

	edges := g.graph.Neighbors("A")
	require.Contains(t, edges, "B")
}

func TestApplyChannelUpdateRejectsBadSignature(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	other, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	u := signedUpdate(t, priv)
	u.SignerPubKey = other.PubKey()

	g := New(routing.NewGraph())
	err = g.ApplyChannelUpdate(u)
	require.ErrorIs(t, err, ErrInvalidSignature)
}
