package zpay32

import (
	"crypto/sha256"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	preimage := sha256.Sum256([]byte("round trip preimage"))
	hash := sha256.Sum256(preimage[:])

	inv := &Invoice{
		Net:         &chaincfg.TestNet3Params,
		MilliSat:    1000 * mSatPerSat,
		Timestamp:   time.Unix(1_700_000_000, 0),
		PaymentHash: hash,
		Description: "test",
		Expiry:      2 * time.Hour,
	}

	encoded, err := Encode(inv, func(digest []byte) ([]byte, error) {
		sig, err := ecdsa.SignCompact(priv, digest, true)
		if err != nil {
			return nil, err
		}
		// SignCompact returns [recovery_byte || 64-byte sig]; BOLT-11
		// wants [64-byte sig || recovery_byte].
		out := make([]byte, 65)
		copy(out[:64], sig[1:])
		out[64] = sig[0] - 27 - 4
		return out, nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, encoded)

	decoded, err := Decode(encoded, &chaincfg.TestNet3Params)
	require.NoError(t, err)
	require.Equal(t, hash, decoded.PaymentHash)
	require.Equal(t, "test", decoded.Description)
	require.Equal(t, uint64(1000*mSatPerSat), decoded.MilliSat)
}

func TestMalformedInvoiceRejected(t *testing.T) {
	_, err := Decode("not-a-valid-invoice", &chaincfg.TestNet3Params)
	require.Error(t, err)
}

func TestIsExpired(t *testing.T) {
	inv := &Invoice{
		Timestamp: time.Unix(1_000_000, 0),
		Expiry:    time.Hour,
	}
	require.True(t, inv.IsExpired(time.Unix(1_000_000+3601, 0)))
	require.False(t, inv.IsExpired(time.Unix(1_000_000+100, 0)))
}
