package invoiceregistry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateDistinctHashes(t *testing.T) {
	r := New(24 * time.Hour)

	a, err := r.Create(1000, "test", 0)
	require.NoError(t, err)
	b, err := r.Create(1000, "test", 0)
	require.NoError(t, err)

	require.NotEqual(t, a.PaymentHash, b.PaymentHash)
}

func TestCreateRejectsOutOfRangeAmount(t *testing.T) {
	r := New(time.Hour)
	_, err := r.Create(0, "", 0)
	require.ErrorIs(t, err, ErrAmountOutOfRange)

	_, err = r.Create(MaxAmountSats+1, "", 0)
	require.ErrorIs(t, err, ErrAmountOutOfRange)
}

func TestSettleCreditsOnce(t *testing.T) {
	r := New(time.Hour)
	inv, err := r.Create(500, "", 0)
	require.NoError(t, err)
	require.True(t, inv.HashesPreimage())

	settled, err := r.Settle(inv.Preimage)
	require.NoError(t, err)
	require.Equal(t, inv.PaymentHash, settled.PaymentHash)

	_, err = r.Settle(inv.Preimage)
	require.ErrorIs(t, err, ErrAlreadySettled)
}

func TestPreimageForHidesSettled(t *testing.T) {
	r := New(time.Hour)
	inv, err := r.Create(500, "", 0)
	require.NoError(t, err)

	_, ok := r.PreimageFor(inv.PaymentHash)
	require.True(t, ok)

	_, err = r.Settle(inv.Preimage)
	require.NoError(t, err)

	_, ok = r.PreimageFor(inv.PaymentHash)
	require.False(t, ok)
}
