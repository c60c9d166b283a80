package paymentregistry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satsengine/lnengine/internal/lightning"
	"github.com/satsengine/lnengine/internal/persistence"
)

// fakeSender is a PaymentSender that never actually dispatches,
// returning a result channel the test controls.
type fakeSender struct {
	result chan lightning.PaymentStatus
	err    error
}

func (f *fakeSender) SendPayment(ctx context.Context, bolt11 string) ([32]byte, lightning.PaymentStatus, <-chan lightning.PaymentStatus, error) {
	if f.err != nil {
		return [32]byte{}, lightning.StatusFailed, nil, f.err
	}
	return [32]byte{}, lightning.StatusPending, f.result, nil
}

func newTestRegistry(t *testing.T, sender PaymentSender) *Registry {
	t.Helper()
	store, err := persistence.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(store, sender)
}

func TestProcessPayment_IsIdempotent(t *testing.T) {
	sender := &fakeSender{result: make(chan lightning.PaymentStatus, 1)}
	reg := newTestRegistry(t, sender)

	rec1, err := reg.ProcessPayment(context.Background(), "P1", "wallet-a", 1000, "lnbc...", "coffee")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, rec1.Status)

	rec2, err := reg.ProcessPayment(context.Background(), "P1", "wallet-a", 1000, "lnbc...", "coffee")
	require.NoError(t, err)
	assert.Equal(t, rec1.CreatedAt, rec2.CreatedAt)
	assert.Equal(t, rec1.PaymentID, rec2.PaymentID)
}

func TestProcessPayment_RejectsNonPositiveAmount(t *testing.T) {
	reg := newTestRegistry(t, nil)
	_, err := reg.ProcessPayment(context.Background(), "P1", "wallet-a", 0, "lnbc...", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestProcessPayment_SettlesOnSuccess(t *testing.T) {
	sender := &fakeSender{result: make(chan lightning.PaymentStatus, 1)}
	reg := newTestRegistry(t, sender)

	rec, err := reg.ProcessPayment(context.Background(), "P1", "wallet-a", 1000, "lnbc...", "")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, rec.Status)

	sender.result <- lightning.StatusSucceeded

	require.Eventually(t, func() bool {
		got, err := reg.GetPaymentStatus("P1")
		return err == nil && got.Status == StatusCompleted
	}, time.Second, 10*time.Millisecond)
}

func TestGetPaymentStatus_NotFound(t *testing.T) {
	reg := newTestRegistry(t, nil)
	_, err := reg.GetPaymentStatus("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProcessRefund_BoundsCheckedAgainstOriginal(t *testing.T) {
	reg := newTestRegistry(t, nil)

	_, err := reg.ProcessPayment(context.Background(), "P1", "wallet-a", 1000, "", "")
	require.NoError(t, err)
	reg.settle("P1", StatusCompleted)

	rec, err := reg.ProcessRefund(context.Background(), "P1", 500, "")
	require.NoError(t, err)
	assert.Equal(t, StatusRefunded, rec.Status)
	assert.Equal(t, int64(500), rec.RefundAmountSats)

	_, err = reg.ProcessRefund(context.Background(), "P1", 600, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestProcessRefund_RequiresCompletedStatus(t *testing.T) {
	reg := newTestRegistry(t, nil)

	_, err := reg.ProcessPayment(context.Background(), "P1", "wallet-a", 1000, "", "")
	require.NoError(t, err)

	_, err = reg.ProcessRefund(context.Background(), "P1", 100, "")
	assert.ErrorIs(t, err, ErrNotCompleted)
}

func TestPaymentStream_OrdersByUpdatedAtDescending(t *testing.T) {
	reg := newTestRegistry(t, nil)
	ctx := context.Background()

	_, err := reg.ProcessPayment(ctx, "P1", "wallet-a", 100, "", "")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = reg.ProcessPayment(ctx, "P2", "wallet-a", 200, "", "")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	reg.settle("P1", StatusCompleted)

	stream, err := reg.PaymentStream("wallet-a", 0)
	require.NoError(t, err)

	var ids []string
	for {
		rec, ok, err := stream.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		ids = append(ids, rec.PaymentID)
	}

	require.Len(t, ids, 2)
	assert.Equal(t, "P1", ids[0], "P1 was most recently updated by settle()")
	assert.Equal(t, "P2", ids[1])
}

func TestPaymentStream_UnknownWalletIsEmpty(t *testing.T) {
	reg := newTestRegistry(t, nil)
	stream, err := reg.PaymentStream("no-such-wallet", 0)
	require.NoError(t, err)

	_, ok, err := stream.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPaymentStream_RespectsLimit(t *testing.T) {
	reg := newTestRegistry(t, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := reg.ProcessPayment(ctx, string(rune('A'+i)), "wallet-a", 100, "", "")
		require.NoError(t, err)
	}

	stream, err := reg.PaymentStream("wallet-a", 2)
	require.NoError(t, err)

	count := 0
	for {
		_, ok, err := stream.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
	}
	assert.Equal(t, 2, count)
}
