package htlcswitch

import (
	"crypto/sha256"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/satsengine/lnengine/internal/lightning/channeldb"
	"github.com/satsengine/lnengine/internal/lightning/invoiceregistry"
	"github.com/satsengine/lnengine/internal/lightning/lnwallet"
	"github.com/satsengine/lnengine/internal/lightning/lnwire"
	"github.com/satsengine/lnengine/internal/persistence"
)

func newTestStore(t *testing.T) *channeldb.Store {
	t.Helper()
	dir, err := os.MkdirTemp("", "htlcswitch-test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	db, err := persistence.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return channeldb.New(db)
}

func newTestChannel(t *testing.T, store *channeldb.Store, id string) *lnwallet.Channel {
	t.Helper()
	record := &channeldb.Channel{
		ChannelID:         id,
		CapacitySats:      50_000,
		LocalBalanceSats:  30_000,
		RemoteBalanceSats: 19_000,
		State:             channeldb.StateNormal,
	}
	require.NoError(t, store.Put(record))
	return lnwallet.NewChannel(record, store)
}

func TestHandleIncomingAddFulfillsKnownInvoice(t *testing.T) {
	store := newTestStore(t)
	ch := newTestChannel(t, store, "chan-1")
	invoices := invoiceregistry.New(time.Hour)

	sw := New(invoices, func(id string) (*lnwallet.Channel, bool) {
		if id == "chan-1" {
			return ch, true
		}
		return nil, false
	}, nil)

	inv, err := invoices.Create(1000, "", 0)
	require.NoError(t, err)

	msg := &lnwire.UpdateAddHTLC{
		PaymentHash: inv.PaymentHash,
		AmountMsat:  1000 * 1000,
		Expiry:      1000,
	}
	outcome, err := sw.HandleIncomingAdd("chan-1", msg)
	require.NoError(t, err)
	require.False(t, outcome.Failed)

	settled, err := invoices.Lookup(inv.PaymentHash)
	require.NoError(t, err)
	require.True(t, settled.Settled)
}

func TestHandleIncomingAddFailsUnknownHash(t *testing.T) {
	store := newTestStore(t)
	ch := newTestChannel(t, store, "chan-2")
	invoices := invoiceregistry.New(time.Hour)

	sw := New(invoices, func(id string) (*lnwallet.Channel, bool) {
		return ch, true
	}, nil)

	var unknownHash [32]byte
	copy(unknownHash[:], []byte("not a real invoice hash........"))

	msg := &lnwire.UpdateAddHTLC{
		PaymentHash: unknownHash,
		AmountMsat:  1000 * 1000,
		Expiry:      1000,
	}
	outcome, err := sw.HandleIncomingAdd("chan-2", msg)
	require.NoError(t, err)
	require.True(t, outcome.Failed)
}

func TestSendHTLCTracksPendingUntilFulfilled(t *testing.T) {
	store := newTestStore(t)
	ch := newTestChannel(t, store, "chan-3")
	invoices := invoiceregistry.New(time.Hour)

	sw := New(invoices, func(id string) (*lnwallet.Channel, bool) {
		return ch, true
	}, nil)

	var preimage [32]byte
	copy(preimage[:], []byte("the preimage for that payment.."))
	hash := sha256.Sum256(preimage[:])

	result, err := sw.SendHTLC("chan-3", lnwallet.HTLCOut{
		PaymentHash: hash,
		AmountSats:  1000,
		Expiry:      1000,
	})
	require.NoError(t, err)

	sw.HandleIncomingFulfill(&lnwire.UpdateFulfillHTLC{PaymentPreimage: preimage})

	select {
	case out := <-result:
		require.False(t, out.Failed)
		require.Equal(t, preimage, out.Preimage)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for outcome")
	}
}
