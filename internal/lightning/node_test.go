package lightning

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"

	"github.com/satsengine/lnengine/internal/lightning/channeldb"
	"github.com/satsengine/lnengine/internal/lightning/lnwallet"
	"github.com/satsengine/lnengine/internal/lightning/zpay32"
	"github.com/satsengine/lnengine/internal/persistence"
	"github.com/satsengine/lnengine/internal/walletcore"
)

func newTestNode(t *testing.T) *Node {
	t.Helper()

	mnemonic, err := walletcore.GenerateMnemonic(12)
	require.NoError(t, err)
	wallet, err := walletcore.New(mnemonic, "", &chaincfg.TestNet3Params)
	require.NoError(t, err)
	t.Cleanup(wallet.Close)

	dir, err := os.MkdirTemp("", "node-test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	db, err := persistence.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := channeldb.New(db)

	n, err := New(Config{
		Params:               &chaincfg.TestNet3Params,
		Wallet:               wallet,
		ChannelStore:         store,
		DefaultInvoiceExpiry: time.Hour,
		ConfirmationsReady:   3,
		PaymentRetryMax:      3,
	})
	require.NoError(t, err)
	return n
}

func TestNewInvoiceDecodesBackToSameHash(t *testing.T) {
	n := newTestNode(t)

	bolt11, hash, err := n.NewInvoice(5000, "coffee")
	require.NoError(t, err)
	require.NotEmpty(t, bolt11)

	decoded, err := zpay32.Decode(bolt11, &chaincfg.TestNet3Params)
	require.NoError(t, err)
	require.Equal(t, hash, decoded.PaymentHash)
	require.Equal(t, uint64(5000*1000), decoded.MilliSat)
}

func TestNewInvoiceRejectsOutOfRangeAmount(t *testing.T) {
	n := newTestNode(t)
	_, _, err := n.NewInvoice(0, "")
	require.Error(t, err)
}

func TestGetBalanceSumsOnlyEligibleChannels(t *testing.T) {
	n := newTestNode(t)

	active := &channeldb.Channel{
		ChannelID:         "chan-active",
		CapacitySats:      10_000,
		LocalBalanceSats:  4_000,
		RemoteBalanceSats: 6_000,
		State:             channeldb.StateNormal,
	}
	pending := &channeldb.Channel{
		ChannelID:         "chan-pending",
		CapacitySats:      10_000,
		LocalBalanceSats:  9_000,
		RemoteBalanceSats: 1_000,
		State:             channeldb.StateOpeningPending,
	}
	require.NoError(t, n.channelStore.Put(active))
	require.NoError(t, n.channelStore.Put(pending))

	n.mu.Lock()
	n.channels["chan-active"] = lnwallet.NewChannel(active, n.channelStore)
	n.channels["chan-pending"] = lnwallet.NewChannel(pending, n.channelStore)
	n.mu.Unlock()

	require.Equal(t, int64(4_000), n.GetBalance())
}

func TestSendPaymentFailsFastOnMalformedInvoice(t *testing.T) {
	n := newTestNode(t)
	_, status, _, err := n.SendPayment(context.Background(), "not a bolt11 invoice")
	require.Error(t, err)
	require.Equal(t, StatusFailed, status)
}

func TestSendPaymentFailsOnExpiredInvoice(t *testing.T) {
	payee := newTestNode(t)
	payee.defaultInvoiceExpiry = time.Nanosecond

	bolt11, _, err := payee.NewInvoice(1000, "")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	payer := newTestNode(t)
	_, status, _, err := payer.SendPayment(context.Background(), bolt11)
	require.ErrorIs(t, err, ErrInvoiceExpired)
	require.Equal(t, StatusFailed, status)
}

func TestSendPaymentFailsWithNoRoute(t *testing.T) {
	payee := newTestNode(t)
	bolt11, hash, err := payee.NewInvoice(1000, "")
	require.NoError(t, err)

	payer := newTestNode(t)
	gotHash, status, resultCh, err := payer.SendPayment(context.Background(), bolt11)
	require.NoError(t, err)
	require.Equal(t, hash, gotHash)
	require.Equal(t, StatusPending, status)

	select {
	case final := <-resultCh:
		require.Equal(t, StatusFailed, final)
	case <-time.After(2 * time.Second):
		t.Fatal("payment never resolved")
	}
}
