package peer

import (
	"context"
	"crypto/cipher"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/satsengine/lnengine/internal/lightning/lnwire"
)

type recordingHandler struct {
	mu       sync.Mutex
	received []lnwire.Message
	done     chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{done: make(chan struct{}, 10)}
}

func (h *recordingHandler) HandleMessage(peerNodeID string, msg lnwire.Message) {
	h.mu.Lock()
	h.received = append(h.received, msg)
	h.mu.Unlock()
	h.done <- struct{}{}
}

func TestHandshakeRoundTrip(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	serverKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	clientKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	var serverAEAD, clientAEAD cipher.AEAD
	var wg sync.WaitGroup
	wg.Add(2)

	var serverErr, clientErr error
	go func() {
		defer wg.Done()
		aead, _, err := handshake(serverConn, serverKey, false)
		serverErr = err
		if aead != nil {
			serverAEAD = aead
		}
	}()
	go func() {
		defer wg.Done()
		aead, _, err := handshake(clientConn, clientKey, true)
		clientErr = err
		if aead != nil {
			clientAEAD = aead
		}
	}()
	wg.Wait()

	require.NoError(t, serverErr)
	require.NoError(t, clientErr)
	require.NotNil(t, serverAEAD)
	require.NotNil(t, clientAEAD)
}

func TestManagerConnectAndAccept(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	serverKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	clientKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	serverHandler := newRecordingHandler()
	serverMgr := New(serverKey, serverHandler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	acceptErrCh := make(chan error, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			acceptErrCh <- err
			return
		}
		acceptErrCh <- serverMgr.Accept(ctx, conn)
	}()

	clientHandler := newRecordingHandler()
	clientMgr := New(clientKey, clientHandler)

	err = clientMgr.Connect(ctx, "", listener.Addr().String())
	require.NoError(t, err)
	require.NoError(t, <-acceptErrCh)

	peers := clientMgr.Peers()
	require.Len(t, peers, 1)

	var chanID lnwire.ChannelID
	msg := &lnwire.UpdateFulfillHTLC{ChannelID: chanID, ID: 1}
	require.NoError(t, peers[0].Send(msg))

	select {
	case <-serverHandler.done:
	case <-time.After(2 * time.Second):
		t.Fatal("server never received message")
	}

	serverHandler.mu.Lock()
	require.Len(t, serverHandler.received, 1)
	serverHandler.mu.Unlock()
}
