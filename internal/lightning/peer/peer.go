package peer

import (
	"context"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/satsengine/lnengine/internal/lightning/lnwire"
	"github.com/satsengine/lnengine/pkg/logger"
)

// Handler receives inbound wire messages from a connected peer.
// lightning.Node implements this, passing commitment and HTLC messages on
// to lnwallet.Channel and htlcswitch.Switch.
type Handler interface {
	HandleMessage(peerNodeID string, msg lnwire.Message)
}

// Peer is one long-lived connection to a counterparty Lightning node,
// grounded on the teacher's peer.go split between a readHandler and a
// writeHandler goroutine communicating over a queueing channel.
type Peer struct {
	NodeID string

	conn    *frameConn
	outbox  chan lnwire.Message
	handler Handler

	mu        sync.Mutex
	connected bool
}

func newPeer(nodeID string, conn *frameConn, handler Handler) *Peer {
	return &Peer{
		NodeID:  nodeID,
		conn:    conn,
		outbox:  make(chan lnwire.Message, 50),
		handler: handler,
	}
}

// Send queues a message for the write loop. Non-blocking up to the
// outbox's buffer; a full outbox indicates a stuck peer connection.
func (p *Peer) Send(msg lnwire.Message) error {
	select {
	case p.outbox <- msg:
		return nil
	default:
		return fmt.Errorf("peer %s: outbox full", p.NodeID)
	}
}

// run drives the read and write loops until ctx is cancelled or the
// connection fails, mirroring peer.go's readHandler/writeHandler split.
func (p *Peer) run(ctx context.Context) error {
	p.mu.Lock()
	p.connected = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.connected = false
		p.mu.Unlock()
	}()

	errCh := make(chan error, 2)

	go func() {
		for {
			msg, err := p.conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			p.handler.HandleMessage(p.NodeID, msg)
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case msg := <-p.outbox:
				if err := p.conn.WriteMessage(msg); err != nil {
					errCh <- err
					return
				}
			}
		}
	}()

	err := <-errCh
	p.conn.Close()
	return err
}

// Connected reports whether the peer's connection is currently live.
func (p *Peer) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// dialAndHandshake opens a TCP connection to addr and performs the
// transport handshake as the initiator.
func dialAndHandshake(ctx context.Context, addr string, identity *btcec.PrivateKey) (*frameConn, *btcec.PublicKey, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("peer: dialing %s: %w", addr, err)
	}

	aead, remotePub, err := handshake(conn, identity, true)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	logger.Info("peer: connected", zap.String("addr", addr))
	return newFrameConn(conn, aead), remotePub, nil
}
