package peer

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/satsengine/lnengine/pkg/logger"
)

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 2 * time.Minute
)

// Manager owns the set of connected peers, reconnecting outbound
// connections with exponential backoff, grounded on server.go's peer
// registry (the teacher's `server.peers` map guarded by a mutex).
type Manager struct {
	identity *btcec.PrivateKey
	handler  Handler

	mu    sync.Mutex
	peers map[string]*Peer
}

// New builds a peer Manager that authenticates outbound and inbound
// connections under identity and dispatches decoded messages to handler.
func New(identity *btcec.PrivateKey, handler Handler) *Manager {
	return &Manager{
		identity: identity,
		handler:  handler,
		peers:    make(map[string]*Peer),
	}
}

// Peer returns the currently connected peer for nodeID, if any.
func (m *Manager) Peer(nodeID string) (*Peer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.peers[nodeID]
	return p, ok
}

// Peers returns a snapshot of all currently registered peers.
func (m *Manager) Peers() []*Peer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Peer, 0, len(m.peers))
	for _, p := range m.peers {
		out = append(out, p)
	}
	return out
}

func (m *Manager) register(p *Peer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.peers[p.NodeID] = p
}

func (m *Manager) unregister(nodeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.peers, nodeID)
}

// Connect dials addr and maintains the connection to expectedNodeID,
// reconnecting with exponential backoff until ctx is cancelled. It
// returns once the first connection attempt either succeeds or ctx is
// done, then continues reconnecting in the background.
func (m *Manager) Connect(ctx context.Context, expectedNodeID, addr string) error {
	firstAttempt := make(chan error, 1)

	go func() {
		backoff := initialBackoff
		first := true

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			conn, remotePub, err := dialAndHandshake(ctx, addr, m.identity)
			if err != nil {
				if first {
					firstAttempt <- err
					first = false
				}
				logger.Warn("peer: connect attempt failed, backing off",
					zap.String("addr", addr), zap.Duration("backoff", backoff), zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}
				backoff = nextBackoff(backoff)
				continue
			}

			nodeID := fmt.Sprintf("%x", remotePub.SerializeCompressed())
			if expectedNodeID != "" && nodeID != expectedNodeID {
				conn.Close()
				err := fmt.Errorf("peer: handshake identity mismatch, expected %s got %s", expectedNodeID, nodeID)
				if first {
					firstAttempt <- err
					first = false
				}
				return
			}

			p := newPeer(nodeID, conn, m.handler)
			m.register(p)
			if first {
				firstAttempt <- nil
				first = false
			}
			backoff = initialBackoff

			_ = p.run(ctx)
			m.unregister(nodeID)

			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
		}
	}()

	select {
	case err := <-firstAttempt:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Accept wraps an already-accepted inbound net.Conn in the responder
// side of the transport handshake and registers the resulting peer.
func (m *Manager) Accept(ctx context.Context, conn net.Conn) error {
	aead, remotePub, err := handshake(conn, m.identity, false)
	if err != nil {
		conn.Close()
		return err
	}

	nodeID := fmt.Sprintf("%x", remotePub.SerializeCompressed())
	p := newPeer(nodeID, newFrameConn(conn, aead), m.handler)
	m.register(p)

	go func() {
		_ = p.run(ctx)
		m.unregister(nodeID)
	}()

	return nil
}

// Disconnect tears down the connection to nodeID, if present.
func (m *Manager) Disconnect(nodeID string) {
	m.mu.Lock()
	p, ok := m.peers[nodeID]
	delete(m.peers, nodeID)
	m.mu.Unlock()
	if ok {
		p.conn.Close()
	}
}

func nextBackoff(cur time.Duration) time.Duration {
	next := cur * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
