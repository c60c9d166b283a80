// Package lightning wires together the peer protocol, channel state
// machine, invoice registry, routing graph and contract resolution into
// the single Lightning Node subsystem spec §4.5 describes, grounded on
// lnd.go's lndMain/newServer wiring (package main), collapsed here into
// one orchestrator since this engine runs a single instance rather than
// the teacher's pluggable multi-chain-backend server.
package lightning

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/satsengine/lnengine/internal/chainclient"
	"github.com/satsengine/lnengine/internal/lightning/channeldb"
	"github.com/satsengine/lnengine/internal/lightning/contractcourt"
	"github.com/satsengine/lnengine/internal/lightning/discovery"
	"github.com/satsengine/lnengine/internal/lightning/htlcswitch"
	"github.com/satsengine/lnengine/internal/lightning/invoiceregistry"
	"github.com/satsengine/lnengine/internal/lightning/lnwallet"
	"github.com/satsengine/lnengine/internal/lightning/lnwire"
	"github.com/satsengine/lnengine/internal/lightning/onion"
	"github.com/satsengine/lnengine/internal/lightning/peer"
	"github.com/satsengine/lnengine/internal/lightning/routing"
	"github.com/satsengine/lnengine/internal/lightning/zpay32"
	"github.com/satsengine/lnengine/internal/walletcore"
	"github.com/satsengine/lnengine/pkg/logger"
)

// ErrInvoiceExpired is returned by SendPayment for an expired invoice,
// per spec §4.1 "fails fast on ... expired invoice".
var ErrInvoiceExpired = fmt.Errorf("lightning: invoice has expired")

// PaymentStatus mirrors spec §4.1/§6's SendPayment status enum.
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusSucceeded PaymentStatus = "succeeded"
	StatusFailed    PaymentStatus = "failed"
)

const htlcDispatchTimeout = 30 * time.Second

// Node is the Lightning Node subsystem: one per running engine. It owns
// the peer connections, the local channel set, the invoice registry,
// the routing graph, and contract resolution for closed channels.
type Node struct {
	params *chaincfg.Params
	wallet *walletcore.Wallet
	nodeID string

	channelStore *channeldb.Store
	chain        *chainclient.Client

	mu       sync.RWMutex
	channels map[string]*lnwallet.Channel

	invoices    *invoiceregistry.Registry
	switcher    *htlcswitch.Switch
	graph       *routing.Graph
	gossiper    *discovery.Gossiper
	court       *contractcourt.Court
	peers       *peer.Manager
	onionRouter *onion.Router

	htlcMu          sync.Mutex
	nextHTLCID      map[string]uint64
	pendingOutgoing map[string]map[uint64][32]byte

	defaultInvoiceExpiry time.Duration
	confirmationsReady   uint32
	paymentRetryMax      int
}

// Config bundles the dependencies Node needs at construction time.
type Config struct {
	Params               *chaincfg.Params
	Wallet               *walletcore.Wallet
	ChannelStore         *channeldb.Store
	Chain                *chainclient.Client
	DefaultInvoiceExpiry time.Duration
	ConfirmationsReady   uint32
	PaymentRetryMax      int
}

// New constructs a Node and its subsystems, deriving the node's
// Lightning identity key from the wallet's dedicated key family (spec
// §4.5 "the node identity ... derive from the wallet seed along
// dedicated BIP-32 paths, distinct from on-chain address paths").
func New(cfg Config) (*Node, error) {
	nodeID, err := cfg.Wallet.NodeID()
	if err != nil {
		return nil, fmt.Errorf("lightning: deriving node identity: %w", err)
	}

	n := &Node{
		params:               cfg.Params,
		wallet:               cfg.Wallet,
		nodeID:               nodeID,
		channelStore:         cfg.ChannelStore,
		chain:                cfg.Chain,
		channels:             make(map[string]*lnwallet.Channel),
		invoices:             invoiceregistry.New(cfg.DefaultInvoiceExpiry),
		graph:                routing.NewGraph(),
		court:                contractcourt.New(30 * time.Second),
		nextHTLCID:           make(map[string]uint64),
		pendingOutgoing:      make(map[string]map[uint64][32]byte),
		defaultInvoiceExpiry: cfg.DefaultInvoiceExpiry,
		confirmationsReady:   cfg.ConfirmationsReady,
		paymentRetryMax:      cfg.PaymentRetryMax,
	}
	n.gossiper = discovery.New(n.graph)

	identityKey, err := cfg.Wallet.ChannelSigningKey(walletcore.KeyFamilyNodeIdentity, 0)
	if err != nil {
		return nil, fmt.Errorf("lightning: deriving peer transport identity key: %w", err)
	}
	n.onionRouter = onion.NewRouter(identityKey, cfg.Params)
	n.switcher = htlcswitch.New(n.invoices, n.lookupChannel, n.onionRouter)
	n.peers = peer.New(identityKey, n)

	return n, nil
}

// lookupChannel adapts Node's channel map to htlcswitch.ChannelLookup.
func (n *Node) lookupChannel(channelID string) (*lnwallet.Channel, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	ch, ok := n.channels[channelID]
	return ch, ok
}

// wireChannelID maps this engine's string channel identifiers into the
// fixed 32-byte field the wire protocol carries. Channel ids here are
// derived from the funding outpoint and fit comfortably within 32
// bytes; longer identifiers are truncated.
func wireChannelID(channelID string) lnwire.ChannelID {
	var out lnwire.ChannelID
	copy(out[:], channelID)
	return out
}

// channelIDString reverses wireChannelID for an already-trusted message
// (the channel id was chosen by this engine or its counterparty at
// funding time, so trailing zero padding is safe to strip).
func channelIDString(c lnwire.ChannelID) string {
	return string(bytes.TrimRight(c[:], "\x00"))
}

// Start replays persisted channel state, reconnects to every
// counterparty with a still-open channel, logs the current chain tip,
// and begins the contract-court poll loop. It does not compare channel
// state against the chain: outputs spent while the engine was offline
// are not detected here.
func (n *Node) Start(ctx context.Context) error {
	records, err := n.channelStore.All()
	if err != nil {
		return fmt.Errorf("lightning: loading persisted channels: %w", err)
	}

	if n.chain != nil {
		logger.Info("lightning: reconciling channel state against chain tip",
			zap.Uint32("tip", n.chain.Tip()), zap.Int("channel_count", len(records)))
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, record := range records {
		record := record
		ch := lnwallet.NewChannel(record, n.channelStore)

		n.mu.Lock()
		n.channels[record.ChannelID] = ch
		n.mu.Unlock()

		if record.State >= channeldb.StateClosedCooperative {
			continue
		}

		counterparty := record.CounterpartyNodeID
		addr := record.PeerAddress
		g.Go(func() error {
			if err := n.peers.Connect(gctx, counterparty, addr); err != nil {
				logger.Warn("lightning: reconnect failed at startup",
					zap.String("channel_id", record.ChannelID), zap.Error(err))
			}
			return nil
		})
	}

	g.Go(func() error { return n.court.Run(gctx) })

	return g.Wait()
}

// HandleMessage implements peer.Handler, dispatching inbound wire
// messages to the channel state machine or the HTLC switch.
func (n *Node) HandleMessage(peerNodeID string, msg lnwire.Message) {
	switch m := msg.(type) {
	case *lnwire.UpdateAddHTLC:
		n.handleIncomingAdd(m)
	case *lnwire.UpdateFulfillHTLC:
		n.handleIncomingFulfill(m)
	case *lnwire.UpdateFailHTLC:
		n.handleIncomingFail(m)
	case *lnwire.RevokeAndAck:
		n.handleRevokeAndAck(m)
	case *lnwire.FundingLocked:
		n.handleFundingLocked(m)
	case *lnwire.CommitmentSigned, *lnwire.ChannelReestablish, *lnwire.Shutdown:
		logger.Info("lightning: received message with no dedicated handler yet",
			zap.String("peer", peerNodeID))
	default:
		logger.Warn("lightning: dropping message of unhandled type", zap.String("peer", peerNodeID))
	}
}

func (n *Node) handleIncomingAdd(m *lnwire.UpdateAddHTLC) {
	id := channelIDString(m.ChannelID)
	outcome, err := n.switcher.HandleIncomingAdd(id, m)
	if err != nil {
		logger.Error("lightning: handling incoming add", zap.Error(err))
		return
	}

	var reply lnwire.Message
	if outcome.Failed {
		reply = &lnwire.UpdateFailHTLC{ChannelID: m.ChannelID, ID: m.ID}
	} else {
		reply = &lnwire.UpdateFulfillHTLC{ChannelID: m.ChannelID, ID: m.ID, PaymentPreimage: outcome.Preimage}
	}
	if err := n.sendToChannelPeer(id, reply); err != nil {
		logger.Warn("lightning: sending htlc reply", zap.Error(err))
	}
}

func (n *Node) handleIncomingFulfill(m *lnwire.UpdateFulfillHTLC) {
	id := channelIDString(m.ChannelID)
	n.forgetOutgoing(id, m.ID)
	n.switcher.HandleIncomingFulfill(m)
}

func (n *Node) handleIncomingFail(m *lnwire.UpdateFailHTLC) {
	id := channelIDString(m.ChannelID)
	hash, ok := n.forgetOutgoing(id, m.ID)
	if !ok {
		logger.Warn("lightning: fail for unknown outgoing htlc", zap.String("channel_id", id))
		return
	}
	n.switcher.HandleIncomingFail(hash, 0)
}

func (n *Node) handleRevokeAndAck(m *lnwire.RevokeAndAck) {
	id := channelIDString(m.ChannelID)
	ch, ok := n.lookupChannel(id)
	if !ok {
		logger.Warn("lightning: revocation for unknown channel", zap.String("channel_id", id))
		return
	}
	if err := ch.ReceiveRevocation(ch.CommitmentNumber(), m.Revocation); err != nil {
		logger.Error("lightning: applying revocation", zap.Error(err))
	}
}

func (n *Node) handleFundingLocked(m *lnwire.FundingLocked) {
	id := channelIDString(m.ChannelID)
	ch, ok := n.lookupChannel(id)
	if !ok {
		logger.Warn("lightning: funding_locked for unknown channel", zap.String("channel_id", id))
		return
	}
	if err := ch.MarkActive(); err != nil {
		logger.Error("lightning: marking channel active", zap.Error(err))
	}
}

// sendToChannelPeer looks up the channel's counterparty and, if
// connected, queues msg for delivery.
func (n *Node) sendToChannelPeer(channelID string, msg lnwire.Message) error {
	ch, ok := n.lookupChannel(channelID)
	if !ok {
		return fmt.Errorf("lightning: unknown channel %s", channelID)
	}
	p, ok := n.peers.Peer(ch.CounterpartyNodeID())
	if !ok {
		return fmt.Errorf("lightning: peer %s not connected", ch.CounterpartyNodeID())
	}
	return p.Send(msg)
}

func (n *Node) allocateHTLCID(channelID string) uint64 {
	n.htlcMu.Lock()
	defer n.htlcMu.Unlock()
	id := n.nextHTLCID[channelID]
	n.nextHTLCID[channelID] = id + 1
	return id
}

func (n *Node) trackOutgoing(channelID string, id uint64, hash [32]byte) {
	n.htlcMu.Lock()
	defer n.htlcMu.Unlock()
	if n.pendingOutgoing[channelID] == nil {
		n.pendingOutgoing[channelID] = make(map[uint64][32]byte)
	}
	n.pendingOutgoing[channelID][id] = hash
}

func (n *Node) forgetOutgoing(channelID string, id uint64) ([32]byte, bool) {
	n.htlcMu.Lock()
	defer n.htlcMu.Unlock()
	byID, ok := n.pendingOutgoing[channelID]
	if !ok {
		return [32]byte{}, false
	}
	hash, ok := byID[id]
	if ok {
		delete(byID, id)
	}
	return hash, ok
}

// NewInvoice mints a new invoice and its BOLT-11 encoding, per spec
// §4.1 NewInvoice.
func (n *Node) NewInvoice(amountSats int64, memo string) (string, [32]byte, error) {
	inv, err := n.invoices.Create(amountSats, memo, n.defaultInvoiceExpiry)
	if err != nil {
		return "", [32]byte{}, err
	}

	destKey, err := n.wallet.ChannelSigningKey(walletcore.KeyFamilyNodeIdentity, 0)
	if err != nil {
		return "", [32]byte{}, fmt.Errorf("lightning: loading signing key for invoice: %w", err)
	}

	bolt11Invoice := &zpay32.Invoice{
		Net:          n.params,
		MilliSat:     uint64(amountSats) * 1000,
		Timestamp:    inv.CreatedAt,
		PaymentHash:  inv.PaymentHash,
		Destination:  destKey.PubKey(),
		Description:  memo,
		Expiry:       inv.Expiry,
		MinFinalCLTV: 40,
	}

	encoded, err := zpay32.Encode(bolt11Invoice, func(hash []byte) ([]byte, error) {
		return signRecoverable(destKey, hash)
	})
	if err != nil {
		return "", [32]byte{}, fmt.Errorf("lightning: encoding invoice: %w", err)
	}

	return encoded, inv.PaymentHash, nil
}

// GetBalance sums the local balance of every channel eligible for
// reporting (state normal or later), per spec §5's balance-report
// ordering guarantee.
func (n *Node) GetBalance() int64 {
	n.mu.RLock()
	defer n.mu.RUnlock()

	var total int64
	for _, ch := range n.channels {
		if ch.EligibleForBalanceReport() {
			total += ch.LocalBalanceSats()
		}
	}
	return total
}

// SendPayment decodes a BOLT-11 invoice, finds a route over the local
// channel graph, and dispatches the first-hop HTLC, returning as soon as
// it is in flight (spec §4.5 payment dispatch). The caller receives
// StatusPending immediately; resolution happens in the background and
// is observed through the returned channel.
func (n *Node) SendPayment(ctx context.Context, bolt11 string) ([32]byte, PaymentStatus, <-chan PaymentStatus, error) {
	invoice, err := zpay32.Decode(bolt11, n.params)
	if err != nil {
		return [32]byte{}, StatusFailed, nil, err
	}
	if invoice.IsExpired(time.Now()) {
		return invoice.PaymentHash, StatusFailed, nil, ErrInvoiceExpired
	}

	destNodeID := fmt.Sprintf("%x", invoice.Destination.SerializeCompressed())

	result := make(chan PaymentStatus, 1)
	go n.dispatchPayment(ctx, invoice, destNodeID, result)

	return invoice.PaymentHash, StatusPending, result, nil
}

func (n *Node) dispatchPayment(ctx context.Context, invoice *zpay32.Invoice, destNodeID string, result chan<- PaymentStatus) {
	attempts := n.paymentRetryMax
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if invoice.IsExpired(time.Now()) {
			result <- StatusFailed
			return
		}

		route, err := routing.FindRoute(n.graph, n.nodeID, destNodeID, int64(invoice.MilliSat))
		if err != nil || len(route.Hops) == 0 {
			logger.Warn("lightning: no route found", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		onionBlob, err := n.buildOnionBlob(route, invoice)
		if err != nil {
			logger.Warn("lightning: building onion packet failed", zap.Error(err))
			continue
		}

		firstHop := route.Hops[0]
		outcomeCh, err := n.switcher.SendHTLC(firstHop.ChannelID, lnwallet.HTLCOut{
			PaymentHash: invoice.PaymentHash,
			AmountSats:  firstHop.AmountMsat / 1000,
			Expiry:      uint32(invoice.MinFinalCLTV),
		})
		if err != nil {
			logger.Warn("lightning: dispatching htlc failed", zap.Error(err))
			continue
		}

		htlcID := n.allocateHTLCID(firstHop.ChannelID)
		n.trackOutgoing(firstHop.ChannelID, htlcID, invoice.PaymentHash)

		addMsg := &lnwire.UpdateAddHTLC{
			ChannelID:   wireChannelID(firstHop.ChannelID),
			ID:          htlcID,
			AmountMsat:  uint64(firstHop.AmountMsat),
			PaymentHash: invoice.PaymentHash,
			Expiry:      uint32(invoice.MinFinalCLTV),
			OnionBlob:   onionBlob,
		}
		if err := n.sendToChannelPeer(firstHop.ChannelID, addMsg); err != nil {
			logger.Warn("lightning: sending htlc to peer failed", zap.Error(err))
			n.switcher.CancelPending(invoice.PaymentHash)
			n.forgetOutgoing(firstHop.ChannelID, htlcID)
			continue
		}

		select {
		case outcome := <-outcomeCh:
			if !outcome.Failed {
				result <- StatusSucceeded
				return
			}
		case <-time.After(htlcDispatchTimeout):
			n.switcher.CancelPending(invoice.PaymentHash)
			n.forgetOutgoing(firstHop.ChannelID, htlcID)
		case <-ctx.Done():
			n.switcher.CancelPending(invoice.PaymentHash)
			n.forgetOutgoing(firstHop.ChannelID, htlcID)
			result <- StatusFailed
			return
		}
	}

	result <- StatusFailed
}

// buildOnionBlob wraps route's hops into a BOLT-4 onion packet addressed
// to the final destination, per spec §4.5/§6. Each hop's amount comes
// from the route itself; the per-hop expiry uses the invoice's final
// CLTV delta for every hop rather than an accumulated per-hop delta —
// routing.Hop does not carry the latter, and this engine
// never forwards a packet it did not originate, so no hop but the last
// ever actually consults its own expiry field.
func (n *Node) buildOnionBlob(route *routing.Route, invoice *zpay32.Invoice) ([]byte, error) {
	hops := make([]onion.Hop, len(route.Hops))
	for i, h := range route.Hops {
		pubKeyBytes, err := hex.DecodeString(h.NodeID)
		if err != nil {
			return nil, fmt.Errorf("lightning: decoding hop node id: %w", err)
		}
		pubKey, err := btcec.ParsePubKey(pubKeyBytes)
		if err != nil {
			return nil, fmt.Errorf("lightning: parsing hop public key: %w", err)
		}
		hops[i] = onion.Hop{
			NodePub:    pubKey,
			AmountMsat: uint64(h.AmountMsat),
			Expiry:     uint32(invoice.MinFinalCLTV),
		}
	}
	return onion.BuildPacket(hops, invoice.PaymentHash)
}

// signRecoverable produces a 65-byte [R || S || recovery_id] signature
// over hash in BOLT-11's wire order; ecdsa.SignCompact returns
// [recovery_byte || R || S], so the two halves are swapped.
func signRecoverable(key *btcec.PrivateKey, hash []byte) ([]byte, error) {
	sig, err := ecdsa.SignCompact(key, hash, true)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 65)
	copy(out[:64], sig[1:])
	out[64] = sig[0] - 27 - 4
	return out, nil
}
