// Package onion constructs and decodes the onion-encrypted payment blob
// carried in UpdateAddHTLC.OnionBlob, per spec §4.5 ("construct an
// onion-encrypted payment") and §6's BOLT-4 bit-exactness requirement.
//
// Grounded on the teacher's own use of github.com/lightningnetwork/lightning-onion:
// server.go's sphinx.Router field and sphinx.NewRouter construction, and
// peer.go's receive-side decode/process dance (OnionPacket.Decode,
// Router.ProcessOnionPacket, and the ExitNode/MoreHops switch). The
// teacher only ever receives and decodes — it has no sending-side call
// in the pack to ground against, since every payment lnd originates in
// that snapshot is still source-routed by a caller outside server.go.
// The packet-construction side here (sessionKey, PaymentPath, HopPayload)
// is reconstructed from the library's well-known sender API rather than
// copied from a pack example; see DESIGN.md.
package onion

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	sphinx "github.com/lightningnetwork/lightning-onion"
)

// ErrForwardingUnsupported is returned by ProcessIncoming when a decoded
// packet asks this node to relay to a further hop. This engine is an
// endpoint only (spec §4.5, Open Question 3) and never forwards, so any
// MoreHops instruction is a protocol violation from our point of view.
var ErrForwardingUnsupported = errors.New("onion: forwarding is not supported by this endpoint-only engine")

// Hop is one leg of the route being wrapped into an onion packet: the
// public key of the node at this hop, and the amount/expiry it should
// see once the packet is peeled one layer.
type Hop struct {
	NodePub    *btcec.PublicKey
	AmountMsat uint64
	Expiry     uint32
}

// Router wraps a sphinx.Router keyed to this node's own Lightning
// identity, used to peel onion packets addressed to us.
type Router struct {
	sphinx *sphinx.Router
}

// NewRouter builds a Router from this node's identity private key,
// mirroring server.go's sphinx.NewRouter(privKey, activeNetParams.Params)
// construction.
func NewRouter(identityKey *btcec.PrivateKey, params *chaincfg.Params) *Router {
	return &Router{sphinx: sphinx.NewRouter(identityKey, params)}
}

// BuildPacket constructs a BOLT-4 onion packet addressed through route,
// the final entry being the payment's destination. paymentHash is bound
// into the packet as associated data, exactly as peer.go passes rHash
// into ProcessOnionPacket on the receiving side, so any replay of the
// packet against a different payment hash fails to decrypt.
//
// Even a single-hop route (direct channel to the payee) is wrapped, per
// spec §4.5 — BOLT-4 does not special-case a one-hop path.
func BuildPacket(route []Hop, paymentHash [32]byte) ([]byte, error) {
	if len(route) == 0 {
		return nil, fmt.Errorf("onion: cannot build a packet for an empty route")
	}
	if len(route) > sphinx.NumMaxHops {
		return nil, fmt.Errorf("onion: route of %d hops exceeds the onion's maximum of %d", len(route), sphinx.NumMaxHops)
	}

	sessionKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("onion: generating session key: %w", err)
	}

	var path sphinx.PaymentPath
	var payloads [sphinx.NumMaxHops]sphinx.HopData
	for i, hop := range route {
		path[i] = sphinx.OnionHop{
			NodePub: *hop.NodePub,
		}
		payloads[i] = sphinx.HopData{
			Realm:         0,
			ForwardAmount: hop.AmountMsat,
			OutgoingCltv:  hop.Expiry,
		}
	}

	pkt, err := sphinx.NewOnionPacket(&path, sessionKey, payloads[:len(route)], paymentHash[:])
	if err != nil {
		return nil, fmt.Errorf("onion: building packet: %w", err)
	}

	var buf bytes.Buffer
	if err := pkt.Encode(&buf); err != nil {
		return nil, fmt.Errorf("onion: encoding packet: %w", err)
	}
	return buf.Bytes(), nil
}

// ProcessIncoming decodes and peels an inbound onion blob, verifying it
// against paymentHash as associated data (the same binding BuildPacket
// applied). It returns nil only when this node is the packet's final
// destination; any other outcome — a malformed packet, a hash mismatch,
// or an instruction to forward further — is an error.
func (r *Router) ProcessIncoming(onionBlob []byte, paymentHash [32]byte) error {
	pkt := &sphinx.OnionPacket{}
	if err := pkt.Decode(bytes.NewReader(onionBlob)); err != nil {
		return fmt.Errorf("onion: decoding packet: %w", err)
	}

	processed, err := r.sphinx.ProcessOnionPacket(pkt, paymentHash[:])
	if err != nil {
		return fmt.Errorf("onion: processing packet: %w", err)
	}

	switch processed.Action {
	case sphinx.ExitNode:
		return nil
	case sphinx.MoreHops:
		return ErrForwardingUnsupported
	default:
		return fmt.Errorf("onion: packet resolved to an unrecognized action")
	}
}
