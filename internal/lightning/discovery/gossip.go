// Package discovery applies channel-update announcements gossiped by
// directly connected peers into the local routing graph. Scoped down
// from the teacher's AuthenticatedGossiper (which validates and relays
// announcements across the wider network) to an endpoint node's needs:
// this engine only ever has edges to peers it already has, or is
// opening, a channel with (spec §4.5 Open Question 4 — no LSP/broader
// gossip relay). Signature-verification shape is grounded on
// discovery/validation.go's validateChannelUpdateAnn.
package discovery

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/satsengine/lnengine/internal/lightning/routing"
)

// ErrInvalidSignature is returned when a gossiped announcement's
// signature does not verify against the advertised node key, per spec
// §7's Protocol error kind.
var ErrInvalidSignature = errors.New("discovery: invalid announcement signature")

// ChannelUpdate is the subset of BOLT-7's channel_update this engine
// consumes: the advertised fee schedule and limits for one direction of
// a channel it has an edge to.
type ChannelUpdate struct {
	ChannelID                 string
	AdvertisingNode           string
	CounterpartyNode          string
	CapacitySats              int64
	FeeBaseMsat               int64
	FeeProportionalMillionths int64
	MinHTLCMsat               int64
	CLTVExpiryDelta           uint16
	Signature                 []byte
	SignerPubKey              *btcec.PublicKey
}

func (u *ChannelUpdate) digest() [32]byte {
	var buf []byte
	buf = append(buf, []byte(u.ChannelID)...)
	buf = append(buf, []byte(u.AdvertisingNode)...)
	buf = append(buf, []byte(u.CounterpartyNode)...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(u.CapacitySats))
	buf = binary.BigEndian.AppendUint64(buf, uint64(u.FeeBaseMsat))
	buf = binary.BigEndian.AppendUint64(buf, uint64(u.FeeProportionalMillionths))
	buf = binary.BigEndian.AppendUint64(buf, uint64(u.MinHTLCMsat))
	buf = binary.BigEndian.AppendUint16(buf, u.CLTVExpiryDelta)
	return sha256.Sum256(buf)
}

// Validate checks the update's signature against its claimed signer,
// mirroring validateChannelUpdateAnn's "signature covers the
// announcement, signed by the node's private key" check.
func (u *ChannelUpdate) Validate() error {
	if u.SignerPubKey == nil || len(u.Signature) == 0 {
		return fmt.Errorf("%w: missing signature or signer", ErrInvalidSignature)
	}
	digest := u.digest()
	sig, err := ecdsa.ParseDERSignature(u.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !sig.Verify(digest[:], u.SignerPubKey) {
		return ErrInvalidSignature
	}
	return nil
}

// Gossiper applies validated peer announcements into a routing.Graph.
type Gossiper struct {
	graph *routing.Graph
}

// New builds a Gossiper writing into graph.
func New(graph *routing.Graph) *Gossiper {
	return &Gossiper{graph: graph}
}

// ApplyChannelUpdate validates update and, if valid, upserts the
// corresponding edge into the routing graph.
func (g *Gossiper) ApplyChannelUpdate(u *ChannelUpdate) error {
	if err := u.Validate(); err != nil {
		return err
	}
	g.graph.UpsertEdge(routing.Edge{
		ChannelID:                 u.ChannelID,
		Node1:                     u.AdvertisingNode,
		Node2:                     u.CounterpartyNode,
		CapacitySats:              u.CapacitySats,
		FeeBaseMsat:               u.FeeBaseMsat,
		FeeProportionalMillionths: u.FeeProportionalMillionths,
		MinHTLCMsat:               u.MinHTLCMsat,
		CLTVExpiryDelta:           u.CLTVExpiryDelta,
	})
	return nil
}

// RemoveChannel drops a channel's edge, e.g. once it has closed.
func (g *Gossiper) RemoveChannel(channelID string) {
	g.graph.RemoveEdge(channelID)
}
