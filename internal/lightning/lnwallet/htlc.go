package lnwallet

import (
	"github.com/satsengine/lnengine/internal/lightning/channeldb"
	"github.com/satsengine/lnengine/internal/lightning/lnwire"
)

// HTLCOut describes an outgoing HTLC this engine is originating, before
// it has been added to a commitment.
type HTLCOut struct {
	PaymentHash [32]byte
	AmountSats  int64
	Expiry      uint32
}

// ToRecord converts an outgoing HTLC into the channeldb.HTLC ledger
// entry AddHTLC expects.
func (h HTLCOut) ToRecord() channeldb.HTLC {
	return channeldb.HTLC{
		PaymentHash: h.PaymentHash,
		AmountSats:  h.AmountSats,
		Expiry:      h.Expiry,
		Incoming:    false,
	}
}

// HTLCFromWire converts a peer's UpdateAddHTLC into the channeldb.HTLC
// ledger entry for an incoming HTLC, converting msat to whole sats per
// spec §3's sat-denominated balances (the engine does not track
// sub-satoshi remainders; BOLT-3 commitments round HTLCs to whole sats).
func HTLCFromWire(msg *lnwire.UpdateAddHTLC) channeldb.HTLC {
	return channeldb.HTLC{
		PaymentHash: msg.PaymentHash,
		AmountSats:  int64(msg.AmountMsat / 1000),
		Expiry:      msg.Expiry,
		Incoming:    true,
	}
}
