// Package htlcswitch dispatches HTLCs between this engine's channels and
// its own invoice registry. Grounded on the teacher's htlcswitch.go
// (package main) link/htlcPacket shapes, trimmed to endpoint-only
// behavior: there is no forwarding table, no multi-link routing of an
// in-flight HTLC between two peers. An incoming HTLC is either claimed
// against a locally known invoice preimage or failed back — this is an
// endpoint node, not a routing node (spec §4.5, Open Question 3).
package htlcswitch

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/satsengine/lnengine/internal/lightning/invoiceregistry"
	"github.com/satsengine/lnengine/internal/lightning/lnwallet"
	"github.com/satsengine/lnengine/internal/lightning/lnwire"
	"github.com/satsengine/lnengine/internal/lightning/onion"
	"github.com/satsengine/lnengine/pkg/logger"
)

// ErrUnknownChannel is returned when a caller references a channel the
// switch has no link for.
var ErrUnknownChannel = errors.New("htlcswitch: unknown channel")

// ChannelLookup resolves a channel_id to its live lnwallet.Channel.
type ChannelLookup func(channelID string) (*lnwallet.Channel, bool)

// Outcome is the terminal result of a dispatched outgoing HTLC.
type Outcome struct {
	Preimage [32]byte
	Failed   bool
	FailCode lnwire.FailCode
}

// pendingSend tracks one outgoing HTLC this engine originated, awaiting
// either a fulfillment or a failure from the outgoing link.
type pendingSend struct {
	result chan Outcome
}

// Switch is the central HTLC dispatch point: it fulfills/fails incoming
// HTLCs against the invoice registry, and tracks outgoing HTLCs this
// engine originated until they resolve, per spec §4.5 payment dispatch
// ("the operation returns pending as soon as the HTLC is in-flight; a
// background task awaits fulfillment").
type Switch struct {
	invoices *invoiceregistry.Registry
	lookup   ChannelLookup
	router   *onion.Router

	mu      sync.Mutex
	pending map[[32]byte]*pendingSend // payment hash -> in-flight send
}

// New builds a Switch backed by invoices for settlement lookups, lookup
// for resolving channel_id to a live channel, and router for peeling the
// onion blob carried on each incoming add (spec §4.5/§6). router may be
// nil, in which case onion verification is skipped — used by tests that
// exercise the switch's HTLC bookkeeping in isolation from the onion
// layer.
func New(invoices *invoiceregistry.Registry, lookup ChannelLookup, router *onion.Router) *Switch {
	return &Switch{
		invoices: invoices,
		lookup:   lookup,
		router:   router,
		pending:  make(map[[32]byte]*pendingSend),
	}
}

// HandleIncomingAdd processes an UpdateAddHTLC received from a peer:
// adds it to the channel's commitment, and if the payment hash matches
// a locally known, unsettled invoice, immediately fulfills it; otherwise
// fails it back (no forwarding). The returned Outcome tells the caller
// which wire reply (fulfill or fail) to send back to the peer.
func (s *Switch) HandleIncomingAdd(channelID string, msg *lnwire.UpdateAddHTLC) (Outcome, error) {
	ch, ok := s.lookup(channelID)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownChannel, channelID)
	}

	if s.router != nil {
		if err := s.router.ProcessIncoming(msg.OnionBlob, msg.PaymentHash); err != nil {
			logger.Warn("htlcswitch: failing back htlc with invalid onion payload",
				zap.String("channel_id", channelID), zap.Error(err))
			return Outcome{Failed: true, FailCode: lnwire.FailInvalidOnionPayload}, nil
		}
	}

	if err := ch.AddHTLC(lnwallet.HTLCFromWire(msg)); err != nil {
		return Outcome{}, err
	}

	preimage, known := s.invoices.PreimageFor(msg.PaymentHash)
	if !known {
		logger.Warn("htlcswitch: failing back htlc with unknown payment hash",
			zap.String("channel_id", channelID))
		if err := ch.FailHTLC(msg.PaymentHash); err != nil {
			return Outcome{}, err
		}
		return Outcome{Failed: true, FailCode: lnwire.FailIncorrectPaymentDetails}, nil
	}

	if err := ch.SettleHTLC(preimage); err != nil {
		return Outcome{}, err
	}
	if _, err := s.invoices.Settle(preimage); err != nil {
		return Outcome{}, err
	}
	return Outcome{Preimage: preimage}, nil
}

// HandleIncomingFulfill processes an UpdateFulfillHTLC for an HTLC this
// engine originated, resolving the corresponding SendHTLC call.
func (s *Switch) HandleIncomingFulfill(msg *lnwire.UpdateFulfillHTLC) {
	hash := sha256.Sum256(msg.PaymentPreimage[:])

	s.mu.Lock()
	p, ok := s.pending[hash]
	if ok {
		delete(s.pending, hash)
	}
	s.mu.Unlock()

	if ok {
		p.result <- Outcome{Preimage: msg.PaymentPreimage}
	}
}

// HandleIncomingFail resolves an in-flight outgoing HTLC as failed.
func (s *Switch) HandleIncomingFail(paymentHash [32]byte, code lnwire.FailCode) {
	s.mu.Lock()
	p, ok := s.pending[paymentHash]
	if ok {
		delete(s.pending, paymentHash)
	}
	s.mu.Unlock()

	if ok {
		p.result <- Outcome{Failed: true, FailCode: code}
	}
}

// SendHTLC adds an outgoing HTLC to the first-hop channel and returns a
// channel that receives its terminal Outcome once the peer responds
// (spec §4.5: dispatch returns pending immediately; a background task
// awaits the result).
func (s *Switch) SendHTLC(channelID string, htlc lnwallet.HTLCOut) (<-chan Outcome, error) {
	ch, ok := s.lookup(channelID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, channelID)
	}
	if err := ch.AddHTLC(htlc.ToRecord()); err != nil {
		return nil, err
	}

	result := make(chan Outcome, 1)
	s.mu.Lock()
	s.pending[htlc.PaymentHash] = &pendingSend{result: result}
	s.mu.Unlock()

	return result, nil
}

// CancelPending abandons tracking of an in-flight send without
// resolving it, used when a route attempt times out so the next retry
// can use a fresh HTLC id.
func (s *Switch) CancelPending(paymentHash [32]byte) {
	s.mu.Lock()
	delete(s.pending, paymentHash)
	s.mu.Unlock()
}

