// Package channeldb persists Lightning channel state into the shared
// engine.db bucket layout (spec §4.7 a), distinct from the teacher's own
// channeldb package only in scope: this one owns a single channel record
// type rather than routing graphs, fee schedules and reputation data.
// Bucket naming and bolt.Update-before-acknowledge discipline are
// grounded on channeldb/db.go.
package channeldb

import (
	"fmt"

	"github.com/satsengine/lnengine/internal/lightning/shachain"
)

// State is a channel's lifecycle state, per spec §4.5.
type State uint8

const (
	StateOpeningPending State = iota
	StateOpeningAwaitingConfirmation
	StateNormal
	StateShutdownPending
	StateClosingNegotiation
	StateClosedCooperative
	StateClosedForce
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateOpeningPending:
		return "opening_pending"
	case StateOpeningAwaitingConfirmation:
		return "opening_awaiting_confirmation"
	case StateNormal:
		return "normal"
	case StateShutdownPending:
		return "shutdown_pending"
	case StateClosingNegotiation:
		return "closing_negotiation"
	case StateClosedCooperative:
		return "closed_cooperative"
	case StateClosedForce:
		return "closed_force"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// HTLC is a pending in-flight HTLC on a commitment, per spec §3.
type HTLC struct {
	PaymentHash [32]byte
	AmountSats  int64
	Expiry      uint32
	Incoming    bool
}

// Channel is the long-lived per-channel record spec §3 describes: id,
// counterparty, funding outpoint, capacity, balances, pending HTLCs,
// commitment number, and per-commitment secret ratchet state.
type Channel struct {
	ChannelID          string
	CounterpartyNodeID string
	// PeerAddress is the last known host:port for the counterparty,
	// used to reestablish the connection on restart (spec §4.7).
	PeerAddress     string
	FundingOutpoint string
	CapacitySats    int64
	LocalBalanceSats   int64
	RemoteBalanceSats  int64
	PendingHTLCs       []HTLC
	CommitmentNumber   uint64
	State              State

	// RevocationRoot seeds the shachain.Producer that derives this side's
	// per-commitment secrets to hand to the counterparty as commitments
	// are revoked.
	RevocationRoot shachain.Hash
	// RevokedSecrets stores secrets the counterparty has revealed
	// for their own prior commitments, enabling penalty claims.
	RevokedSecrets map[uint64]shachain.Hash
}

// Validate enforces spec §8 invariant 3: local + remote + Σ pending ≤
// capacity. It also rejects a negative settled balance, which is how an
// HTLC that debits more than its funding side currently holds (spec §8
// scenario 4, "insufficient balance") is caught.
func (c *Channel) Validate() error {
	if c.LocalBalanceSats < 0 || c.RemoteBalanceSats < 0 {
		return fmt.Errorf("channeldb: channel %s has a negative balance (local %d, remote %d)",
			c.ChannelID, c.LocalBalanceSats, c.RemoteBalanceSats)
	}
	total := c.LocalBalanceSats + c.RemoteBalanceSats
	for _, h := range c.PendingHTLCs {
		total += h.AmountSats
	}
	if total > c.CapacitySats {
		return fmt.Errorf("channeldb: channel %s balances (%d) exceed capacity (%d)",
			c.ChannelID, total, c.CapacitySats)
	}
	return nil
}

// AdvanceCommitment validates and applies the monotonic commitment
// number invariant (spec §8 invariant 5) before the caller persists the
// new commitment number.
func (c *Channel) AdvanceCommitment(next uint64) error {
	if next <= c.CommitmentNumber {
		return fmt.Errorf("channeldb: commitment number must strictly increase: have %d, got %d",
			c.CommitmentNumber, next)
	}
	c.CommitmentNumber = next
	return nil
}
