package lnwallet

import (
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/satsengine/lnengine/internal/lightning/channeldb"
	"github.com/satsengine/lnengine/internal/lightning/lnwire"
	"github.com/satsengine/lnengine/internal/lightning/shachain"
)

// ErrInvalidStateTransition is returned when a caller requests a
// transition the channel's current lifecycle state does not permit, per
// spec §4.5's state machine.
var ErrInvalidStateTransition = fmt.Errorf("lnwallet: invalid channel state transition")

// ErrPreimageMismatch is returned when a revealed preimage does not hash
// to the HTLC's payment hash (spec §8 invariant 4).
var ErrPreimageMismatch = fmt.Errorf("lnwallet: preimage does not match payment hash")

// Channel wraps a persisted channeldb.Channel record with the in-memory
// protocol state machine driving it: per-channel serialization (spec
// §4.5's "a single mutex per channel serializes state transitions") and
// the revocation/commitment ratchet.
//
// Grounded on lnwallet/channel.go's LightningChannel, trimmed to the
// lifecycle and HTLC-ledger logic; raw commitment-transaction signing
// (txscript witness construction byte-for-byte per BOLT-3 test vectors)
// is intentionally out of scope for this engine — see DESIGN.md.
type Channel struct {
	mu sync.Mutex

	record   *channeldb.Channel
	revoker  *shachain.Producer
	receiver *shachain.Receiver

	store *channeldb.Store
}

// NewChannel wraps a freshly negotiated channel record, deriving its
// revocation producer from the channel's own per-channel revocation root
// key (spec §4.5's "per-commitment secrets derive from a root secret via
// the standard one-way chain").
func NewChannel(record *channeldb.Channel, store *channeldb.Store) *Channel {
	return &Channel{
		record:   record,
		revoker:  shachain.NewProducer(record.RevocationRoot),
		receiver: shachain.NewReceiver(),
		store:    store,
	}
}

func (c *Channel) persist() error {
	if err := c.record.Validate(); err != nil {
		return err
	}
	return c.store.Put(c.record)
}

// State returns the channel's current lifecycle state.
func (c *Channel) State() channeldb.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record.State
}

// transition enforces that from is the current state before moving to
// to, persisting before returning (spec §4.5: "each transition must be
// persisted before being acknowledged to the peer").
func (c *Channel) transition(from, to channeldb.State) error {
	if c.record.State != from {
		return fmt.Errorf("%w: channel %s is in state %s, expected %s",
			ErrInvalidStateTransition, c.record.ChannelID, c.record.State, from)
	}
	c.record.State = to
	return c.persist()
}

// MarkFundingConfirmed moves the channel from opening_pending to
// opening_awaiting_confirmation once the funding transaction has been
// broadcast and observed in the mempool/a low-confirmation block.
func (c *Channel) MarkFundingConfirmed() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transition(channeldb.StateOpeningPending, channeldb.StateOpeningAwaitingConfirmation)
}

// MarkActive moves the channel to normal once funding has reached the
// configured confirmation threshold and funding_locked has been
// exchanged with the peer.
func (c *Channel) MarkActive() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transition(channeldb.StateOpeningAwaitingConfirmation, channeldb.StateNormal)
}

// AddHTLC adds a new pending HTLC to the channel, debiting the side that
// is extending it — remote for an incoming HTLC, local otherwise — so
// that local + remote + Σ pending_htlc stays equal to capacity rather
// than growing past it (spec §8 invariant 3). SettleHTLC/FailHTLC credit
// the matching side back once the HTLC resolves.
func (c *Channel) AddHTLC(htlc channeldb.HTLC) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.record.State != channeldb.StateNormal {
		return fmt.Errorf("%w: channel %s is not in normal state", ErrInvalidStateTransition, c.record.ChannelID)
	}

	next := *c.record
	next.PendingHTLCs = append(append([]channeldb.HTLC{}, c.record.PendingHTLCs...), htlc)
	if htlc.Incoming {
		next.RemoteBalanceSats -= htlc.AmountSats
	} else {
		next.LocalBalanceSats -= htlc.AmountSats
	}
	if err := next.Validate(); err != nil {
		return err
	}
	c.record.PendingHTLCs = next.PendingHTLCs
	c.record.LocalBalanceSats = next.LocalBalanceSats
	c.record.RemoteBalanceSats = next.RemoteBalanceSats
	return c.persist()
}

// SettleHTLC removes a pending HTLC by payment hash after verifying
// preimage validity, crediting the balance to whichever side received
// the HTLC.
func (c *Channel) SettleHTLC(preimage [32]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := sha256.Sum256(preimage[:])

	idx := -1
	for i, h := range c.record.PendingHTLCs {
		if h.PaymentHash == hash {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrPreimageMismatch
	}

	htlc := c.record.PendingHTLCs[idx]
	if htlc.Incoming {
		c.record.LocalBalanceSats += htlc.AmountSats
	} else {
		c.record.RemoteBalanceSats += htlc.AmountSats
	}
	c.record.PendingHTLCs = append(c.record.PendingHTLCs[:idx], c.record.PendingHTLCs[idx+1:]...)
	return c.persist()
}

// FailHTLC removes a pending HTLC without crediting anyone, returning
// its amount to the side that funded it.
func (c *Channel) FailHTLC(paymentHash [32]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := -1
	for i, h := range c.record.PendingHTLCs {
		if h.PaymentHash == paymentHash {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("lnwallet: no pending htlc with that payment hash")
	}

	htlc := c.record.PendingHTLCs[idx]
	if htlc.Incoming {
		c.record.RemoteBalanceSats += htlc.AmountSats
	} else {
		c.record.LocalBalanceSats += htlc.AmountSats
	}
	c.record.PendingHTLCs = append(c.record.PendingHTLCs[:idx], c.record.PendingHTLCs[idx+1:]...)
	return c.persist()
}

// SignNextCommitment advances the commitment number, per spec §8
// invariant 5 (strictly monotonic), checkpointing the new state before
// the corresponding CommitmentSigned is sent to the peer.
func (c *Channel) SignNextCommitment() (*lnwire.CommitmentSigned, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.record.AdvanceCommitment(c.record.CommitmentNumber + 1); err != nil {
		return nil, err
	}
	if err := c.persist(); err != nil {
		return nil, err
	}
	if err := c.store.Checkpoint(c.record); err != nil {
		return nil, err
	}

	var cid lnwire.ChannelID
	copy(cid[:], c.record.ChannelID)
	return &lnwire.CommitmentSigned{ChannelID: cid}, nil
}

// RevokeCurrentCommitment releases this side's per-commitment secret for
// the commitment just superseded, per spec §4.5's commitment discipline.
func (c *Channel) RevokeCurrentCommitment() (*lnwire.RevokeAndAck, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	secret, err := c.revoker.AtIndex(c.record.CommitmentNumber)
	if err != nil {
		return nil, err
	}

	var cid lnwire.ChannelID
	copy(cid[:], c.record.ChannelID)
	msg := &lnwire.RevokeAndAck{ChannelID: cid, Revocation: secret}
	return msg, nil
}

// ReceiveRevocation stores a secret the remote party has revealed for
// one of their prior commitments, enabling a later penalty claim if they
// ever broadcast that revoked state.
func (c *Channel) ReceiveRevocation(index uint64, secret [32]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.receiver.AddNext(index, secret); err != nil {
		return err
	}
	if c.record.RevokedSecrets == nil {
		c.record.RevokedSecrets = make(map[uint64]shachain.Hash)
	}
	c.record.RevokedSecrets[index] = secret
	return c.persist()
}

// InitiateCooperativeClose moves the channel into shutdown_pending,
// the first step of a mutual close (spec §4.5).
func (c *Channel) InitiateCooperativeClose() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transition(channeldb.StateNormal, channeldb.StateShutdownPending)
}

// BeginClosingNegotiation moves a channel in shutdown_pending into fee
// negotiation for the final closing transaction.
func (c *Channel) BeginClosingNegotiation() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transition(channeldb.StateShutdownPending, channeldb.StateClosingNegotiation)
}

// CompleteCooperativeClose finalizes a mutual close once both signatures
// for the closing transaction have been exchanged.
func (c *Channel) CompleteCooperativeClose() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transition(channeldb.StateClosingNegotiation, channeldb.StateClosedCooperative)
}

// ForceClose unilaterally broadcasts the latest local commitment
// transaction, moving the channel to closed_force; contractcourt then
// drives the resulting HTLC/penalty claims to resolved.
func (c *Channel) ForceClose() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.record.State == channeldb.StateClosedForce || c.record.State == channeldb.StateResolved {
		return fmt.Errorf("%w: channel %s already force closed", ErrInvalidStateTransition, c.record.ChannelID)
	}
	c.record.State = channeldb.StateClosedForce
	return c.persist()
}

// MarkResolved moves a closed channel to its terminal state once every
// on-chain output it could produce has been spent to a wallet address,
// per contractcourt's resolution tracking.
func (c *Channel) MarkResolved() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.record.State != channeldb.StateClosedCooperative && c.record.State != channeldb.StateClosedForce {
		return fmt.Errorf("%w: channel %s is not closed", ErrInvalidStateTransition, c.record.ChannelID)
	}
	c.record.State = channeldb.StateResolved
	return c.persist()
}

// LocalBalanceSats returns the channel's current local balance under its
// own lock, for balance-report aggregation (spec §4.5/§8 invariant 7).
func (c *Channel) LocalBalanceSats() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record.LocalBalanceSats
}

// EligibleForBalanceReport reports whether this channel's local balance
// counts toward a balance report: normal state or later, never
// opening_pending (spec §4.5).
func (c *Channel) EligibleForBalanceReport() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record.State >= channeldb.StateNormal
}

// CommitmentNumber returns the channel's current commitment number, used
// by the peer layer to index a received revocation secret.
func (c *Channel) CommitmentNumber() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record.CommitmentNumber
}

// ChannelID returns the channel's identifier.
func (c *Channel) ChannelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record.ChannelID
}

// CounterpartyNodeID returns the node id of the peer on the other side
// of this channel.
func (c *Channel) CounterpartyNodeID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record.CounterpartyNodeID
}

// CapacitySats returns the channel's funding capacity.
func (c *Channel) CapacitySats() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record.CapacitySats
}
