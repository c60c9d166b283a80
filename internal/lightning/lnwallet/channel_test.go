package lnwallet

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satsengine/lnengine/internal/lightning/channeldb"
	"github.com/satsengine/lnengine/internal/persistence"
)

func testChannel(t *testing.T) *Channel {
	t.Helper()
	db, err := persistence.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := channeldb.New(db)

	record := &channeldb.Channel{
		ChannelID:         "chan1",
		CapacitySats:      50_000,
		LocalBalanceSats:  30_000,
		RemoteBalanceSats: 20_000,
		State:             channeldb.StateOpeningPending,
	}
	require.NoError(t, store.Put(record))
	return NewChannel(record, store)
}

func TestChannel_FundingLifecycle(t *testing.T) {
	c := testChannel(t)
	require.NoError(t, c.MarkFundingConfirmed())
	require.NoError(t, c.MarkActive())
	assert.Equal(t, channeldb.StateNormal, c.State())
}

func TestChannel_MarkActiveRejectsWrongState(t *testing.T) {
	c := testChannel(t)
	assert.ErrorIs(t, c.MarkActive(), ErrInvalidStateTransition)
}

func TestChannel_AddHTLCRejectsInsufficientBalance(t *testing.T) {
	c := testChannel(t)
	require.NoError(t, c.MarkFundingConfirmed())
	require.NoError(t, c.MarkActive())

	// Local only holds 30,000 sats; an outgoing HTLC larger than that
	// would debit it negative.
	err := c.AddHTLC(channeldb.HTLC{AmountSats: 40_000})
	assert.Error(t, err)
}

func TestChannel_AddAndSettleHTLC(t *testing.T) {
	c := testChannel(t)
	require.NoError(t, c.MarkFundingConfirmed())
	require.NoError(t, c.MarkActive())

	preimage := [32]byte{1, 2, 3}
	hash := sha256.Sum256(preimage[:])

	require.NoError(t, c.AddHTLC(channeldb.HTLC{PaymentHash: hash, AmountSats: 1_000, Incoming: true}))
	require.NoError(t, c.SettleHTLC(preimage))
	assert.Equal(t, int64(31_000), c.LocalBalanceSats())
}

func TestChannel_SettleHTLCRejectsWrongPreimage(t *testing.T) {
	c := testChannel(t)
	require.NoError(t, c.MarkFundingConfirmed())
	require.NoError(t, c.MarkActive())

	hash := sha256.Sum256([]byte("real preimage"))
	require.NoError(t, c.AddHTLC(channeldb.HTLC{PaymentHash: hash, AmountSats: 1_000, Incoming: true}))

	wrong := [32]byte{9, 9, 9}
	assert.ErrorIs(t, c.SettleHTLC(wrong), ErrPreimageMismatch)
}

func TestChannel_SignNextCommitmentIsMonotonic(t *testing.T) {
	c := testChannel(t)
	_, err := c.SignNextCommitment()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), c.record.CommitmentNumber)

	_, err = c.SignNextCommitment()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), c.record.CommitmentNumber)
}

func TestChannel_RevokeCurrentCommitmentProducesDistinctSecrets(t *testing.T) {
	c := testChannel(t)
	msg0, err := c.RevokeCurrentCommitment()
	require.NoError(t, err)

	c.record.CommitmentNumber = 1
	msg1, err := c.RevokeCurrentCommitment()
	require.NoError(t, err)

	assert.NotEqual(t, msg0.Revocation, msg1.Revocation)
}

func TestChannel_CooperativeCloseLifecycle(t *testing.T) {
	c := testChannel(t)
	require.NoError(t, c.MarkFundingConfirmed())
	require.NoError(t, c.MarkActive())

	require.NoError(t, c.InitiateCooperativeClose())
	require.NoError(t, c.BeginClosingNegotiation())
	require.NoError(t, c.CompleteCooperativeClose())
	require.NoError(t, c.MarkResolved())
	assert.Equal(t, channeldb.StateResolved, c.State())
}

func TestChannel_EligibleForBalanceReport(t *testing.T) {
	c := testChannel(t)
	assert.False(t, c.EligibleForBalanceReport())

	require.NoError(t, c.MarkFundingConfirmed())
	require.NoError(t, c.MarkActive())
	assert.True(t, c.EligibleForBalanceReport())
}
