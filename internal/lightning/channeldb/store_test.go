package channeldb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satsengine/lnengine/internal/persistence"
)

func openTestDB(t *testing.T) *persistence.Store {
	t.Helper()
	db, err := persistence.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleChannel(id string) *Channel {
	return &Channel{
		ChannelID:          id,
		CounterpartyNodeID: "02aabb",
		FundingOutpoint:    "deadbeef:0",
		CapacitySats:       50_000,
		LocalBalanceSats:   30_000,
		RemoteBalanceSats:  20_000,
		CommitmentNumber:   1,
		State:              StateNormal,
	}
}

func TestChannel_ValidateRejectsOverCapacity(t *testing.T) {
	c := sampleChannel("chan1")
	c.PendingHTLCs = []HTLC{{AmountSats: 5_000}}
	assert.Error(t, c.Validate())
}

func TestChannel_ValidateAcceptsExactCapacity(t *testing.T) {
	c := sampleChannel("chan1")
	assert.NoError(t, c.Validate())
}

func TestChannel_AdvanceCommitmentRejectsNonIncreasing(t *testing.T) {
	c := sampleChannel("chan1")
	assert.Error(t, c.AdvanceCommitment(1))
	assert.Error(t, c.AdvanceCommitment(0))
	assert.NoError(t, c.AdvanceCommitment(2))
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	store := New(openTestDB(t))
	c := sampleChannel("chan1")
	require.NoError(t, store.Put(c))

	got, err := store.Get("chan1")
	require.NoError(t, err)
	assert.Equal(t, c.ChannelID, got.ChannelID)
	assert.Equal(t, c.CapacitySats, got.CapacitySats)
}

func TestStore_PutRejectsInvalidChannel(t *testing.T) {
	store := New(openTestDB(t))
	c := sampleChannel("chan1")
	c.PendingHTLCs = []HTLC{{AmountSats: 999_999}}
	assert.Error(t, store.Put(c))
}

func TestStore_AllReturnsEveryChannel(t *testing.T) {
	store := New(openTestDB(t))
	require.NoError(t, store.Put(sampleChannel("chan1")))
	require.NoError(t, store.Put(sampleChannel("chan2")))

	all, err := store.All()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStore_DeleteRemovesChannel(t *testing.T) {
	store := New(openTestDB(t))
	require.NoError(t, store.Put(sampleChannel("chan1")))
	require.NoError(t, store.Delete("chan1"))

	_, err := store.Get("chan1")
	assert.Error(t, err)
}

func TestStore_CheckpointPersists(t *testing.T) {
	store := New(openTestDB(t))
	c := sampleChannel("chan1")
	require.NoError(t, store.Checkpoint(c))
}
