package contractcourt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/satsengine/lnengine/internal/lightning/channeldb"
	"github.com/satsengine/lnengine/internal/lightning/shachain"
)

func TestHTLCTimeoutResolverWaitsForExpiry(t *testing.T) {
	height := uint32(100)
	r := NewHTLCTimeoutResolver("chan-1", [32]byte{1}, 1000, 150, func() uint32 { return height })

	resolved, err := r.Resolve()
	require.NoError(t, err)
	require.False(t, resolved)

	height = 150
	resolved, err = r.Resolve()
	require.NoError(t, err)
	require.True(t, resolved)
}

func TestBreachResolverRequiresStoredSecret(t *testing.T) {
	channel := &channeldb.Channel{
		ChannelID:      "chan-1",
		CapacitySats:   50_000,
		RevokedSecrets: map[uint64]shachain.Hash{},
	}
	_, err := NewBreachResolver(channel, 5, 100, 144, func() uint32 { return 100 })
	require.Error(t, err)

	channel.RevokedSecrets[5] = shachain.Hash{0xaa}
	r, err := NewBreachResolver(channel, 5, 100, 144, func() uint32 { return 100 })
	require.NoError(t, err)

	resolved, err := r.Resolve()
	require.NoError(t, err)
	require.True(t, resolved)
}

func TestBreachResolverMissesWindow(t *testing.T) {
	channel := &channeldb.Channel{
		ChannelID:      "chan-1",
		RevokedSecrets: map[uint64]shachain.Hash{5: {0xaa}},
	}
	r, err := NewBreachResolver(channel, 5, 100, 144, func() uint32 { return 300 })
	require.NoError(t, err)

	_, err = r.Resolve()
	require.Error(t, err)
}

func TestCourtDropsResolvedEntries(t *testing.T) {
	c := New(0)
	r := NewHTLCTimeoutResolver("chan-1", [32]byte{1}, 1000, 100, func() uint32 { return 100 })
	c.Watch(r)
	require.Equal(t, 1, c.Pending())

	c.tick()
	require.Equal(t, 0, c.Pending())
}
