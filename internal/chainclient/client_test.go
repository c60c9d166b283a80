package chainclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu           sync.Mutex
	magic        uint32
	tip          uint32
	utxos        map[string][]UTXO
	failN        int // number of calls to fail before succeeding
	broadcastErr error
}

func (f *fakeSource) NetworkMagic(context.Context) (uint32, error) { return f.magic, nil }

func (f *fakeSource) Tip(context.Context) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tip, nil
}

func (f *fakeSource) AddressUTXOs(_ context.Context, addr string) ([]UTXO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failN > 0 {
		f.failN--
		return nil, errors.New("transient failure")
	}
	return f.utxos[addr], nil
}

func (f *fakeSource) FeeEstimates(context.Context) ([]FeeEstimate, error) {
	return []FeeEstimate{{TargetBlocks: 6, SatsPerVByte: 5}}, nil
}

func (f *fakeSource) BroadcastTx(context.Context, []byte) (string, error) {
	return "txid", f.broadcastErr
}

func TestNew_RejectsNetworkMismatch(t *testing.T) {
	src := &fakeSource{magic: 0xD9B4BEF9}
	_, err := New(context.Background(), src, 0x0709110B, time.Second)
	assert.ErrorIs(t, err, ErrNetworkMismatch)
}

func TestNew_AcceptsMatchingMagic(t *testing.T) {
	src := &fakeSource{magic: 0x0709110B, tip: 100}
	c, err := New(context.Background(), src, 0x0709110B, time.Second)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestClient_WatchIsMonotonicAndDetectsUTXOs(t *testing.T) {
	src := &fakeSource{
		magic: 1, tip: 100,
		utxos: map[string][]UTXO{"addr1": {{Outpoint: "tx:0", AmountSats: 1000, ConfirmationBlock: 99}}},
	}
	c, err := New(context.Background(), src, 1, time.Second)
	require.NoError(t, err)

	c.Watch("addr1")
	require.NoError(t, c.poll(context.Background()))

	utxos := c.UTXOsFor("addr1")
	require.Len(t, utxos, 1)
	assert.Equal(t, uint32(2), utxos[0].Confirmations(100))
}

func TestClient_ReorgHookFires(t *testing.T) {
	src := &fakeSource{magic: 1, tip: 100}
	c, err := New(context.Background(), src, 1, time.Second)
	require.NoError(t, err)

	require.NoError(t, c.poll(context.Background()))

	fired := false
	c.OnReorg(func(uint32) { fired = true })

	src.mu.Lock()
	src.tip = 90
	src.mu.Unlock()

	require.NoError(t, c.poll(context.Background()))
	assert.True(t, fired)
}

func TestWithRetry_RetriesTransientFailures(t *testing.T) {
	src := &fakeSource{magic: 1, tip: 1, failN: 2, utxos: map[string][]UTXO{"a": {{Outpoint: "x:0"}}}}
	utxos, err := withRetry(context.Background(), "test", func() ([]UTXO, error) {
		return src.AddressUTXOs(context.Background(), "a")
	})
	require.NoError(t, err)
	assert.Len(t, utxos, 1)
}

func TestUTXO_ConfirmationsUnconfirmedIsZero(t *testing.T) {
	u := UTXO{ConfirmationBlock: 0}
	assert.Equal(t, uint32(0), u.Confirmations(100))
}
