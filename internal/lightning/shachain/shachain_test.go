package shachain

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoot() Hash {
	return sha256.Sum256([]byte("test root seed"))
}

func TestProducer_IsDeterministic(t *testing.T) {
	p := NewProducer(testRoot())
	a, err := p.AtIndex(5)
	require.NoError(t, err)
	b, err := p.AtIndex(5)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestProducer_DistinctIndexesDistinctSecrets(t *testing.T) {
	p := NewProducer(testRoot())
	a, err := p.AtIndex(0)
	require.NoError(t, err)
	b, err := p.AtIndex(1)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestProducer_RejectsOutOfRangeIndex(t *testing.T) {
	p := NewProducer(testRoot())
	_, err := p.AtIndex(uint64(1) << MaxHeight)
	assert.Error(t, err)
}

func TestReceiver_StoresAndRetrievesExactIndex(t *testing.T) {
	p := NewProducer(testRoot())
	r := NewReceiver()

	secret, err := p.AtIndex(3)
	require.NoError(t, err)
	require.NoError(t, r.AddNext(3, secret))

	got, err := r.SecretAt(3)
	require.NoError(t, err)
	assert.Equal(t, secret, got)
}

func TestReceiver_DerivesDescendantFromCompactedAncestor(t *testing.T) {
	p := NewProducer(testRoot())
	r := NewReceiver()

	// index 8 (0b1000) has 3 trailing zero bits, so it can derive any of
	// its descendants (8..15) without those being stored individually.
	secret8, err := p.AtIndex(8)
	require.NoError(t, err)
	require.NoError(t, r.AddNext(8, secret8))

	for _, idx := range []uint64{9, 10, 11, 12, 13, 14, 15} {
		want, err := p.AtIndex(idx)
		require.NoError(t, err)
		got, err := r.SecretAt(idx)
		require.NoError(t, err, "index %d", idx)
		assert.Equal(t, want, got, "index %d", idx)
	}
}

func TestReceiver_RejectsInconsistentSecret(t *testing.T) {
	p := NewProducer(testRoot())
	other := NewProducer(sha256.Sum256([]byte("a different root")))
	r := NewReceiver()

	secret8, err := p.AtIndex(8)
	require.NoError(t, err)
	require.NoError(t, r.AddNext(8, secret8))

	badSecret, err := other.AtIndex(9)
	require.NoError(t, err)
	err = r.AddNext(9, badSecret)
	assert.ErrorIs(t, err, ErrInconsistentSecret)
}

func TestReceiver_UnknownIndexErrors(t *testing.T) {
	r := NewReceiver()
	_, err := r.SecretAt(42)
	assert.Error(t, err)
}
