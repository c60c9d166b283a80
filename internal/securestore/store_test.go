package securestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// test-only Argon2 params set exactly at the spec §4.3 floor enforced by
// KDFParams.Validate, the cheapest values it accepts.
var testArgon2Params = KDFParams{
	Algorithm:   KDFArgon2id,
	Iterations:  MinArgon2Iterations,
	MemoryKiB:   MinArgon2MemoryKiB,
	Parallelism: MinArgon2Parallelism,
}

func TestSeal_Open_RoundTrip(t *testing.T) {
	plaintext := []byte("a mnemonic's worth of entropy")
	passphrase := []byte("correct horse battery staple")

	env, err := Seal(plaintext, passphrase, testArgon2Params)
	require.NoError(t, err)

	got, err := Open(env, passphrase)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestOpen_WrongPassphraseFails(t *testing.T) {
	env, err := Seal([]byte("secret"), []byte("right"), testArgon2Params)
	require.NoError(t, err)

	_, err = Open(env, []byte("wrong"))
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestOpen_TamperedCiphertextFailsIntegrity(t *testing.T) {
	env, err := Seal([]byte("secret"), []byte("pw"), testArgon2Params)
	require.NoError(t, err)

	env.Ciphertext[0] ^= 0xFF

	_, err = Open(env, []byte("pw"))
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestOpen_TamperedEnvelopeFieldFailsHMACBeforeGCM(t *testing.T) {
	env, err := Seal([]byte("secret"), []byte("pw"), testArgon2Params)
	require.NoError(t, err)

	// Flip a bit in metadata that GCM itself never authenticates, so the
	// envelope-level HMAC must catch it (spec §8 scenario 8).
	env.KDF.Iterations++

	_, err = Open(env, []byte("pw"))
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestKDFParams_RejectsWeakParameters(t *testing.T) {
	weak := testArgon2Params
	weak.MemoryKiB = 1024
	_, err := Seal([]byte("x"), []byte("pw"), weak)
	assert.ErrorIs(t, err, ErrWeakParameters)
}

func TestStore_LockoutAfterFiveFailures(t *testing.T) {
	store, err := New(testArgon2Params)
	require.NoError(t, err)

	env, err := store.Encrypt([]byte("secret"), []byte("right"))
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < maxConsecutiveFailures; i++ {
		_, err := store.Decrypt(ctx, env, []byte("wrong"))
		assert.ErrorIs(t, err, ErrIntegrity)
	}

	_, err = store.Decrypt(ctx, env, []byte("right"))
	assert.ErrorIs(t, err, ErrLocked)
}

func TestStore_SuccessResetsFailureCounter(t *testing.T) {
	store, err := New(testArgon2Params)
	require.NoError(t, err)

	env, err := store.Encrypt([]byte("secret"), []byte("right"))
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < maxConsecutiveFailures-1; i++ {
		_, _ = store.Decrypt(ctx, env, []byte("wrong"))
	}

	_, err = store.Decrypt(ctx, env, []byte("right"))
	require.NoError(t, err)
	assert.False(t, store.limiter.Locked())
}

func TestStore_SecurityLogIsHashChained(t *testing.T) {
	store, err := New(testArgon2Params)
	require.NoError(t, err)

	_, err = store.Encrypt([]byte("secret"), []byte("pw"))
	require.NoError(t, err)
	_, err = store.Rotate(testArgon2Params)
	require.NoError(t, err)

	assert.True(t, store.SecurityLog().Verify())
	assert.GreaterOrEqual(t, len(store.SecurityLog().Events()), 2)
}

func TestKeyRing_RetainsAtMostFiveVersions(t *testing.T) {
	ring := NewKeyRing(testArgon2Params)
	for i := 0; i < 10; i++ {
		ring.Rotate(testArgon2Params)
	}
	count := 0
	for v := uint32(1); v <= 11; v++ {
		if _, ok := ring.ParamsForVersion(v); ok {
			count++
		}
	}
	assert.Equal(t, MaxRetainedKeyVersions, count)
}
