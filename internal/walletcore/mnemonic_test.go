package walletcore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMnemonic_WordCounts(t *testing.T) {
	for words, bits := range validWordCounts {
		m, err := GenerateMnemonic(words)
		require.NoError(t, err)
		require.NoError(t, ValidateMnemonic(m))
		assert.Len(t, strings.Fields(m), words)
		_ = bits
	}
}

func TestGenerateMnemonic_InvalidWordCount(t *testing.T) {
	_, err := GenerateMnemonic(13)
	assert.ErrorIs(t, err, ErrInvalidWordCount)
}

func TestValidateMnemonic_RejectsBadChecksum(t *testing.T) {
	m, err := GenerateMnemonic(12)
	require.NoError(t, err)

	words := strings.Fields(m)
	// Flip the last word to something else in the word list; this breaks
	// the checksum (spec §8 invariant 2) with overwhelming probability.
	if words[len(words)-1] == "abandon" {
		words[len(words)-1] = "zoo"
	} else {
		words[len(words)-1] = "abandon"
	}
	tampered := strings.Join(words, " ")

	err = ValidateMnemonic(tampered)
	assert.ErrorIs(t, err, ErrInvalidMnemonic)
}

func TestValidateMnemonic_RejectsUnknownWord(t *testing.T) {
	m := "notaword " + strings.Repeat("abandon ", 11)
	assert.ErrorIs(t, ValidateMnemonic(strings.TrimSpace(m)), ErrInvalidMnemonic)
}

func TestValidateMnemonic_NormalizesWhitespaceAndCase(t *testing.T) {
	m, err := GenerateMnemonic(12)
	require.NoError(t, err)

	loud := strings.ToUpper(m)
	assert.NoError(t, ValidateMnemonic(loud))
}

func TestMnemonicToSeed_Deterministic(t *testing.T) {
	m, err := GenerateMnemonic(24)
	require.NoError(t, err)

	seed1 := MnemonicToSeed(m, "")
	seed2 := MnemonicToSeed(m, "")
	assert.Equal(t, seed1, seed2)
	assert.Len(t, seed1, 64)

	seed3 := MnemonicToSeed(m, "a passphrase")
	assert.NotEqual(t, seed1, seed3)
}
