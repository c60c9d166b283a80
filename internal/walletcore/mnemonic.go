package walletcore

import (
	"errors"
	"regexp"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

var (
	// ErrInvalidWordCount indicates the mnemonic is not 12, 15, 18, 21, or 24 words.
	ErrInvalidWordCount = errors.New("walletcore: word count must be 12, 15, 18, 21, or 24")

	// ErrInvalidMnemonic indicates the mnemonic failed BIP-39 validation
	// (unknown word or bad checksum).
	ErrInvalidMnemonic = errors.New("walletcore: invalid mnemonic phrase")

	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// validWordCounts maps BIP-39 word counts to their entropy size in bits.
var validWordCounts = map[int]int{
	12: 128,
	15: 160,
	18: 192,
	21: 224,
	24: 256,
}

// GenerateMnemonic draws wordCount words (12/15/18/21/24) of entropy from
// a CSPRNG and appends the standard BIP-39 checksum.
func GenerateMnemonic(wordCount int) (string, error) {
	bitSize, ok := validWordCounts[wordCount]
	if !ok {
		return "", ErrInvalidWordCount
	}

	entropy, err := bip39.NewEntropy(bitSize)
	if err != nil {
		return "", err
	}

	return bip39.NewMnemonic(entropy)
}

// ValidateMnemonic normalizes the input and checks word-list membership and
// checksum. Any mnemonic failing either rejects with ErrInvalidMnemonic.
func ValidateMnemonic(mnemonic string) error {
	normalized := NormalizeMnemonic(mnemonic)
	if normalized == "" {
		return ErrInvalidMnemonic
	}

	words := strings.Fields(normalized)
	if _, ok := validWordCounts[len(words)]; !ok {
		return ErrInvalidMnemonic
	}

	if !bip39.IsMnemonicValid(normalized) {
		return ErrInvalidMnemonic
	}
	return nil
}

// NormalizeMnemonic lowercases and collapses whitespace so minor formatting
// differences in user input (extra spaces, trailing newline) don't cause
// spurious checksum failures.
func NormalizeMnemonic(input string) string {
	input = strings.ToLower(strings.TrimSpace(input))
	return whitespaceRegex.ReplaceAllString(input, " ")
}

// MnemonicToSeed derives the 512-bit master seed via PBKDF2-HMAC-SHA512
// under the standard BIP-39 salt ("mnemonic" + passphrase). The mnemonic
// must already have passed ValidateMnemonic.
func MnemonicToSeed(mnemonic, passphrase string) []byte {
	normalized := NormalizeMnemonic(mnemonic)
	return bip39.NewSeed(normalized, passphrase)
}
