package securestore

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

// DefaultArgon2Params are the parameters used for newly created envelopes
// when the configured KDF is Argon2id: memory and iterations sit exactly
// at the spec §4.3 floor, parallelism above it.
var DefaultArgon2Params = KDFParams{
	Algorithm:   KDFArgon2id,
	Iterations:  3,
	MemoryKiB:   64 * 1024,
	Parallelism: 2,
}

// DefaultPBKDF2Params are the parameters used when the operator has
// explicitly configured the declared fallback (spec §4.3: "the only
// permitted fallback and must be recorded in the metadata").
var DefaultPBKDF2Params = KDFParams{
	Algorithm:  KDFPBKDF2,
	Iterations: 200_000,
}

// deriveKey runs the KDF named in params against passphrase, producing a
// KeySize-byte key. DanielDucuara2018-btc-giftcard's encryption.go left
// this function ("DeriveKey") unimplemented; this is the real Argon2id
// implementation spec §4.3 requires, plus the declared PBKDF2 fallback.
func deriveKey(passphrase []byte, params KDFParams) ([]byte, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	switch params.Algorithm {
	case KDFArgon2id:
		return argon2.IDKey(
			passphrase, params.Salt,
			params.Iterations, params.MemoryKiB, params.Parallelism,
			KeySize,
		), nil
	case KDFPBKDF2:
		return pbkdf2.Key(passphrase, params.Salt, int(params.Iterations), KeySize, sha256.New), nil
	default:
		return nil, fmt.Errorf("securestore: unsupported kdf algorithm %q", params.Algorithm)
	}
}

// newSalt draws SaltSize fresh random bytes from a CSPRNG.
func newSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("securestore: generating salt: %w", err)
	}
	return salt, nil
}
