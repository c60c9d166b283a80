// Package securestore implements authenticated-encryption-at-rest for the
// engine's long-lived secrets (the wallet envelope, channel backups): an
// Argon2id-derived key (with a declared PBKDF2 fallback), AES-256-GCM with
// an additional HMAC-SHA256 integrity tag over the whole envelope, key
// rotation, decrypt-failure rate limiting, and a hash-chained security
// event log, per spec §4.3.
package securestore

import (
	"errors"
	"time"
)

// KDFAlgorithm identifies which key derivation function produced an
// envelope's key, recorded so decryption can reselect the right
// parameters (spec §4.3 "the record's embedded version selects
// derivation parameters").
type KDFAlgorithm string

const (
	KDFArgon2id KDFAlgorithm = "argon2id"
	KDFPBKDF2   KDFAlgorithm = "pbkdf2-hmac-sha256"
)

const (
	// SaltSize is the number of random salt bytes stored per envelope,
	// per spec §4.3.
	SaltSize = 32
	// NonceSize is the GCM nonce size: 96 bits.
	NonceSize = 12
	// KeySize is the AES-256 key size.
	KeySize = 32
	// TagSize is the GCM authentication tag size: 128 bits.
	TagSize = 16
	// HMACSize is the size of the envelope-integrity HMAC-SHA256 tag.
	HMACSize = 32

	// MaxRetainedKeyVersions bounds how many historical key versions
	// rotation keeps available for in-flight blobs (spec §4.3).
	MaxRetainedKeyVersions = 5

	// MinArgon2MemoryKiB is the floor spec §4.3 mandates: 64 MiB.
	MinArgon2MemoryKiB = 64 * 1024
	// MinArgon2Iterations is the floor spec §4.3 mandates.
	MinArgon2Iterations = 3
	// MinArgon2Parallelism is the floor spec §4.3 mandates.
	MinArgon2Parallelism = 1
	// MinPBKDF2Iterations is the floor spec §4.3 mandates for the
	// declared fallback.
	MinPBKDF2Iterations = 100_000
)

// ErrWeakParameters is returned when KDF parameters fall below the
// spec §4.3 floors.
var ErrWeakParameters = errors.New("securestore: key derivation parameters below required minimum")

// KDFParams records the derivation metadata embedded in every envelope.
type KDFParams struct {
	Algorithm   KDFAlgorithm
	Salt        []byte
	Iterations  uint32 // Argon2 "time" cost, or PBKDF2 iteration count
	MemoryKiB   uint32 // Argon2 only; zero for PBKDF2
	Parallelism uint8  // Argon2 only; zero for PBKDF2
	KeyVersion  uint32
}

// Validate enforces the spec §4.3 minimums for whichever algorithm is set.
func (p KDFParams) Validate() error {
	switch p.Algorithm {
	case KDFArgon2id:
		if p.MemoryKiB < MinArgon2MemoryKiB || p.Iterations < MinArgon2Iterations ||
			p.Parallelism < MinArgon2Parallelism {
			return ErrWeakParameters
		}
	case KDFPBKDF2:
		if p.Iterations < MinPBKDF2Iterations {
			return ErrWeakParameters
		}
	default:
		return errors.New("securestore: unknown kdf algorithm")
	}
	if len(p.Salt) != SaltSize {
		return errors.New("securestore: salt must be 32 bytes")
	}
	return nil
}

// Envelope is the self-describing on-disk record described in spec §4.3:
// version tag, KDF metadata, IV, ciphertext, GCM tag, integrity HMAC, and
// timestamp.
type Envelope struct {
	Version    uint8
	KDF        KDFParams
	Nonce      []byte
	Ciphertext []byte
	Tag        []byte
	HMAC       []byte
	CreatedAt  time.Time
}

// EnvelopeVersion1 is the only envelope format currently emitted.
const EnvelopeVersion1 uint8 = 1
