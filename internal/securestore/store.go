package securestore

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// attemptsPerSecond bounds decrypt attempts to at most one per 250ms
// (plus a small burst), a defense-in-depth throttle against a tight-loop
// brute force that sits in front of the consecutive-failure lockout.
const attemptsPerSecond = 4

// Store is the engine's single authenticated-encryption-at-rest
// component: it seals and opens envelopes, rejects decryption while
// locked out, rotates keys, and records every operation to a
// SecurityLog, per spec §4.3.
type Store struct {
	ring    *KeyRing
	limiter *FailureLimiter
	attempt *rate.Limiter
	log     *SecurityLog
}

// New builds a Store whose first key version uses params (validated
// against the spec §4.3 floors).
func New(params KDFParams) (*Store, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		ring:    NewKeyRing(params),
		limiter: NewFailureLimiter(),
		attempt: rate.NewLimiter(rate.Limit(attemptsPerSecond), attemptsPerSecond),
		log:     NewSecurityLog(),
	}, nil
}

// Encrypt seals plaintext under the store's current key version.
func (s *Store) Encrypt(plaintext, passphrase []byte) (*Envelope, error) {
	env, err := Seal(plaintext, passphrase, s.ring.Current())
	if err != nil {
		s.log.Record(EventEncrypt, "failed: "+err.Error())
		return nil, err
	}
	s.log.Record(EventEncrypt, fmt.Sprintf("key_version=%d", env.KDF.KeyVersion))
	return env, nil
}

// Decrypt opens env under passphrase, enforcing the spec §4.3 lockout and
// progressive backoff. No plaintext fallback exists on any error path.
func (s *Store) Decrypt(ctx context.Context, env *Envelope, passphrase []byte) ([]byte, error) {
	if s.limiter.Locked() {
		s.log.Record(EventLockout, "decrypt attempted while locked out")
		return nil, ErrLocked
	}
	if d := s.limiter.Backoff(); d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, fmt.Errorf("securestore: backoff wait: %w", ctx.Err())
		}
	}
	if err := s.attempt.Wait(ctx); err != nil {
		return nil, fmt.Errorf("securestore: rate limit wait: %w", err)
	}

	plaintext, err := Open(env, passphrase)
	if err != nil {
		s.limiter.RecordFailure()
		s.log.Record(EventDecryptFailure, fmt.Sprintf("key_version=%d: %v", env.KDF.KeyVersion, err))
		if s.limiter.Locked() {
			s.log.Record(EventLockout, "lockout threshold reached")
		}
		return nil, err
	}

	s.limiter.RecordSuccess()
	s.log.Record(EventDecryptSuccess, fmt.Sprintf("key_version=%d", env.KDF.KeyVersion))
	return plaintext, nil
}

// Rotate introduces a new key version using freshParams and records a
// rotation event. Callers must re-encrypt any envelopes they want moved
// onto the new version explicitly; rotation does not touch ciphertext
// already on disk.
func (s *Store) Rotate(freshParams KDFParams) (uint32, error) {
	if err := freshParams.Validate(); err != nil {
		return 0, err
	}
	version := s.ring.Rotate(freshParams)
	s.log.Record(EventRotate, fmt.Sprintf("new_key_version=%d", version))
	return version, nil
}

// SecurityLog exposes the hash-chained event log for inspection (e.g. a
// startup integrity check, or an admin surface).
func (s *Store) SecurityLog() *SecurityLog {
	return s.log
}
