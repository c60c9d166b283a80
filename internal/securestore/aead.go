package securestore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"
)

// ErrIntegrity is the fatal error spec §7 defines for a decryption tag or
// HMAC mismatch. Callers must treat any ErrIntegrity as fatal for the
// affected record, never retry with the same ciphertext, and raise a
// security event.
var ErrIntegrity = errors.New("securestore: integrity check failed")

// ErrLocked is returned by Decrypt while the store is in a lockout window
// (spec §4.3 rate limiting).
var ErrLocked = errors.New("securestore: locked out after repeated decrypt failures")

// Seal encrypts plaintext under a key derived from passphrase using
// params, producing a self-describing Envelope. Generalizes
// DanielDucuara2018-btc-giftcard's Encrypt (AES-256-GCM, random nonce)
// with envelope versioning and a second HMAC-SHA256 tag over the whole
// envelope, per spec §4.3.
func Seal(plaintext, passphrase []byte, params KDFParams) (*Envelope, error) {
	salt, err := newSalt()
	if err != nil {
		return nil, err
	}
	params.Salt = salt

	key, err := deriveKey(passphrase, params)
	if err != nil {
		return nil, err
	}
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("securestore: building cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("securestore: building gcm: %w", err)
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("securestore: generating nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	ciphertext := sealed[:len(sealed)-TagSize]
	tag := sealed[len(sealed)-TagSize:]

	env := &Envelope{
		Version:    EnvelopeVersion1,
		KDF:        params,
		Nonce:      nonce,
		Ciphertext: ciphertext,
		Tag:        tag,
	}
	env.CreatedAt = time.Now().UTC()

	mac := integrityHMAC(key, env)
	env.HMAC = mac

	return env, nil
}

// Open decrypts env under a key derived from passphrase. Any tag or HMAC
// mismatch returns ErrIntegrity; there is no plaintext fallback path, per
// spec §4.3.
func Open(env *Envelope, passphrase []byte) ([]byte, error) {
	if env.Version != EnvelopeVersion1 {
		return nil, fmt.Errorf("securestore: unsupported envelope version %d", env.Version)
	}

	key, err := deriveKey(passphrase, env.KDF)
	if err != nil {
		return nil, err
	}
	defer zero(key)

	expectedMAC := integrityHMAC(key, env)
	if !hmac.Equal(expectedMAC, env.HMAC) {
		return nil, ErrIntegrity
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("securestore: building cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("securestore: building gcm: %w", err)
	}

	sealed := append(append([]byte{}, env.Ciphertext...), env.Tag...)
	plaintext, err := gcm.Open(nil, env.Nonce, sealed, nil)
	if err != nil {
		return nil, ErrIntegrity
	}
	return plaintext, nil
}

// integrityHMAC computes the envelope-wide HMAC-SHA256 tag described in
// spec §4.3: keyed from the same derived material, covering every
// envelope field except CreatedAt and the HMAC itself.
func integrityHMAC(key []byte, env *Envelope) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte{env.Version})
	mac.Write([]byte(env.KDF.Algorithm))
	mac.Write(env.KDF.Salt)
	mac.Write(uint32Bytes(env.KDF.Iterations))
	mac.Write(uint32Bytes(env.KDF.MemoryKiB))
	mac.Write([]byte{env.KDF.Parallelism})
	mac.Write(uint32Bytes(env.KDF.KeyVersion))
	mac.Write(env.Nonce)
	mac.Write(env.Ciphertext)
	mac.Write(env.Tag)
	return mac.Sum(nil)
}

func uint32Bytes(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
