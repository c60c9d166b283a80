package securestore

import "sync"

// KeyRing tracks the monotonic key version used for new envelopes and
// retains parameters for up to MaxRetainedKeyVersions prior versions so
// in-flight blobs encrypted under an older version can still be opened
// (spec §4.3 key rotation).
type KeyRing struct {
	mu       sync.RWMutex
	current  uint32
	versions map[uint32]KDFParams
}

// NewKeyRing starts a ring at version 1 with params as the active
// parameters.
func NewKeyRing(params KDFParams) *KeyRing {
	params.KeyVersion = 1
	return &KeyRing{
		current:  1,
		versions: map[uint32]KDFParams{1: params},
	}
}

// Current returns the active key version's parameters (salt excluded —
// callers must draw a fresh salt per encryption).
func (r *KeyRing) Current() KDFParams {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.versions[r.current]
}

// Rotate introduces a new key version with freshParams, retiring the
// oldest retained version once more than MaxRetainedKeyVersions exist.
func (r *KeyRing) Rotate(freshParams KDFParams) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current++
	freshParams.KeyVersion = r.current
	r.versions[r.current] = freshParams

	if uint32(len(r.versions)) > MaxRetainedKeyVersions {
		oldest := r.current
		for v := range r.versions {
			if v < oldest {
				oldest = v
			}
		}
		delete(r.versions, oldest)
	}
	return r.current
}

// ParamsForVersion looks up the KDF parameters for a specific key
// version, as recorded in an envelope being decrypted.
func (r *KeyRing) ParamsForVersion(version uint32) (KDFParams, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.versions[version]
	return p, ok
}
