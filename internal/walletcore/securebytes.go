package walletcore

import (
	"runtime"
	"sync"
)

// SecureBytes wraps a sensitive byte slice (seed, private key, passphrase
// derived material) with best-effort mlock and guaranteed zeroing on drop.
// Nothing in this package ever logs or debug-formats the contents.
type SecureBytes struct {
	mu     sync.Mutex
	data   []byte
	locked bool
}

// NewSecureBytes copies src into a locked buffer. The caller should zero
// src itself if it no longer needs the plaintext copy.
func NewSecureBytes(src []byte) *SecureBytes {
	data := make([]byte, len(src))
	copy(data, src)

	sb := &SecureBytes{data: data}
	sb.locked = mlock(data)

	runtime.SetFinalizer(sb, func(s *SecureBytes) { s.Destroy() })
	return sb
}

// Bytes returns the underlying slice. Callers must not retain it past the
// lifetime of the SecureBytes.
func (s *SecureBytes) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// Len returns the number of bytes held, or 0 if destroyed.
func (s *SecureBytes) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Destroy zeros and unlocks the memory. Safe to call more than once.
func (s *SecureBytes) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return
	}
	for i := range s.data {
		s.data[i] = 0
	}
	if s.locked {
		munlock(s.data)
		s.locked = false
	}
	s.data = nil
	runtime.SetFinalizer(s, nil)
}
