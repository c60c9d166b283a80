package securestore

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satsengine/lnengine/pkg/logger"
)

// EventKind enumerates the structured security events spec §4.3 requires
// ("every encryption, decryption, rotation, and failure emits a
// structured event").
type EventKind string

const (
	EventEncrypt        EventKind = "encrypt"
	EventDecryptSuccess EventKind = "decrypt_success"
	EventDecryptFailure EventKind = "decrypt_failure"
	EventRotate         EventKind = "rotate"
	EventLockout        EventKind = "lockout"
)

// Event is one entry in the hash-chained security log. Detail must never
// carry key material, plaintext, or passphrases (spec §9 memory hygiene).
type Event struct {
	Kind      EventKind
	Detail    string
	Timestamp time.Time
	PrevHash  string
	Hash      string
}

// SecurityLog is an in-memory, hash-chained, append-only log: each
// event's hash commits to the previous event's hash, so truncation or
// reordering of the log is detectable, per spec §4.3.
type SecurityLog struct {
	mu     sync.Mutex
	events []Event
	last   string
}

// NewSecurityLog returns an empty log, the chain rooted at the zero hash.
func NewSecurityLog() *SecurityLog {
	return &SecurityLog{last: hex.EncodeToString(make([]byte, sha256.Size))}
}

// Record appends a new event to the chain and logs it through pkg/logger.
func (l *SecurityLog) Record(kind EventKind, detail string) Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	ev := Event{
		Kind:      kind,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
		PrevHash:  l.last,
	}
	ev.Hash = chainHash(ev)
	l.events = append(l.events, ev)
	l.last = ev.Hash

	logger.Info("security event",
		zap.String("kind", string(kind)),
		zap.String("detail", detail),
		zap.String("hash", ev.Hash),
	)
	return ev
}

// Verify walks the chain and reports whether every event's hash matches
// its recomputed value and links to the previous event's hash.
func (l *SecurityLog) Verify() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := hex.EncodeToString(make([]byte, sha256.Size))
	for _, ev := range l.events {
		if ev.PrevHash != prev {
			return false
		}
		if chainHash(ev) != ev.Hash {
			return false
		}
		prev = ev.Hash
	}
	return true
}

// Events returns a copy of the recorded events.
func (l *SecurityLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

func chainHash(ev Event) string {
	h := sha256.New()
	h.Write([]byte(ev.Kind))
	h.Write([]byte(ev.Detail))
	h.Write([]byte(ev.Timestamp.Format(time.RFC3339Nano)))
	h.Write([]byte(ev.PrevHash))
	return hex.EncodeToString(h.Sum(nil))
}
