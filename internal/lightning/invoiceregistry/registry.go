// Package invoiceregistry holds invoices the Lightning node is the final
// hop for: payment hash, preimage, amount, expiry, description and
// settled flag, per spec §3's Invoice tuple and §4.5's "the engine is
// the final hop for an invoice in its registry" HTLC-fulfillment path.
// Invoices are owned by the Lightning node (spec §3 Ownership) and are
// not independently durable — they are reconstructible only for the
// lifetime of a running engine, mirroring the teacher's in-memory
// invoiceRegistry referenced from server.go.
package invoiceregistry

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
	"time"
)

// MaxMemoBytes is the spec §4.1 ceiling on a NewInvoice memo.
const MaxMemoBytes = 640

// MaxAmountSats and MinAmountSats bound NewInvoice's amount per spec §4.1.
const (
	MinAmountSats = 1
	MaxAmountSats = 100_000_000
)

var (
	// ErrAmountOutOfRange is returned for an invoice amount outside
	// [MinAmountSats, MaxAmountSats].
	ErrAmountOutOfRange = errors.New("invoiceregistry: amount_sats out of range")
	// ErrMemoTooLong is returned when memo exceeds MaxMemoBytes.
	ErrMemoTooLong = errors.New("invoiceregistry: memo exceeds 640 bytes")
	// ErrNotFound is returned when a payment hash has no invoice.
	ErrNotFound = errors.New("invoiceregistry: invoice not found")
	// ErrAlreadySettled is returned by Settle on an invoice already paid.
	ErrAlreadySettled = errors.New("invoiceregistry: invoice already settled")
)

// Invoice is the in-memory record for one issued invoice.
type Invoice struct {
	PaymentHash [32]byte
	Preimage    [32]byte
	AmountSats  int64
	Memo        string
	CreatedAt   time.Time
	Expiry      time.Duration
	Settled     bool
	SettledAt   time.Time
}

// HashesPreimage reports whether SHA-256(preimage) equals the invoice's
// payment hash, spec §8 invariant 4.
func (i *Invoice) HashesPreimage() bool {
	h := sha256.Sum256(i.Preimage[:])
	return h == i.PaymentHash
}

// Expired reports whether the invoice's expiry window has elapsed.
func (i *Invoice) Expired(now time.Time) bool {
	return now.After(i.CreatedAt.Add(i.Expiry))
}

// Registry is the Lightning node's invoice store, one sync.Mutex-guarded
// map since invoice volume for a single-wallet engine never warrants a
// dedicated bucket/index.
type Registry struct {
	mu       sync.Mutex
	byHash   map[[32]byte]*Invoice
	byPreim  map[[32]byte]*Invoice
	defaultExpiry time.Duration
}

// New builds an empty registry using defaultExpiry when NewInvoice does
// not override it (spec §4.1: "default 24h").
func New(defaultExpiry time.Duration) *Registry {
	return &Registry{
		byHash:        make(map[[32]byte]*Invoice),
		byPreim:       make(map[[32]byte]*Invoice),
		defaultExpiry: defaultExpiry,
	}
}

// Create mints a fresh invoice: a random 32-byte preimage, its SHA-256
// payment hash, and the given amount/memo, enforcing spec §4.1's bounds.
// Every call returns a distinct payment hash even for identical amount
// and memo (spec §8 scenario 2).
func (r *Registry) Create(amountSats int64, memo string, expiry time.Duration) (*Invoice, error) {
	if amountSats < MinAmountSats || amountSats > MaxAmountSats {
		return nil, ErrAmountOutOfRange
	}
	if len(memo) > MaxMemoBytes {
		return nil, ErrMemoTooLong
	}
	if expiry <= 0 {
		expiry = r.defaultExpiry
	}

	var preimage [32]byte
	if _, err := rand.Read(preimage[:]); err != nil {
		return nil, fmt.Errorf("invoiceregistry: generating preimage: %w", err)
	}
	hash := sha256.Sum256(preimage[:])

	inv := &Invoice{
		PaymentHash: hash,
		Preimage:    preimage,
		AmountSats:  amountSats,
		Memo:        memo,
		CreatedAt:   time.Now(),
		Expiry:      expiry,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byHash[hash] = inv
	r.byPreim[preimage] = inv
	return inv, nil
}

// Lookup returns the invoice for a payment hash.
func (r *Registry) Lookup(hash [32]byte) (*Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.byHash[hash]
	if !ok {
		return nil, ErrNotFound
	}
	return inv, nil
}

// Settle marks the invoice matching preimage as settled, per spec §4.5
// "fulfills the HTLC ... and marks the invoice settled". Returns the
// settled invoice so the caller can credit its amount.
func (r *Registry) Settle(preimage [32]byte) (*Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv, ok := r.byPreim[preimage]
	if !ok {
		return nil, ErrNotFound
	}
	if inv.Settled {
		return nil, ErrAlreadySettled
	}
	inv.Settled = true
	inv.SettledAt = time.Now()
	return inv, nil
}

// PreimageFor returns the preimage for a known payment hash, used by the
// htlcswitch to decide whether an incoming HTLC can be fulfilled locally
// (spec §4.5: "the preimage is either known ... or unknown (forwarding;
// out of scope)").
func (r *Registry) PreimageFor(hash [32]byte) ([32]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.byHash[hash]
	if !ok || inv.Settled {
		return [32]byte{}, false
	}
	return inv.Preimage, true
}
