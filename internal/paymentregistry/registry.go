// Package paymentregistry is the application-level wrapper around raw
// Lightning payments described by spec §4.6: idempotent creation,
// status lookup, refunds, and a restartable per-wallet activity stream.
// It owns application payment records distinctly from the Lightning
// node's own payment attempts and invoices (spec §3 Ownership).
//
// Grounded on DanielDucuara2018-btc-giftcard/internal/card/service.go's
// idempotency-lock-then-mutate shape (its Redis SETNX per-card lock
// becomes an in-process per-payment_id sync.Mutex here, since this
// engine owns one data directory rather than a shared Redis) and
// internal/database/transaction_repository.go's repository method
// shape, re-grounded on this engine's shared bbolt store instead of
// Postgres.
package paymentregistry

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"go.uber.org/zap"

	"github.com/satsengine/lnengine/internal/lightning"
	"github.com/satsengine/lnengine/internal/persistence"
	"github.com/satsengine/lnengine/pkg/logger"
)

// Status is the application payment record's lifecycle state, spec §3.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

var (
	// ErrInvalidArgument covers malformed requests: non-positive
	// amounts, a refund exceeding the original payment.
	ErrInvalidArgument = errors.New("paymentregistry: invalid argument")
	// ErrNotFound is returned by GetPaymentStatus/ProcessRefund for an
	// unknown payment_id.
	ErrNotFound = errors.New("paymentregistry: payment not found")
	// ErrNotCompleted is returned by ProcessRefund when the record is
	// not yet in status completed.
	ErrNotCompleted = errors.New("paymentregistry: payment is not completed")
)

// Record is one application payment, spec §3's "Application payment
// record" tuple.
type Record struct {
	PaymentID        string
	WalletID         string
	AmountSats       int64
	Invoice          string
	Description      string
	Status           Status
	CreatedAt        time.Time
	UpdatedAt        time.Time
	RefundAmountSats int64
}

// PaymentSender is the subset of *lightning.Node a Registry needs to
// dispatch outgoing payments. Defined here, not imported as a concrete
// type, so registry tests can supply a fake.
type PaymentSender interface {
	SendPayment(ctx context.Context, bolt11 string) ([32]byte, lightning.PaymentStatus, <-chan lightning.PaymentStatus, error)
}

// Registry is the payment-registry subsystem: one per engine.
type Registry struct {
	db     *persistence.Store
	sender PaymentSender

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New wraps an already-open persistence.Store and the Lightning node
// used to dispatch outgoing payments and refunds.
func New(db *persistence.Store, sender PaymentSender) *Registry {
	return &Registry{
		db:     db,
		sender: sender,
		locks:  make(map[string]*sync.Mutex),
	}
}

// lockFor returns the per-payment_id mutex serializing its transitions,
// spec §5 "per payment_id in the registry, transitions are serialized."
func (r *Registry) lockFor(paymentID string) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	l, ok := r.locks[paymentID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[paymentID] = l
	}
	return l
}

func encodeRecord(rec *Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return nil, fmt.Errorf("paymentregistry: encoding record: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeRecord(raw []byte) (*Record, error) {
	var rec Record
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&rec); err != nil {
		return nil, fmt.Errorf("paymentregistry: decoding record: %w", err)
	}
	return &rec, nil
}

// indexKey builds the secondary-index key for the payments_by_wallet
// bucket: wallet_id, a big-endian inverted nanosecond timestamp (so a
// forward bbolt cursor yields descending updated_at, per spec §4.6
// "ordered by updated_at descending"), then payment_id to disambiguate
// same-instant updates.
func indexKey(walletID string, updatedAt time.Time, paymentID string) []byte {
	key := make([]byte, 0, len(walletID)+1+8+1+len(paymentID))
	key = append(key, []byte(walletID)...)
	key = append(key, 0)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(^updatedAt.UnixNano()))
	key = append(key, ts[:]...)
	key = append(key, 0)
	key = append(key, []byte(paymentID)...)
	return key
}

// putRecord writes rec into the primary bucket and refreshes its
// secondary-index entry, removing the stale entry at oldUpdatedAt if
// this is an update rather than an insert.
func putRecord(tx *bolt.Tx, rec *Record, oldUpdatedAt *time.Time) error {
	raw, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	if err := tx.Bucket(persistence.BucketPayments).Put([]byte(rec.PaymentID), raw); err != nil {
		return err
	}
	if oldUpdatedAt != nil {
		oldKey := indexKey(rec.WalletID, *oldUpdatedAt, rec.PaymentID)
		if err := tx.Bucket(persistence.BucketPaymentsByWallet).Delete(oldKey); err != nil {
			return err
		}
	}
	newKey := indexKey(rec.WalletID, rec.UpdatedAt, rec.PaymentID)
	return tx.Bucket(persistence.BucketPaymentsByWallet).Put(newKey, []byte(rec.PaymentID))
}

func getRecord(tx *bolt.Tx, paymentID string) (*Record, error) {
	raw := tx.Bucket(persistence.BucketPayments).Get([]byte(paymentID))
	if raw == nil {
		return nil, ErrNotFound
	}
	return decodeRecord(raw)
}

// ProcessPayment is idempotent by payment_id: a pre-existing record is
// returned unchanged; otherwise a pending record is inserted, the
// Lightning node is asked to send the invoice, and the status is
// updated asynchronously on completion (spec §4.6).
func (r *Registry) ProcessPayment(ctx context.Context, paymentID, walletID string, amountSats int64, invoice, description string) (*Record, error) {
	if paymentID == "" || walletID == "" {
		return nil, fmt.Errorf("%w: payment_id and wallet_id are required", ErrInvalidArgument)
	}
	if amountSats <= 0 {
		return nil, fmt.Errorf("%w: amount_sats must be positive", ErrInvalidArgument)
	}

	lock := r.lockFor(paymentID)
	lock.Lock()
	defer lock.Unlock()

	if existing, err := r.GetPaymentStatus(paymentID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// Round(0) drops the monotonic clock reading, so the returned record
	// compares equal to the one later decoded from the store.
	now := time.Now().Round(0)
	rec := &Record{
		PaymentID:   paymentID,
		WalletID:    walletID,
		AmountSats:  amountSats,
		Invoice:     invoice,
		Description: description,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.db.Update(func(tx *bolt.Tx) error {
		return putRecord(tx, rec, nil)
	}); err != nil {
		return nil, err
	}

	if r.sender != nil && invoice != "" {
		_, _, result, err := r.sender.SendPayment(ctx, invoice)
		if err != nil {
			r.settle(paymentID, StatusFailed)
		} else if result != nil {
			go r.awaitSettlement(paymentID, result)
		}
	}

	return rec, nil
}

// awaitSettlement blocks on the Lightning node's per-payment result
// channel and updates the registry once a terminal status is known.
// It runs detached from the originating request's context: spec §5
// "payments whose dispatch has produced an in-flight HTLC continue to
// resolve in the background regardless of client disconnection."
func (r *Registry) awaitSettlement(paymentID string, result <-chan lightning.PaymentStatus) {
	status, ok := <-result
	if !ok {
		return
	}
	switch status {
	case lightning.StatusSucceeded:
		r.settle(paymentID, StatusCompleted)
	case lightning.StatusFailed:
		r.settle(paymentID, StatusFailed)
	}
}

// settle transitions paymentID to a terminal status, never moving a
// record already in a terminal status (spec §8 invariant 6).
func (r *Registry) settle(paymentID string, to Status) {
	lock := r.lockFor(paymentID)
	lock.Lock()
	defer lock.Unlock()

	err := r.db.Update(func(tx *bolt.Tx) error {
		rec, err := getRecord(tx, paymentID)
		if err != nil {
			return err
		}
		if isTerminal(rec.Status) {
			return nil
		}
		old := rec.UpdatedAt
		rec.Status = to
		rec.UpdatedAt = time.Now()
		return putRecord(tx, rec, &old)
	})
	if err != nil {
		logger.Warn("paymentregistry: settling payment", zap.String("payment_id", paymentID), zap.Error(err))
	}
}

func isTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusRefunded
}

// GetPaymentStatus looks up a record by payment_id.
func (r *Registry) GetPaymentStatus(paymentID string) (*Record, error) {
	var rec *Record
	err := r.db.View(func(tx *bolt.Tx) error {
		found, err := getRecord(tx, paymentID)
		if err != nil {
			return err
		}
		rec = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ProcessRefund is only valid once the record has reached completed (or
// is itself already partially refunded); it issues a new outgoing
// payment against refundInvoice (the address or invoice the counterparty
// supplied out-of-band, per spec §4.6), then records the refund and
// transitions the record to refunded. An empty refundInvoice records the
// refund without dispatching an on-the-wire payment, for callers where
// the counterparty's claim path is handled outside this engine.
//
// The amount bound is checked against what is still refundable —
// AmountSats minus whatever has already been refunded — after the status
// check, which admits both completed and already-refunded records, so a
// refund that merely overshoots the remaining balance reports
// InvalidArgument even on a payment that is itself already refunded
// (spec §8 scenario 6); a payment that never completed at all reports
// FailedPrecondition.
func (r *Registry) ProcessRefund(ctx context.Context, paymentID string, amountSats int64, refundInvoice string) (*Record, error) {
	if amountSats <= 0 {
		return nil, fmt.Errorf("%w: amount_sats must be positive", ErrInvalidArgument)
	}

	lock := r.lockFor(paymentID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := r.GetPaymentStatus(paymentID)
	if err != nil {
		return nil, err
	}
	if rec.Status != StatusCompleted && rec.Status != StatusRefunded {
		return nil, ErrNotCompleted
	}

	remaining := rec.AmountSats - rec.RefundAmountSats
	if amountSats > remaining {
		return nil, fmt.Errorf("%w: refund amount exceeds the amount still refundable", ErrInvalidArgument)
	}

	if r.sender != nil && refundInvoice != "" {
		if _, _, _, err := r.sender.SendPayment(ctx, refundInvoice); err != nil {
			return nil, fmt.Errorf("paymentregistry: dispatching refund: %w", err)
		}
	}

	old := rec.UpdatedAt
	rec.Status = StatusRefunded
	rec.RefundAmountSats += amountSats
	rec.UpdatedAt = time.Now()

	if err := r.db.Update(func(tx *bolt.Tx) error {
		return putRecord(tx, rec, &old)
	}); err != nil {
		return nil, err
	}
	return rec, nil
}

// Stream is a lazy, finite, restartable sequence over one wallet's
// payment records ordered by updated_at descending (spec §4.6
// PaymentStream). Each call to Next opens a short bbolt read
// transaction seeking just past the last key it returned, so two
// Streams constructed with the same walletID see the same prefix until
// new activity changes the underlying index.
type Stream struct {
	db       *persistence.Store
	walletID string
	limit    int

	emitted int
	lastKey []byte
	done    bool
}

// PaymentStream opens a Stream for walletID. A non-positive limit means
// unbounded (the stream ends only when the wallet has no more records).
func (r *Registry) PaymentStream(walletID string, limit int) (*Stream, error) {
	if walletID == "" {
		return nil, fmt.Errorf("%w: wallet_id is required", ErrInvalidArgument)
	}
	return &Stream{db: r.db, walletID: walletID, limit: limit}, nil
}

// Next returns the next record in the stream, or ok=false once the
// stream is exhausted.
func (s *Stream) Next() (rec *Record, ok bool, err error) {
	if s.done {
		return nil, false, nil
	}
	if s.limit > 0 && s.emitted >= s.limit {
		s.done = true
		return nil, false, nil
	}

	prefix := append([]byte(s.walletID), 0)

	err = s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(persistence.BucketPaymentsByWallet).Cursor()

		var k, v []byte
		if s.lastKey == nil {
			k, v = c.Seek(prefix)
		} else {
			c.Seek(s.lastKey)
			k, v = c.Next()
		}

		if k == nil || !bytes.HasPrefix(k, prefix) {
			s.done = true
			return nil
		}

		found, ferr := getRecord(tx, string(v))
		if ferr != nil {
			return ferr
		}
		rec = found
		s.lastKey = append([]byte(nil), k...)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if rec == nil {
		return nil, false, nil
	}
	s.emitted++
	return rec, true, nil
}
