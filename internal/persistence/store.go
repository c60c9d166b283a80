// Package persistence is the engine's single durable store: one
// go.etcd.io/bbolt database file per data directory holding the channel
// state bucket, the payment registry (with its wallet_id+updated_at
// secondary index), and the encrypted wallet envelope, protected by a
// lock file that keeps a data directory exclusive to one engine
// instance, per spec §4.7 and §6. Grounded on channeldb/db.go's
// bolt.Open + bucket-creation-on-open pattern, adapted from
// boltdb/bolt to its maintained fork.
package persistence

import (
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

const (
	dbFileName       = "engine.db"
	dbFilePermission = 0o600
	dirPermission    = 0o700
)

var (
	// BucketChannels holds one record per channel_id (spec §4.7 a).
	BucketChannels = []byte("channels")
	// BucketChannelCheckpoints holds full-state channel snapshots keyed by
	// channel_id and commitment number (channeldb.Store.Checkpoint). The
	// live record in BucketChannels is overwritten in place, not appended.
	BucketChannelCheckpoints = []byte("channel_checkpoints")
	// BucketPayments is keyed by payment_id (spec §4.7 b).
	BucketPayments = []byte("payments")
	// BucketPaymentsByWallet is the secondary index keyed by
	// wallet_id+updated_at, used by PaymentStream (spec §4.6, §4.7).
	BucketPaymentsByWallet = []byte("payments_by_wallet")
	// BucketWalletEnvelope holds the single encrypted wallet envelope
	// (spec §4.7 c).
	BucketWalletEnvelope = []byte("wallet_envelope")
	// BucketChainState is created on open for chain-client state. The
	// chain client neither reads nor writes it: its tip and watch-set are
	// held in memory only.
	BucketChainState = []byte("chain_state")

	allBuckets = [][]byte{
		BucketChannels,
		BucketChannelCheckpoints,
		BucketPayments,
		BucketPaymentsByWallet,
		BucketWalletEnvelope,
		BucketChainState,
	}
)

// Store wraps a bbolt database providing the bucket layout above. Every
// state-mutating call given to the rest of the engine completes its
// bolt.Update before returning, so "persisted before acknowledged"
// (spec §4.5) holds by construction.
type Store struct {
	db   *bolt.DB
	lock *Lock
}

// Open opens (creating if absent) the engine.db file under dataDir,
// first acquiring the directory's exclusive lock file.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, dirPermission); err != nil {
		return nil, fmt.Errorf("persistence: creating data dir: %w", err)
	}

	lock, err := AcquireLock(dataDir)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dataDir, dbFileName)
	db, err := bolt.Open(path, dbFilePermission, nil)
	if err != nil {
		lock.Release()
		return nil, fmt.Errorf("persistence: opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		lock.Release()
		return nil, err
	}

	return &Store{db: db, lock: lock}, nil
}

// Close closes the database and releases the data-dir lock.
func (s *Store) Close() error {
	err := s.db.Close()
	s.lock.Release()
	return err
}

// Update runs fn in a read-write transaction.
func (s *Store) Update(fn func(tx *bolt.Tx) error) error {
	return s.db.Update(fn)
}

// View runs fn in a read-only transaction.
func (s *Store) View(fn func(tx *bolt.Tx) error) error {
	return s.db.View(fn)
}
