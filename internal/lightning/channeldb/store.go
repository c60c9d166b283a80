package channeldb

import (
	"bytes"
	"encoding/gob"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/satsengine/lnengine/internal/persistence"
)

// Store persists Channel records into the shared persistence.Store's
// channels bucket. Each mutating call commits its bolt.Update before
// returning, so "persisted before acknowledged" (spec §4.5) holds for
// channel state the same way it holds for the wallet envelope and
// payment registry.
type Store struct {
	db *persistence.Store
}

// New wraps an already-open persistence.Store.
func New(db *persistence.Store) *Store {
	return &Store{db: db}
}

func encode(c *Channel) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(c); err != nil {
		return nil, fmt.Errorf("channeldb: encoding channel record: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(raw []byte) (*Channel, error) {
	var c Channel
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&c); err != nil {
		return nil, fmt.Errorf("channeldb: decoding channel record: %w", err)
	}
	return &c, nil
}

// Put validates and persists a channel record.
func (s *Store) Put(c *Channel) error {
	if err := c.Validate(); err != nil {
		return err
	}
	raw, err := encode(c)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(persistence.BucketChannels).Put([]byte(c.ChannelID), raw)
	})
}

// Get returns the channel record for channelID.
func (s *Store) Get(channelID string) (*Channel, error) {
	var c *Channel
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(persistence.BucketChannels).Get([]byte(channelID))
		if raw == nil {
			return fmt.Errorf("channeldb: channel %s not found", channelID)
		}
		decoded, err := decode(raw)
		if err != nil {
			return err
		}
		c = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// All returns every persisted channel record, used at startup to
// reestablish peer connections and reconcile against the chain tip
// (spec §4.7).
func (s *Store) All() ([]*Channel, error) {
	var channels []*Channel
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(persistence.BucketChannels).ForEach(func(_, raw []byte) error {
			c, err := decode(raw)
			if err != nil {
				return err
			}
			channels = append(channels, c)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return channels, nil
}

// Checkpoint writes a point-in-time snapshot of a channel's state into
// the checkpoints bucket, keyed by channel_id+commitment_number, so a
// corrupted live record can be recovered from the most recent durable
// snapshot (spec §4.7).
func (s *Store) Checkpoint(c *Channel) error {
	raw, err := encode(c)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("%s:%020d", c.ChannelID, c.CommitmentNumber)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(persistence.BucketChannelCheckpoints).Put([]byte(key), raw)
	})
}

// Delete removes a channel record once it reaches the resolved state.
func (s *Store) Delete(channelID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(persistence.BucketChannels).Delete([]byte(channelID))
	})
}
