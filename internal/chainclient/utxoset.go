package chainclient

import (
	"context"
	"time"

	"github.com/lightninglabs/neutrino/cache/lru"
)

// feeCacheSize bounds the number of recent fee-estimate snapshots kept,
// so the Lightning node's fee lookups during a burst of channel
// operations don't each force a fresh chain-source round trip.
const feeCacheSize = 8

// feeCacheTTL is how long a cached fee snapshot is considered fresh.
const feeCacheTTL = 30 * time.Second

// feeCacheKey implements lru.CacheKey; there is only ever one live
// snapshot, so the key is constant.
type feeCacheKey struct{}

// feeCacheEntry implements lru.CacheValue.
type feeCacheEntry struct {
	estimates []FeeEstimate
	fetchedAt time.Time
}

func (feeCacheEntry) Size() (uint64, error) { return 1, nil }

// FeeCache wraps a small LRU cache of fee-estimate snapshots in front of
// Client.FeeEstimates, grounded on the teacher's use of
// github.com/lightninglabs/neutrino/cache for header/filter caching,
// repurposed here for fee-estimate snapshots.
type FeeCache struct {
	client *Client
	cache  *lru.Cache
}

// NewFeeCache wraps client with an LRU cache of feeCacheSize entries.
func NewFeeCache(client *Client) *FeeCache {
	return &FeeCache{
		client: client,
		cache:  lru.NewCache(feeCacheSize),
	}
}

// Estimates returns the most recent fee estimates, refreshing from the
// chain source when the cached snapshot has expired.
func (f *FeeCache) Estimates(ctx context.Context) ([]FeeEstimate, error) {
	if val, err := f.cache.Get(feeCacheKey{}); err == nil && val != nil {
		if entry, ok := val.(*feeCacheEntry); ok && time.Since(entry.fetchedAt) < feeCacheTTL {
			return entry.estimates, nil
		}
	}

	estimates, err := f.client.FeeEstimates(ctx)
	if err != nil {
		return nil, err
	}

	_, _ = f.cache.Put(feeCacheKey{}, &feeCacheEntry{estimates: estimates, fetchedAt: time.Now()})
	return estimates, nil
}
