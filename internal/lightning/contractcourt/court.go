package contractcourt

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satsengine/lnengine/pkg/logger"
)

// Court tracks in-flight resolvers for force-closed and breached
// channels and drives them to completion on a poll interval, mirroring
// breachArbiter's contractObserver goroutine without its dedicated
// retribution bucket (resolvers here are driven from already-persisted
// channel state).
type Court struct {
	mu        sync.Mutex
	resolvers map[string]Resolver

	pollInterval time.Duration
}

// New builds a Court polling its resolvers every pollInterval.
func New(pollInterval time.Duration) *Court {
	return &Court{
		resolvers:    make(map[string]Resolver),
		pollInterval: pollInterval,
	}
}

// Watch registers a resolver for an on-chain claim. Idempotent per
// ResolverKey, so a restart replaying persisted channel state does not
// duplicate in-flight claims.
func (c *Court) Watch(r Resolver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.resolvers[r.ResolverKey()]; !exists {
		c.resolvers[r.ResolverKey()] = r
	}
}

// Pending returns the number of resolvers not yet fully resolved.
func (c *Court) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.resolvers)
}

// Run polls every registered resolver until ctx is cancelled, dropping
// each resolver once it reports fully resolved.
func (c *Court) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *Court) tick() {
	c.mu.Lock()
	keys := make([]string, 0, len(c.resolvers))
	for k := range c.resolvers {
		keys = append(keys, k)
	}
	c.mu.Unlock()

	for _, key := range keys {
		c.mu.Lock()
		r, ok := c.resolvers[key]
		c.mu.Unlock()
		if !ok {
			continue
		}

		resolved, err := r.Resolve()
		if err != nil {
			logger.Error("contractcourt: resolver failed", zap.String("key", key), zap.Error(err))
			continue
		}
		if resolved {
			c.mu.Lock()
			delete(c.resolvers, key)
			c.mu.Unlock()
		}
	}
}
