// Package chainclient is an Esplora-compatible chain source client:
// tip tracking, per-address UTXO detection, confirmation counting, fee
// estimates, and reorg-triggered rescanning, per spec §4.4. Grounded on
// DanielDucuara2018-btc-giftcard's internal/wallet/btc.go GetUTXOs (single
// blockstream.info GET) generalized into a polled background tracker, with
// retry/backoff grounded on internal/exchange/provider.go's fetchJSON.
package chainclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satsengine/lnengine/pkg/logger"
)

// ErrNetworkMismatch is the fatal error spec §4.4 requires: "a chain
// source that reports a mismatched network magic for the configured
// network — the engine refuses to start."
var ErrNetworkMismatch = errors.New("chainclient: chain source network magic does not match configured network")

// UTXO mirrors the spec §3 on-chain UTXO tuple.
type UTXO struct {
	Outpoint          string // "txid:vout"
	Script            []byte
	AmountSats        int64
	ConfirmationBlock uint32 // 0 if unconfirmed
	DerivationPath    string
}

// Confirmations returns how many confirmations this UTXO has at the
// given tip height, per spec §3 ((tip - height + 1) >= 1 when height > 0).
func (u UTXO) Confirmations(tip uint32) uint32 {
	if u.ConfirmationBlock == 0 || tip < u.ConfirmationBlock {
		return 0
	}
	return tip - u.ConfirmationBlock + 1
}

// FeeEstimate is a simple sat/vbyte estimate for a confirmation target.
type FeeEstimate struct {
	TargetBlocks int
	SatsPerVByte float64
}

// Source is the interface an Esplora/Electrum-compatible backend
// implements; chainclient.Client depends only on this so tests can supply
// a fake.
type Source interface {
	NetworkMagic(ctx context.Context) (uint32, error)
	Tip(ctx context.Context) (uint32, error)
	AddressUTXOs(ctx context.Context, address string) ([]UTXO, error)
	FeeEstimates(ctx context.Context) ([]FeeEstimate, error)
	BroadcastTx(ctx context.Context, rawTx []byte) (string, error)
}

// Client tracks the chain tip and a watch-set of addresses, reconciling
// against Source on a poll interval. Address-watch is monotonically
// additive: Watch never removes an address while the client is alive
// (spec §4.4).
type Client struct {
	source        Source
	expectedMagic uint32
	pollInterval  time.Duration

	mu       sync.RWMutex
	tip      uint32
	watchSet map[string]struct{}
	utxos    map[string][]UTXO // address -> utxos

	reorgHook func(fromHeight uint32)
}

// New validates the chain source's network magic against expectedMagic
// and returns a Client. Per spec §4.4, a mismatch is fatal and the
// engine must refuse to start.
func New(ctx context.Context, source Source, expectedMagic uint32, pollInterval time.Duration) (*Client, error) {
	magic, err := withRetry(ctx, "network magic check", func() (uint32, error) {
		return source.NetworkMagic(ctx)
	})
	if err != nil {
		return nil, err
	}
	if magic != expectedMagic {
		return nil, fmt.Errorf("%w: got 0x%x, want 0x%x", ErrNetworkMismatch, magic, expectedMagic)
	}

	return &Client{
		source:        source,
		expectedMagic: expectedMagic,
		pollInterval:  pollInterval,
		watchSet:      make(map[string]struct{}),
		utxos:         make(map[string][]UTXO),
	}, nil
}

// Watch adds an address to the monitored set. Idempotent.
func (c *Client) Watch(address string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watchSet[address] = struct{}{}
}

// Tip returns the last-observed chain tip height.
func (c *Client) Tip() uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tip
}

// UTXOsFor returns the currently known UTXOs for a watched address.
func (c *Client) UTXOsFor(address string) []UTXO {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]UTXO, len(c.utxos[address]))
	copy(out, c.utxos[address])
	return out
}

// ConfirmedBalance sums the amount of every watched UTXO with at least
// one confirmation at the current tip, per spec §3 "confirmed balance
// is the sum of amounts with height > 0 and (tip - height + 1) >= 1."
func (c *Client) ConfirmedBalance() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var total int64
	for _, utxos := range c.utxos {
		for _, u := range utxos {
			if u.Confirmations(c.tip) >= 1 {
				total += u.AmountSats
			}
		}
	}
	return total
}

// OnReorg registers a callback invoked when a reorg is detected, so
// callers (the Lightning node's channel funding tracker) can rescan
// affected state.
func (c *Client) OnReorg(hook func(fromHeight uint32)) {
	c.reorgHook = hook
}

// Run polls the chain source until ctx is cancelled, updating the tip and
// each watched address's UTXO set, and detecting reorgs (spec §4.4).
func (c *Client) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		if err := c.poll(ctx); err != nil {
			logger.Warn("chainclient: poll failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) poll(ctx context.Context) error {
	newTip, err := withRetry(ctx, "tip", func() (uint32, error) {
		return c.source.Tip(ctx)
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	oldTip := c.tip
	reorged := oldTip != 0 && newTip < oldTip
	c.tip = newTip
	addresses := make([]string, 0, len(c.watchSet))
	for addr := range c.watchSet {
		addresses = append(addresses, addr)
	}
	c.mu.Unlock()

	if reorged && c.reorgHook != nil {
		logger.Warn("chainclient: reorg detected", zap.Uint32("from", newTip), zap.Uint32("to", oldTip))
		c.reorgHook(newTip)
	}

	for _, addr := range addresses {
		utxos, err := withRetry(ctx, "address utxos", func() ([]UTXO, error) {
			return c.source.AddressUTXOs(ctx, addr)
		})
		if err != nil {
			logger.Warn("chainclient: fetching utxos failed", zap.String("address", addr), zap.Error(err))
			continue
		}
		c.mu.Lock()
		c.utxos[addr] = utxos
		c.mu.Unlock()
	}

	return nil
}

// FeeEstimates returns current fee-rate estimates, retried on transient
// failure.
func (c *Client) FeeEstimates(ctx context.Context) ([]FeeEstimate, error) {
	return withRetry(ctx, "fee estimates", func() ([]FeeEstimate, error) {
		return c.source.FeeEstimates(ctx)
	})
}

// Broadcast submits a raw transaction to the chain source.
func (c *Client) Broadcast(ctx context.Context, rawTx []byte) (string, error) {
	return withRetry(ctx, "broadcast", func() (string, error) {
		return c.source.BroadcastTx(ctx, rawTx)
	})
}
