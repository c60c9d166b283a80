// Package engine wires the secure store, persistence layer, chain
// client, wallet core, Lightning node and payment registry into the
// single running instance the RPC surface dispatches to, per spec §2's
// "Dependency order (leaves first)" and §4.2's "one engine instance
// manages one logical wallet."
//
// Grounded on lnd.go's lndMain (package main): load config, open
// stores, construct subsystems in dependency order, block until
// shutdown. Collapsed here into one orchestrator type instead of a
// single giant main function, since the RPC layer needs a handle to
// reach into it.
package engine

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	bolt "go.etcd.io/bbolt"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/satsengine/lnengine/config"
	"github.com/satsengine/lnengine/internal/chainclient"
	"github.com/satsengine/lnengine/internal/lightning"
	"github.com/satsengine/lnengine/internal/lightning/channeldb"
	"github.com/satsengine/lnengine/internal/paymentregistry"
	"github.com/satsengine/lnengine/internal/persistence"
	"github.com/satsengine/lnengine/internal/securestore"
	"github.com/satsengine/lnengine/internal/walletcore"
	"github.com/satsengine/lnengine/pkg/logger"
)

// envelopeKey is the single fixed key the wallet envelope bucket holds
// (spec §4.7 "the encrypted wallet envelope" — one engine, one wallet).
var envelopeKey = []byte("wallet")

func encodeEnvelope(env *securestore.Envelope) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return nil, fmt.Errorf("engine: encoding wallet envelope: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeEnvelope(raw []byte) (*securestore.Envelope, error) {
	var env securestore.Envelope
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&env); err != nil {
		return nil, fmt.Errorf("engine: decoding wallet envelope: %w", err)
	}
	return &env, nil
}

// ErrWalletNotInitialized is returned by any operation that needs a
// wallet before CreateWallet has been called, per spec §4.1
// "FailedPrecondition if the wallet is not initialized."
var ErrWalletNotInitialized = errors.New("engine: wallet is not initialized")

// Engine owns every subsystem for one logical wallet: the secure store,
// the persistence layer, the chain client, and — once CreateWallet has
// run — the wallet core, the Lightning node, and the payment registry.
type Engine struct {
	cfg    config.EngineConfig
	params *chaincfg.Params

	store  *persistence.Store
	secure *securestore.Store
	chain  *chainclient.Client

	mu       sync.RWMutex
	wallet   *walletcore.Wallet
	node     *lightning.Node
	payments *paymentregistry.Registry

	runCtx    context.Context
	runCancel context.CancelFunc
}

// Open acquires the data directory, opens the secure store, and — if a
// chain source URL is configured — connects the chain client. It does
// not require a wallet to already exist; CreateWallet (or replaying an
// existing envelope, see Start) brings the remaining subsystems up.
func Open(ctx context.Context, cfg config.EngineConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: invalid configuration: %w", err)
	}

	params, err := chainParams(cfg.Network)
	if err != nil {
		return nil, err
	}

	store, err := persistence.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("engine: opening data directory: %w", err)
	}

	secure, err := securestore.New(kdfParams(cfg))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("engine: initializing secure store: %w", err)
	}

	e := &Engine{
		cfg:    cfg,
		params: params,
		store:  store,
		secure: secure,
	}

	if cfg.ChainSourceURL != "" {
		source := chainclient.NewEsploraSource(cfg.ChainSourceURL, uint32(params.Net))
		chain, err := chainclient.New(ctx, source, uint32(params.Net), 15*time.Second)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("engine: connecting chain source: %w", err)
		}
		e.chain = chain
	}

	if err := e.restoreWalletIfPresent(ctx); err != nil {
		store.Close()
		return nil, err
	}

	return e, nil
}

// Start launches the chain client's poll loop and, if a wallet was
// restored from a persisted envelope, the Lightning node's background
// reconnection and contract-resolution tasks. It returns once ctx is
// cancelled; callers run it in a background goroutine.
func (e *Engine) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	e.runCtx = ctx
	e.runCancel = cancel

	errCh := make(chan error, 2)
	active := 0

	if e.chain != nil {
		active++
		go func() { errCh <- e.chain.Run(ctx) }()
	}

	e.mu.RLock()
	node := e.node
	e.mu.RUnlock()
	if node != nil {
		active++
		go func() { errCh <- node.Start(ctx) }()
	}

	if active == 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	return <-errCh
}

// Close shuts down background tasks and releases the data directory.
func (e *Engine) Close() error {
	if e.runCancel != nil {
		e.runCancel()
	}
	if e.wallet != nil {
		e.wallet.Close()
	}
	return e.store.Close()
}

// restoreWalletIfPresent replays a previously created wallet envelope at
// startup, per spec §4.7 "on startup, the engine replays persisted
// channel state, reestablishes peer connections."
func (e *Engine) restoreWalletIfPresent(ctx context.Context) error {
	env, ok, err := loadEnvelope(e.store)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	plaintext, err := e.secure.Decrypt(ctx, env, []byte(e.cfg.WalletPassphrase))
	if err != nil {
		return fmt.Errorf("engine: decrypting wallet envelope: %w", err)
	}
	defer zeroBytes(plaintext)

	mnemonic := string(plaintext)
	return e.bringUpWallet(mnemonic, "")
}

// bringUpWallet constructs the wallet core, the Lightning node, and the
// payment registry from an already-validated mnemonic, in the
// dependency order spec §2 describes: wallet core, then Lightning node,
// then payment registry.
func (e *Engine) bringUpWallet(mnemonic, passphrase string) error {
	wallet, err := walletcore.New(mnemonic, passphrase, e.params)
	if err != nil {
		return fmt.Errorf("engine: constructing wallet: %w", err)
	}

	channelStore := channeldb.New(e.store)
	node, err := lightning.New(lightning.Config{
		Params:               e.params,
		Wallet:               wallet,
		ChannelStore:         channelStore,
		Chain:                e.chain,
		DefaultInvoiceExpiry: time.Duration(e.cfg.InvoiceDefaultExpirySeconds) * time.Second,
		ConfirmationsReady:   e.cfg.ConfirmationsForChannelReady,
		PaymentRetryMax:      e.cfg.PaymentRetryMaxAttempts,
	})
	if err != nil {
		wallet.Close()
		return fmt.Errorf("engine: constructing lightning node: %w", err)
	}

	e.mu.Lock()
	e.wallet = wallet
	e.node = node
	e.payments = paymentregistry.New(e.store, node)
	e.mu.Unlock()

	return nil
}

// CreateWallet generates or imports a mnemonic, encrypts it under the
// configured passphrase, persists the envelope, and brings up the
// Lightning node, per spec §4.1 CreateWallet and §4.2.
func (e *Engine) CreateWallet(ctx context.Context, mnemonic, label string) (nodeID string, address string, err error) {
	e.mu.RLock()
	exists := e.wallet != nil
	e.mu.RUnlock()
	if exists {
		return "", "", walletcore.ErrWalletExists
	}

	if mnemonic == "" {
		mnemonic, err = walletcore.GenerateMnemonic(24)
		if err != nil {
			return "", "", fmt.Errorf("engine: generating mnemonic: %w", err)
		}
	} else if err := walletcore.ValidateMnemonic(mnemonic); err != nil {
		return "", "", err
	}

	if err := e.bringUpWallet(mnemonic, ""); err != nil {
		return "", "", err
	}

	env, err := e.secure.Encrypt([]byte(mnemonic), []byte(e.cfg.WalletPassphrase))
	if err != nil {
		return "", "", fmt.Errorf("engine: sealing wallet envelope: %w", err)
	}
	if err := saveEnvelope(e.store, env); err != nil {
		return "", "", err
	}

	e.mu.RLock()
	wallet, node := e.wallet, e.node
	e.mu.RUnlock()

	nodeID, err = wallet.NodeID()
	if err != nil {
		return "", "", err
	}

	addr, _, err := wallet.NewReceiveAddress()
	if err != nil {
		return "", "", err
	}
	address = addr.EncodeAddress()

	if e.chain != nil {
		e.chain.Watch(address)
	}

	logger.Info("engine: wallet created", zap.String("label", label), zap.String("node_id", nodeID))

	if e.runCtx != nil {
		go func() {
			if err := node.Start(e.runCtx); err != nil {
				logger.Warn("engine: lightning node stopped", zap.Error(err))
			}
		}()
	}

	return nodeID, address, nil
}

// GetBalance reports the on-chain confirmed balance and the Lightning
// spendable balance, per spec §4.1 GetBalance and §5's balance-report
// ordering guarantee (each observed under its own lock).
func (e *Engine) GetBalance() (confirmedSats, lightningSats int64, err error) {
	node, err := e.requireWallet()
	if err != nil {
		return 0, 0, err
	}
	if e.chain != nil {
		confirmedSats = e.chain.ConfirmedBalance()
	}
	lightningSats = node.GetBalance()
	return confirmedSats, lightningSats, nil
}

// NewInvoice mints a BOLT-11 invoice via the Lightning node.
func (e *Engine) NewInvoice(amountSats int64, memo string) (bolt11 string, paymentHash [32]byte, err error) {
	node, err := e.requireWallet()
	if err != nil {
		return "", [32]byte{}, err
	}
	return node.NewInvoice(amountSats, memo)
}

// SendPayment decodes and dispatches a BOLT-11 invoice via the
// Lightning node.
func (e *Engine) SendPayment(ctx context.Context, bolt11 string) (paymentHash [32]byte, status lightning.PaymentStatus, err error) {
	node, err := e.requireWallet()
	if err != nil {
		return [32]byte{}, "", err
	}
	hash, status, _, err := node.SendPayment(ctx, bolt11)
	return hash, status, err
}

// Payments exposes the payment registry for the RPC layer's Payments
// service; it is nil until a wallet exists.
func (e *Engine) Payments() (*paymentregistry.Registry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.payments == nil {
		return nil, ErrWalletNotInitialized
	}
	return e.payments, nil
}

func (e *Engine) requireWallet() (*lightning.Node, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.node == nil {
		return nil, ErrWalletNotInitialized
	}
	return e.node, nil
}

func loadEnvelope(store *persistence.Store) (*securestore.Envelope, bool, error) {
	var env *securestore.Envelope
	err := store.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(persistence.BucketWalletEnvelope).Get(envelopeKey)
		if raw == nil {
			return nil
		}
		decoded, err := decodeEnvelope(raw)
		if err != nil {
			return err
		}
		env = decoded
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return env, env != nil, nil
}

func saveEnvelope(store *persistence.Store, env *securestore.Envelope) error {
	raw, err := encodeEnvelope(env)
	if err != nil {
		return err
	}
	return store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(persistence.BucketWalletEnvelope).Put(envelopeKey, raw)
	})
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func chainParams(network config.Network) (*chaincfg.Params, error) {
	switch network {
	case config.Mainnet:
		return &chaincfg.MainNetParams, nil
	case config.Testnet:
		return &chaincfg.TestNet3Params, nil
	case config.Signet:
		return &chaincfg.SigNetParams, nil
	case config.Regtest:
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("engine: unknown network %q", network)
	}
}

func kdfParams(cfg config.EngineConfig) securestore.KDFParams {
	salt := make([]byte, securestore.SaltSize)
	if cfg.KeyDerivation == config.PBKDF2 {
		return securestore.KDFParams{
			Algorithm:  securestore.KDFPBKDF2,
			Salt:       salt,
			Iterations: uint32(cfg.PBKDF2Iterations),
			KeyVersion: 1,
		}
	}
	return securestore.KDFParams{
		Algorithm:   securestore.KDFArgon2id,
		Salt:        salt,
		Iterations:  cfg.Argon2Iterations,
		MemoryKiB:   cfg.Argon2MemoryKiB,
		Parallelism: 1,
		KeyVersion:  1,
	}
}
