// Package walletcore generates or imports the BIP-39 mnemonic, derives the
// master seed and BIP-32 key tree, and exposes the signing capabilities
// the rest of the engine needs: on-chain address derivation, transaction
// signing, and the Lightning node's identity and channel keys.
package walletcore

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// ErrWalletExists is returned by the engine's CreateWallet when a wallet
// has already been initialized; spec §4.2 requires an explicit reset
// before re-initializing. New itself does not check for this.
var ErrWalletExists = errors.New("walletcore: wallet already initialized")

// Wallet is the in-memory handle to one engine's key material. The seed
// lives only in a SecureBytes buffer and is zeroed when Close is called.
type Wallet struct {
	params *chaincfg.Params
	seed   *SecureBytes
	tree   *KeyTree

	nextReceiveIndex uint32
	nextChangeIndex  uint32
}

// New builds a Wallet from a mnemonic and optional passphrase. The
// mnemonic must already have passed ValidateMnemonic (CreateWallet's
// caller is responsible for generating or validating it first).
func New(mnemonic, passphrase string, params *chaincfg.Params) (*Wallet, error) {
	seed := MnemonicToSeed(mnemonic, passphrase)
	defer zero(seed)

	tree, err := NewKeyTree(seed, params)
	if err != nil {
		return nil, err
	}

	return &Wallet{
		params: params,
		seed:   NewSecureBytes(seed),
		tree:   tree,
	}, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Close zeros the wallet's seed. The Wallet must not be used afterward.
func (w *Wallet) Close() {
	w.seed.Destroy()
}

// NodeID returns the hex-encoded, compressed public key that identifies
// this wallet's Lightning node, per Wallet.CreateWallet's contract in
// spec §4.1.
func (w *Wallet) NodeID() (string, error) {
	key, err := w.tree.NodeIdentityKey()
	if err != nil {
		return "", fmt.Errorf("walletcore: node id: %w", err)
	}
	defer zeroPrivKey(key)
	return hex.EncodeToString(key.PubKey().SerializeCompressed()), nil
}

// NewReceiveAddress derives the next unused external-chain address.
func (w *Wallet) NewReceiveAddress() (btcutil.Address, uint32, error) {
	index := w.nextReceiveIndex
	addr, err := w.tree.DeriveAddress(ChainExternal, index)
	if err != nil {
		return nil, 0, err
	}
	w.nextReceiveIndex++
	return addr, index, nil
}

// NewChangeAddress derives the next unused internal-chain address.
func (w *Wallet) NewChangeAddress() (btcutil.Address, uint32, error) {
	index := w.nextChangeIndex
	addr, err := w.tree.DeriveAddress(ChainInternal, index)
	if err != nil {
		return nil, 0, err
	}
	w.nextChangeIndex++
	return addr, index, nil
}

// SigningKeyFor returns the private key that controls the given
// chain/index on-chain address, for signing a transaction input that
// spends to it. The caller is responsible for clearing the returned key
// (its Zero method) once signing is complete.
func (w *Wallet) SigningKeyFor(chain Chain, index uint32) (*btcec.PrivateKey, error) {
	return w.tree.DerivePrivateKey(chain, index)
}

// ChannelSigningKey exposes a per-channel Lightning key (funding multisig,
// revocation basepoint, HTLC basepoint, payment basepoint, or delay
// basepoint) for the given channel index, per spec §4.5's key derivation.
func (w *Wallet) ChannelSigningKey(family KeyFamily, channelIndex uint32) (*btcec.PrivateKey, error) {
	return w.tree.ChannelKey(family, channelIndex)
}

// zeroPrivKey overwrites a private key's serialized bytes. btcec.PrivateKey
// wraps its own internal secp256k1 scalar, so this only prevents the
// extracted copy below from lingering in memory.
func zeroPrivKey(key *btcec.PrivateKey) {
	b := key.Serialize()
	zero(b)
}
