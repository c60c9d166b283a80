package walletcore

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

// Chain selects the external (receive) or internal (change) derivation
// branch, per BIP-44.
type Chain uint32

const (
	ChainExternal Chain = 0
	ChainInternal Chain = 1
)

// lightningPurpose is LND's own convention for deriving node
// identity and channel keys along a path disjoint from on-chain addresses:
// m/1017'/<coin_type>'/<key_family>'/0/<index>. Using the same constant
// keeps this engine's key hygiene identical to upstream lnd.
const lightningPurpose = 1017

// KeyFamily enumerates the disjoint key families derived under the
// Lightning identity path, mirroring lnd's keychain.KeyFamily split
// between the node identity key and per-channel commitment/HTLC keys.
type KeyFamily uint32

const (
	KeyFamilyNodeIdentity      KeyFamily = 0
	KeyFamilyMultiSig          KeyFamily = 1
	KeyFamilyRevocationBase    KeyFamily = 2
	KeyFamilyHTLCBase          KeyFamily = 3
	KeyFamilyPaymentBase       KeyFamily = 4
	KeyFamilyDelayBase         KeyFamily = 5
	KeyFamilyRevocationRoot    KeyFamily = 6
)

// CoinType returns the BIP-44 coin type for the network: 0 for mainnet,
// 1 for testnet/regtest/signet, per spec §3.
func CoinType(params *chaincfg.Params) uint32 {
	if params == &chaincfg.MainNetParams {
		return 0
	}
	return 1
}

// KeyTree is the BIP-32 HD key hierarchy derived from a wallet's master
// seed. It never exposes the seed itself; only derived child keys.
type KeyTree struct {
	params *chaincfg.Params
	master *hdkeychain.ExtendedKey
}

// NewKeyTree derives the master extended key from seed under params. The
// caller retains ownership of seed and should zero it afterward.
func NewKeyTree(seed []byte, params *chaincfg.Params) (*KeyTree, error) {
	master, err := hdkeychain.NewMaster(seed, params)
	if err != nil {
		return nil, fmt.Errorf("walletcore: deriving master key: %w", err)
	}
	return &KeyTree{params: params, master: master}, nil
}

// onChainAccountKey derives m/44'/coin_type'/0'.
func (t *KeyTree) onChainAccountKey() (*hdkeychain.ExtendedKey, error) {
	purpose, err := t.master.Derive(hdkeychain.HardenedKeyStart + 44)
	if err != nil {
		return nil, fmt.Errorf("deriving purpose key: %w", err)
	}
	coinType, err := purpose.Derive(hdkeychain.HardenedKeyStart + CoinType(t.params))
	if err != nil {
		return nil, fmt.Errorf("deriving coin type key: %w", err)
	}
	account, err := coinType.Derive(hdkeychain.HardenedKeyStart + 0)
	if err != nil {
		return nil, fmt.Errorf("deriving account key: %w", err)
	}
	return account, nil
}

// DeriveAddressKey derives m/44'/coin_type'/0'/chain/index, the key behind
// a receive (ChainExternal) or change (ChainInternal) address.
func (t *KeyTree) DeriveAddressKey(chain Chain, index uint32) (*hdkeychain.ExtendedKey, error) {
	account, err := t.onChainAccountKey()
	if err != nil {
		return nil, err
	}
	chainKey, err := account.Derive(uint32(chain))
	if err != nil {
		return nil, fmt.Errorf("deriving chain key: %w", err)
	}
	addrKey, err := chainKey.Derive(index)
	if err != nil {
		return nil, fmt.Errorf("deriving address key %d: %w", index, err)
	}
	return addrKey, nil
}

// DeriveAddress derives a P2WPKH receive or change address at index.
func (t *KeyTree) DeriveAddress(chain Chain, index uint32) (btcutil.Address, error) {
	key, err := t.DeriveAddressKey(chain, index)
	if err != nil {
		return nil, err
	}
	pubKey, err := key.ECPubKey()
	if err != nil {
		return nil, fmt.Errorf("walletcore: deriving public key: %w", err)
	}
	pkHash := btcutil.Hash160(pubKey.SerializeCompressed())
	return btcutil.NewAddressWitnessPubKeyHash(pkHash, t.params)
}

// DerivePrivateKey returns the raw private key for signing an on-chain
// transaction input at the given chain/index. The caller must zero the
// returned key's bytes after use.
func (t *KeyTree) DerivePrivateKey(chain Chain, index uint32) (*btcec.PrivateKey, error) {
	key, err := t.DeriveAddressKey(chain, index)
	if err != nil {
		return nil, err
	}
	return key.ECPrivKey()
}

// lightningKey derives m/1017'/coin_type'/key_family'/0/index, lnd's
// convention for deriving Lightning-specific keys along a path disjoint
// from on-chain addresses (spec §3, §4.5).
func (t *KeyTree) lightningKey(family KeyFamily, index uint32) (*hdkeychain.ExtendedKey, error) {
	purpose, err := t.master.Derive(hdkeychain.HardenedKeyStart + lightningPurpose)
	if err != nil {
		return nil, fmt.Errorf("deriving lightning purpose key: %w", err)
	}
	coinType, err := purpose.Derive(hdkeychain.HardenedKeyStart + CoinType(t.params))
	if err != nil {
		return nil, fmt.Errorf("deriving lightning coin type key: %w", err)
	}
	familyKey, err := coinType.Derive(hdkeychain.HardenedKeyStart + uint32(family))
	if err != nil {
		return nil, fmt.Errorf("deriving key family %d: %w", family, err)
	}
	chainKey, err := familyKey.Derive(0)
	if err != nil {
		return nil, fmt.Errorf("deriving lightning chain key: %w", err)
	}
	indexKey, err := chainKey.Derive(index)
	if err != nil {
		return nil, fmt.Errorf("deriving lightning index key %d: %w", index, err)
	}
	return indexKey, nil
}

// NodeIdentityKey returns the Lightning node's long-term identity key
// (m/1017'/coin_type'/0'/0/0). Its public key, serialized compressed, is
// the node_id exposed by Wallet.CreateWallet.
func (t *KeyTree) NodeIdentityKey() (*btcec.PrivateKey, error) {
	key, err := t.lightningKey(KeyFamilyNodeIdentity, 0)
	if err != nil {
		return nil, err
	}
	return key.ECPrivKey()
}

// ChannelKey derives a per-channel key of the given family and index,
// used for the funding multisig key, revocation basepoint, HTLC
// basepoint, payment basepoint, or delay basepoint of one channel.
func (t *KeyTree) ChannelKey(family KeyFamily, index uint32) (*btcec.PrivateKey, error) {
	key, err := t.lightningKey(family, index)
	if err != nil {
		return nil, err
	}
	return key.ECPrivKey()
}
