// Package config loads the engine's TOML+env configuration file using
// cleanenv, and exposes the recognized options from the specification's
// external-interfaces section.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
)

// Path is a small chainable wrapper around filepath.Join, matching the
// layout helper used elsewhere in the pack for locating config files
// relative to the running binary.
type Path string

func (p Path) Join(elem ...string) Path {
	parts := append([]string{string(p)}, elem...)
	return Path(filepath.Join(parts...))
}

func (p Path) ToString() string {
	return string(p)
}

// Network identifies the Bitcoin network the engine operates on.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
	Signet  Network = "signet"
	Regtest Network = "regtest"
)

// KeyDerivation selects the secure store's key derivation function.
type KeyDerivation string

const (
	Argon2id KeyDerivation = "argon2id"
	PBKDF2   KeyDerivation = "pbkdf2"
)

// EngineConfig is the full set of options recognized by the engine, per
// spec §6.
type EngineConfig struct {
	Network Network `toml:"network" env:"LNENGINE_NETWORK" env-default:"testnet"`
	DataDir string  `toml:"data_dir" env:"LNENGINE_DATA_DIR" env-default:"./data"`

	ChainSourceURL string `toml:"chain_source_url" env:"LNENGINE_CHAIN_SOURCE_URL"`
	RPCBindAddr    string `toml:"rpc_bind_addr" env:"LNENGINE_RPC_BIND_ADDR" env-default:"127.0.0.1:50051"`

	// WalletPassphrase seals the wallet envelope (spec §4.3 "a user
	// passphrase, or a device-key equivalent on mobile clients"). It is
	// never read from the TOML file — env-only, so it never lands in a
	// checked-in config.
	WalletPassphrase string `toml:"-" env:"LNENGINE_WALLET_PASSPHRASE"`

	ConfirmationsForChannelReady uint32 `toml:"confirmations_for_channel_ready" env:"LNENGINE_CONFIRMATIONS_FOR_CHANNEL_READY" env-default:"3"`
	InvoiceDefaultExpirySeconds  int64  `toml:"invoice_default_expiry_seconds" env:"LNENGINE_INVOICE_DEFAULT_EXPIRY_SECONDS" env-default:"86400"`
	PaymentRetryMaxAttempts      int    `toml:"payment_retry_max_attempts" env:"LNENGINE_PAYMENT_RETRY_MAX_ATTEMPTS" env-default:"5"`

	KeyDerivation    KeyDerivation `toml:"key_derivation" env:"LNENGINE_KEY_DERIVATION" env-default:"argon2id"`
	Argon2MemoryKiB  uint32        `toml:"argon2_memory_kib" env:"LNENGINE_ARGON2_MEMORY_KIB" env-default:"65536"`
	Argon2Iterations uint32        `toml:"argon2_iterations" env:"LNENGINE_ARGON2_ITERATIONS" env-default:"3"`
	PBKDF2Iterations int           `toml:"pbkdf2_iterations" env:"LNENGINE_PBKDF2_ITERATIONS" env-default:"100000"`
}

// Load reads the TOML file at path, overlaying environment variables, into cfg.
func Load(path Path, cfg any) error {
	return cleanenv.ReadConfig(path.ToString(), cfg)
}

// Validate checks the loaded configuration for internally-consistent values
// the spec requires (e.g. confirmation count bounds).
func (c *EngineConfig) Validate() error {
	switch c.Network {
	case Mainnet, Testnet, Signet, Regtest:
	default:
		return fmt.Errorf("invalid network %q", c.Network)
	}

	if c.ConfirmationsForChannelReady < 3 || c.ConfirmationsForChannelReady > 6 {
		return fmt.Errorf("confirmations_for_channel_ready must be 3-6, got %d", c.ConfirmationsForChannelReady)
	}

	switch c.KeyDerivation {
	case Argon2id, PBKDF2:
	default:
		return fmt.Errorf("invalid key_derivation %q", c.KeyDerivation)
	}

	if c.KeyDerivation == PBKDF2 && c.PBKDF2Iterations < 100000 {
		return fmt.Errorf("pbkdf2_iterations must be >= 100000, got %d", c.PBKDF2Iterations)
	}

	if c.KeyDerivation == Argon2id && c.Argon2MemoryKiB < 65536 {
		return fmt.Errorf("argon2_memory_kib must be >= 65536 (64 MiB), got %d", c.Argon2MemoryKiB)
	}

	return nil
}
