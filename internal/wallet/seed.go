package wallet

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"

	"github.com/iJaack/evalanche/pkg/crypto"
)

// SeedSize is the length of a BIP-39 seed in bytes.
const SeedSize = 64

// SeedKind says what a Seed holds.
type SeedKind string

const (
	KindMnemonic   SeedKind = "mnemonic"
	KindPrivateKey SeedKind = "private-key"
)

// Seed is the agent's root secret: a mnemonic, or a bare private key that
// only backs the C ledger.
type Seed struct {
	kind     SeedKind
	mnemonic string
	privKey  []byte
}

// SeedSource supplies the root secret. Store implements it; an external
// secret manager can too.
type SeedSource interface {
	Load() (*Seed, error)
}

// NewMnemonicSeed validates and wraps a mnemonic.
func NewMnemonicSeed(mnemonic string) (*Seed, error) {
	m := NormalizeMnemonic(mnemonic)
	if !bip39.IsMnemonicValid(m) {
		return nil, ErrInvalidMnemonic
	}
	return &Seed{kind: KindMnemonic, mnemonic: m}, nil
}

// NewPrivateKeySeed wraps a hex-encoded secp256k1 private key.
func NewPrivateKeySeed(hexKey string) (*Seed, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	return newPrivateKeySeed(raw)
}

func newPrivateKeySeed(raw []byte) (*Seed, error) {
	key, err := crypto.PrivateKeyFromBytes(raw)
	if err != nil {
		return nil, err
	}
	return &Seed{kind: KindPrivateKey, privKey: key.Serialize()}, nil
}

// Kind reports what the seed holds.
func (s *Seed) Kind() SeedKind { return s.kind }

// HasMnemonic reports whether all three ledgers are derivable.
func (s *Seed) HasMnemonic() bool { return s.kind == KindMnemonic }

// Mnemonic returns the recovery phrase, or ErrNoMnemonic.
func (s *Seed) Mnemonic() (string, error) {
	if s.kind != KindMnemonic {
		return "", ErrNoMnemonic
	}
	return s.mnemonic, nil
}

// BIP39Seed derives the 64-byte seed with an empty passphrase.
func (s *Seed) BIP39Seed() ([]byte, error) {
	if s.kind != KindMnemonic {
		return nil, ErrNoMnemonic
	}
	seed, err := bip39.NewSeedWithErrorChecking(s.mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("derive seed: %w", err)
	}
	return seed, nil
}

// secret is the plaintext stored in the encrypted record.
func (s *Seed) secret() []byte {
	if s.kind == KindMnemonic {
		return []byte(s.mnemonic)
	}
	return append([]byte{}, s.privKey...)
}

func seedFromSecret(kind SeedKind, secret []byte) (*Seed, error) {
	switch kind {
	case KindMnemonic:
		return NewMnemonicSeed(string(secret))
	case KindPrivateKey:
		return newPrivateKeySeed(secret)
	default:
		return nil, fmt.Errorf("unknown seed kind %q", kind)
	}
}

// Zero clears the private key bytes. The mnemonic string cannot be wiped.
func (s *Seed) Zero() {
	for i := range s.privKey {
		s.privKey[i] = 0
	}
}

// String never reveals the secret.
func (s *Seed) String() string {
	return fmt.Sprintf("Seed(%s, redacted)", s.kind)
}

// GoString keeps %#v from printing fields.
func (s *Seed) GoString() string { return s.String() }
