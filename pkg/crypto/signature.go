package crypto

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	dcrecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ethereum/go-ethereum/common"

	"github.com/iJaack/evalanche/pkg/types"
)

// SignatureLen is the length of a recoverable signature: r(32) | s(32) | v(1).
const SignatureLen = 65

// compactRecoveryBase is the header offset used by the compact signature
// format for uncompressed-key recovery.
const compactRecoveryBase = 27

// Signer produces recoverable secp256k1 signatures over 32-byte hashes.
type Signer interface {
	SignHash(hash []byte) ([]byte, error)
	PublicKey() []byte
}

// PrivateKey wraps a secp256k1 private key.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes creates a PrivateKey from a 32-byte secret.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	key := secp256k1.PrivKeyFromBytes(b)
	if key.Key.IsZero() {
		return nil, fmt.Errorf("private key is zero")
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromHex parses a 64-character hex secret, with or without 0x.
func PrivateKeyFromHex(s string) (*PrivateKey, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key hex: %w", err)
	}
	return PrivateKeyFromBytes(b)
}

// SignHash produces a recoverable signature over a 32-byte hash in the
// r | s | v layout expected by ledger credentials, v being 0 or 1.
func (pk *PrivateKey) SignHash(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	compact := dcrecdsa.SignCompact(pk.key, hash, false)
	sig := make([]byte, SignatureLen)
	copy(sig, compact[1:])
	sig[64] = compact[0] - compactRecoveryBase
	return sig, nil
}

// PublicKey returns the compressed 33-byte public key.
func (pk *PrivateKey) PublicKey() []byte {
	return pk.key.PubKey().SerializeCompressed()
}

// UncompressedPublicKey returns the 65-byte uncompressed public key.
func (pk *PrivateKey) UncompressedPublicKey() []byte {
	return pk.key.PubKey().SerializeUncompressed()
}

// ShortID returns the UTXO-ledger address owned by this key.
func (pk *PrivateKey) ShortID() types.ShortID {
	return ShortIDFromPubKey(pk.PublicKey())
}

// EVMAddress returns the EVM ledger address owned by this key.
func (pk *PrivateKey) EVMAddress() common.Address {
	return EVMAddressFromPubKey(pk.UncompressedPublicKey())
}

// ToECDSA returns the key in the standard library form used by EVM tooling.
func (pk *PrivateKey) ToECDSA() *ecdsa.PrivateKey {
	return pk.key.ToECDSA()
}

// Serialize returns the 32-byte private key scalar.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// Zero securely zeroes the private key memory.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}

// RecoverPublicKey returns the compressed public key that produced sig over hash.
func RecoverPublicKey(hash, sig []byte) ([]byte, error) {
	if len(sig) != SignatureLen {
		return nil, fmt.Errorf("signature must be %d bytes, got %d", SignatureLen, len(sig))
	}
	if sig[64] > 1 {
		return nil, fmt.Errorf("invalid recovery id %d", sig[64])
	}
	compact := make([]byte, SignatureLen)
	compact[0] = sig[64] + compactRecoveryBase
	copy(compact[1:], sig[:64])
	pub, _, err := dcrecdsa.RecoverCompact(compact, hash)
	if err != nil {
		return nil, fmt.Errorf("recover: %w", err)
	}
	return pub.SerializeCompressed(), nil
}

// VerifySignature checks that sig over hash was produced by the holder of
// the compressed publicKey. Returns false on any error.
func VerifySignature(hash, sig, publicKey []byte) bool {
	pub, err := RecoverPublicKey(hash, sig)
	if err != nil {
		return false
	}
	return bytes.Equal(pub, publicKey)
}
