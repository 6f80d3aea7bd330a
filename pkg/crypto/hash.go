// Package crypto provides the hashing and signing primitives shared by the
// three ledgers.
package crypto

import (
	"crypto/sha256"

	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // address format requires ripemd160

	"github.com/iJaack/evalanche/pkg/types"
)

// Hash computes the sha256 digest signed by UTXO-ledger credentials.
func Hash(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// ShortIDFromPubKey derives a UTXO-ledger address from a compressed public
// key: ripemd160(sha256(pubkey)).
func ShortIDFromPubKey(pubKey []byte) types.ShortID {
	sha := sha256.Sum256(pubKey)
	h := ripemd160.New()
	h.Write(sha[:])
	var id types.ShortID
	copy(id[:], h.Sum(nil))
	return id
}

// EVMAddressFromPubKey derives an EVM address from a 65-byte uncompressed
// public key: keccak256(pubkey[1:])[12:].
func EVMAddressFromPubKey(uncompressed []byte) common.Address {
	return common.BytesToAddress(gethcrypto.Keccak256(uncompressed[1:])[12:])
}
