package wallet

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/iJaack/evalanche/pkg/crypto"
	"github.com/iJaack/evalanche/pkg/types"
)

// Keyring holds the per-ledger keys derived from one seed.
type Keyring struct {
	networkID uint32
	hrp       string
	evmKey    *crypto.PrivateKey
	utxoKey   *crypto.PrivateKey // nil for private-key seeds
}

// NewKeyring derives the C key and, for mnemonic seeds, the shared X/P key.
func NewKeyring(seed *Seed, networkID uint32) (*Keyring, error) {
	kr := &Keyring{networkID: networkID, hrp: types.HRPForNetwork(networkID)}

	if !seed.HasMnemonic() {
		key, err := crypto.PrivateKeyFromBytes(seed.privKey)
		if err != nil {
			return nil, fmt.Errorf("load private key: %w", err)
		}
		kr.evmKey = key
		return kr, nil
	}

	bseed, err := seed.BIP39Seed()
	if err != nil {
		return nil, err
	}
	defer zero(bseed)

	if kr.evmKey, err = deriveKey(bseed, PathEVM); err != nil {
		return nil, fmt.Errorf("derive C key: %w", err)
	}
	if kr.utxoKey, err = deriveKey(bseed, PathUTXO); err != nil {
		return nil, fmt.Errorf("derive X/P key: %w", err)
	}
	return kr, nil
}

// NetworkID returns the network the addresses are formatted for.
func (k *Keyring) NetworkID() uint32 { return k.networkID }

// HRP returns the bech32 prefix for X/P addresses.
func (k *Keyring) HRP() string { return k.hrp }

// HasUTXOKey reports whether X and P are usable.
func (k *Keyring) HasUTXOKey() bool { return k.utxoKey != nil }

// EVMAddress returns the C ledger account.
func (k *Keyring) EVMAddress() common.Address { return k.evmKey.EVMAddress() }

// EVMKey returns the C ledger signing key.
func (k *Keyring) EVMKey() *crypto.PrivateKey { return k.evmKey }

// UTXOKey returns the key shared by X and P.
func (k *Keyring) UTXOKey() (*crypto.PrivateKey, error) {
	if k.utxoKey == nil {
		return nil, ErrMultiLedgerUnavailable
	}
	return k.utxoKey, nil
}

// ShortID returns the X/P owner hash.
func (k *Keyring) ShortID() (types.ShortID, error) {
	if k.utxoKey == nil {
		return types.ShortID{}, ErrMultiLedgerUnavailable
	}
	return k.utxoKey.ShortID(), nil
}

// Address returns the display address on chain: checksummed hex for C,
// "X-<hrp>1..." or "P-<hrp>1..." otherwise.
func (k *Keyring) Address(chain types.Chain) (string, error) {
	switch chain {
	case types.ChainC:
		return k.EVMAddress().Hex(), nil
	case types.ChainX, types.ChainP:
		id, err := k.ShortID()
		if err != nil {
			return "", err
		}
		return types.FormatAddress(chain, k.hrp, id)
	default:
		return "", fmt.Errorf("unknown chain %q", chain)
	}
}

// Addresses returns the address on every chain that is derivable.
func (k *Keyring) Addresses() map[types.Chain]string {
	out := make(map[types.Chain]string, len(types.Chains))
	for _, c := range types.Chains {
		if addr, err := k.Address(c); err == nil {
			out[c] = addr
		}
	}
	return out
}

// Zero clears the private keys.
func (k *Keyring) Zero() {
	k.evmKey.Zero()
	if k.utxoKey != nil {
		k.utxoKey.Zero()
	}
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
