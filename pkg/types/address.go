package types

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// ShortIDSize is the length of an address in bytes.
const ShortIDSize = 20

// Network IDs and their address HRPs.
const (
	MainnetID uint32 = 1
	FujiID    uint32 = 5
	LocalID   uint32 = 12345

	MainnetHRP  = "avax"
	FujiHRP     = "fuji"
	LocalHRP    = "local"
	FallbackHRP = "custom"
)

// HRPForNetwork returns the bech32 human-readable part for a network ID.
func HRPForNetwork(networkID uint32) string {
	switch networkID {
	case MainnetID:
		return MainnetHRP
	case FujiID:
		return FujiHRP
	case LocalID:
		return LocalHRP
	default:
		return FallbackHRP
	}
}

// ShortID is a 160-bit public key hash: ripemd160(sha256(compressed pubkey)).
// It owns outputs on the UTXO ledgers.
type ShortID [ShortIDSize]byte

// IsZero returns true if the short ID is all zeros.
func (s ShortID) IsZero() bool {
	return s == ShortID{}
}

// Hex returns the raw hex encoding without prefix.
func (s ShortID) Hex() string {
	return hex.EncodeToString(s[:])
}

// String returns the raw hex encoding. Use FormatAddress for a
// chain-prefixed bech32 address.
func (s ShortID) String() string {
	return s.Hex()
}

// Bytes returns a copy of the short ID as a byte slice.
func (s ShortID) Bytes() []byte {
	b := make([]byte, ShortIDSize)
	copy(b, s[:])
	return b
}

// Compare orders short IDs by their raw bytes.
func (s ShortID) Compare(other ShortID) int {
	return bytes.Compare(s[:], other[:])
}

// MarshalJSON encodes the short ID as hex.
func (s ShortID) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Hex())
}

// UnmarshalJSON decodes a hex string into a short ID.
func (s *ShortID) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	b, err := hex.DecodeString(strings.TrimPrefix(str, "0x"))
	if err != nil {
		return fmt.Errorf("invalid short id hex: %w", err)
	}
	if len(b) != ShortIDSize {
		return fmt.Errorf("short id must be %d bytes, got %d", ShortIDSize, len(b))
	}
	copy(s[:], b)
	return nil
}

// FormatBech32 encodes a short ID as "<hrp>1..." without a chain prefix.
func FormatBech32(hrp string, id ShortID) (string, error) {
	conv, err := bech32.ConvertBits(id[:], 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("bech32: convert bits: %w", err)
	}
	s, err := bech32.Encode(hrp, conv)
	if err != nil {
		return "", fmt.Errorf("bech32: %w", err)
	}
	return s, nil
}

// FormatAddress returns the chain-prefixed address, e.g. "X-avax1...".
func FormatAddress(chain Chain, hrp string, id ShortID) (string, error) {
	s, err := FormatBech32(hrp, id)
	if err != nil {
		return "", err
	}
	return string(chain) + "-" + s, nil
}

// ParseAddress parses "X-avax1...", "P-fuji1..." or a bare bech32 string.
// The returned chain is empty when the input carried no prefix.
func ParseAddress(s string) (Chain, string, ShortID, error) {
	if s == "" {
		return "", "", ShortID{}, fmt.Errorf("empty address")
	}
	var chain Chain
	if i := strings.IndexByte(s, '-'); i >= 0 {
		c, err := ParseChain(s[:i])
		if err != nil {
			return "", "", ShortID{}, err
		}
		chain = c
		s = s[i+1:]
	}
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return "", "", ShortID{}, fmt.Errorf("invalid bech32 address: %w", err)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", "", ShortID{}, fmt.Errorf("invalid bech32 payload: %w", err)
	}
	if len(raw) != ShortIDSize {
		return "", "", ShortID{}, fmt.Errorf("address must be %d bytes, got %d", ShortIDSize, len(raw))
	}
	var id ShortID
	copy(id[:], raw)
	return chain, hrp, id, nil
}

// nodeIDPrefix precedes the CB58 body of a node ID.
const nodeIDPrefix = "NodeID-"

// NodeID identifies a validator.
type NodeID ShortID

// String returns "NodeID-<cb58>".
func (n NodeID) String() string {
	return nodeIDPrefix + CB58Encode(n[:])
}

// ParseNodeID parses "NodeID-<cb58>".
func ParseNodeID(s string) (NodeID, error) {
	if !strings.HasPrefix(s, nodeIDPrefix) {
		return NodeID{}, fmt.Errorf("node id %q must start with %q", s, nodeIDPrefix)
	}
	b, err := CB58Decode(s[len(nodeIDPrefix):])
	if err != nil {
		return NodeID{}, fmt.Errorf("invalid node id: %w", err)
	}
	if len(b) != ShortIDSize {
		return NodeID{}, fmt.Errorf("node id must be %d bytes, got %d", ShortIDSize, len(b))
	}
	var n NodeID
	copy(n[:], b)
	return n, nil
}
