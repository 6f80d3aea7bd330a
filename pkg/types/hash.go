// Package types defines the identifiers, addresses and amounts shared by
// the three ledgers.
package types

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// IDSize is the length of a transaction, asset or blockchain ID in bytes.
const IDSize = 32

// ID is a 256-bit identifier. Transaction IDs, asset IDs and blockchain
// IDs all share this form and render as CB58.
type ID [IDSize]byte

// Empty is the zero ID. The P ledger's blockchain ID is Empty.
var Empty = ID{}

// HashID returns the sha256 digest of data as an ID.
func HashID(data []byte) ID {
	return sha256.Sum256(data)
}

// IsZero returns true if the ID is all zeros.
func (id ID) IsZero() bool {
	return id == Empty
}

// String returns the CB58 encoding of the ID.
func (id ID) String() string {
	return CB58Encode(id[:])
}

// Bytes returns a copy of the ID as a byte slice.
func (id ID) Bytes() []byte {
	b := make([]byte, IDSize)
	copy(b, id[:])
	return b
}

// Compare orders IDs by their raw bytes.
func (id ID) Compare(other ID) int {
	return bytes.Compare(id[:], other[:])
}

// MarshalJSON encodes the ID as a CB58 string.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON decodes a CB58 string into an ID.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*id = Empty
		return nil
	}
	parsed, err := ParseID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseID decodes a CB58 string into an ID.
func ParseID(s string) (ID, error) {
	b, err := CB58Decode(s)
	if err != nil {
		return ID{}, fmt.Errorf("invalid id %q: %w", s, err)
	}
	if len(b) != IDSize {
		return ID{}, fmt.Errorf("id must be %d bytes, got %d", IDSize, len(b))
	}
	var id ID
	copy(id[:], b)
	return id, nil
}

// MustParseID is ParseID for package-level constants. It panics on error.
func MustParseID(s string) ID {
	id, err := ParseID(s)
	if err != nil {
		panic(err)
	}
	return id
}
