package types

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// checksumLen is the number of trailing sha256 bytes appended by CB58 and
// by the ledgers' checksummed hex encoding.
const checksumLen = 4

// ErrBadChecksum is returned when an encoded value's checksum does not match.
var ErrBadChecksum = errors.New("bad checksum")

func checksum(b []byte) []byte {
	h := sha256.Sum256(b)
	return h[len(h)-checksumLen:]
}

// CB58Encode returns base58(b || last4(sha256(b))).
func CB58Encode(b []byte) string {
	buf := make([]byte, 0, len(b)+checksumLen)
	buf = append(buf, b...)
	buf = append(buf, checksum(b)...)
	return base58.Encode(buf)
}

// CB58Decode reverses CB58Encode and verifies the checksum.
func CB58Decode(s string) ([]byte, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("cb58: %w", err)
	}
	if len(raw) < checksumLen {
		return nil, fmt.Errorf("cb58: input too short")
	}
	payload := raw[:len(raw)-checksumLen]
	if !bytes.Equal(raw[len(raw)-checksumLen:], checksum(payload)) {
		return nil, fmt.Errorf("cb58: %w", ErrBadChecksum)
	}
	return payload, nil
}

// EncodeHex returns "0x" + hex(b || last4(sha256(b))), the encoding the
// ledger APIs use for transactions and UTXOs.
func EncodeHex(b []byte) string {
	buf := make([]byte, 0, len(b)+checksumLen)
	buf = append(buf, b...)
	buf = append(buf, checksum(b)...)
	return "0x" + hex.EncodeToString(buf)
}

// DecodeHex reverses EncodeHex and verifies the checksum.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("hex: %w", err)
	}
	if len(raw) < checksumLen {
		return nil, fmt.Errorf("hex: input too short")
	}
	payload := raw[:len(raw)-checksumLen]
	if !bytes.Equal(raw[len(raw)-checksumLen:], checksum(payload)) {
		return nil, fmt.Errorf("hex: %w", ErrBadChecksum)
	}
	return payload, nil
}
