// Package tx defines the UTXO-ledger and atomic EVM transaction formats and
// their binary encoding.
package tx

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/iJaack/evalanche/pkg/types"
)

// CodecVersion prefixes every encoded transaction and UTXO.
const CodecVersion uint16 = 0

// Type IDs registered with the ledgers' codecs.
const (
	TypeXImportTx uint32 = 0x03
	TypeXExportTx uint32 = 0x04

	TypePAddDelegatorTx uint32 = 0x0e
	TypePImportTx       uint32 = 0x11
	TypePExportTx       uint32 = 0x12

	TypeCImportTx uint32 = 0x00
	TypeCExportTx uint32 = 0x01

	TypeTransferInput    uint32 = 0x05
	TypeTransferOutput   uint32 = 0x07
	TypeCredential       uint32 = 0x09
	TypeOutputOwners     uint32 = 0x0b
	TypeStakeableLockOut uint32 = 0x16
)

// Decoding errors.
var (
	ErrShortBuffer       = errors.New("unexpected end of buffer")
	ErrCodecVersion      = errors.New("unknown codec version")
	ErrUnsupportedOutput = errors.New("unsupported output type")
)

// packer appends big-endian fields to a buffer.
type packer struct {
	buf []byte
}

func (p *packer) u16(v uint16) { p.buf = binary.BigEndian.AppendUint16(p.buf, v) }
func (p *packer) u32(v uint32) { p.buf = binary.BigEndian.AppendUint32(p.buf, v) }
func (p *packer) u64(v uint64) { p.buf = binary.BigEndian.AppendUint64(p.buf, v) }
func (p *packer) fixed(b []byte) {
	p.buf = append(p.buf, b...)
}

// varBytes writes a 4-byte length prefix followed by b.
func (p *packer) varBytes(b []byte) {
	p.u32(uint32(len(b)))
	p.fixed(b)
}

// unpacker reads big-endian fields. The first failure sticks in err and
// every later read returns zero values.
type unpacker struct {
	b   []byte
	off int
	err error
}

func (u *unpacker) take(n int) []byte {
	if u.err != nil {
		return nil
	}
	if n < 0 || len(u.b)-u.off < n {
		u.err = fmt.Errorf("read %d bytes at offset %d: %w", n, u.off, ErrShortBuffer)
		return nil
	}
	s := u.b[u.off : u.off+n]
	u.off += n
	return s
}

func (u *unpacker) u16() uint16 {
	if b := u.take(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (u *unpacker) u32() uint32 {
	if b := u.take(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (u *unpacker) u64() uint64 {
	if b := u.take(8); b != nil {
		return binary.BigEndian.Uint64(b)
	}
	return 0
}

func (u *unpacker) id() types.ID {
	var id types.ID
	copy(id[:], u.take(types.IDSize))
	return id
}

func (u *unpacker) shortID() types.ShortID {
	var id types.ShortID
	copy(id[:], u.take(types.ShortIDSize))
	return id
}

// count reads a length prefix and rejects counts that cannot fit in the
// remaining buffer given the minimum element size.
func (u *unpacker) count(elemSize int) int {
	n := u.u32()
	if u.err != nil {
		return 0
	}
	if uint64(n)*uint64(elemSize) > uint64(len(u.b)-u.off) {
		u.err = fmt.Errorf("length %d exceeds buffer: %w", n, ErrShortBuffer)
		return 0
	}
	return int(n)
}
