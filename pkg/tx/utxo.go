package tx

import (
	"fmt"

	"github.com/iJaack/evalanche/pkg/types"
)

// UTXO is an unspent output as returned by a ledger's getUTXOs.
type UTXO struct {
	types.UTXOID
	AssetID types.ID       `json:"assetID"`
	Out     TransferOutput `json:"output"`

	// StakeLocktime is non-zero when the output is wrapped in a stakeable
	// lock and cannot be spent before that unix time.
	StakeLocktime uint64 `json:"stakeLocktime,omitempty"`
}

// Bytes encodes the UTXO in codec form.
func (u *UTXO) Bytes() []byte {
	var p packer
	p.u16(CodecVersion)
	p.fixed(u.TxID[:])
	p.u32(u.OutputIndex)
	p.fixed(u.AssetID[:])
	if u.StakeLocktime != 0 {
		p.u32(TypeStakeableLockOut)
		p.u64(u.StakeLocktime)
	}
	u.Out.pack(&p)
	return p.buf
}

// ParseUTXO decodes a codec-encoded UTXO. Outputs other than secp256k1
// transfers (optionally stake-locked) return ErrUnsupportedOutput.
func ParseUTXO(b []byte) (*UTXO, error) {
	u := &unpacker{b: b}
	if v := u.u16(); u.err == nil && v != CodecVersion {
		return nil, fmt.Errorf("%w: %d", ErrCodecVersion, v)
	}
	utxo := &UTXO{}
	utxo.TxID = u.id()
	utxo.OutputIndex = u.u32()
	utxo.AssetID = u.id()

	typeID := u.u32()
	if typeID == TypeStakeableLockOut {
		utxo.StakeLocktime = u.u64()
		typeID = u.u32()
	}
	if u.err != nil {
		return nil, u.err
	}
	if typeID != TypeTransferOutput {
		return nil, fmt.Errorf("%w: type %d", ErrUnsupportedOutput, typeID)
	}
	utxo.Out.Amount = u.u64()
	utxo.Out.OutputOwners.unpackFields(u)
	if u.err != nil {
		return nil, u.err
	}
	if u.off != len(b) {
		return nil, fmt.Errorf("%d trailing bytes after utxo", len(b)-u.off)
	}
	return utxo, nil
}

// Spendable reports whether owner alone can spend the UTXO at unix time
// now, and the signature index to use.
func (u *UTXO) Spendable(owner types.ShortID, now uint64) (uint32, bool) {
	if u.StakeLocktime > now || u.Out.Locktime > now {
		return 0, false
	}
	if u.Out.Threshold != 1 {
		return 0, false
	}
	return u.Out.Index(owner)
}

// Input builds the input consuming this UTXO with the given signer index.
func (u *UTXO) Input(sigIndex uint32) TransferableInput {
	return TransferableInput{
		UTXOID:  u.UTXOID,
		AssetID: u.AssetID,
		In: TransferInput{
			Amount:     u.Out.Amount,
			SigIndices: []uint32{sigIndex},
		},
	}
}
