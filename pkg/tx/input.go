package tx

import (
	"fmt"
	"math"
	"slices"

	"github.com/iJaack/evalanche/pkg/types"
)

// TransferInput spends Amount from a UTXO; SigIndices name the owner
// addresses whose signatures appear in the matching credential.
type TransferInput struct {
	Amount     uint64   `json:"amount"`
	SigIndices []uint32 `json:"signatureIndices"`
}

// TransferableInput references the UTXO being consumed.
type TransferableInput struct {
	UTXOID  types.UTXOID  `json:"utxoID"`
	AssetID types.ID      `json:"assetID"`
	In      TransferInput `json:"input"`
}

func (in TransferableInput) pack(p *packer) {
	p.fixed(in.UTXOID.TxID[:])
	p.u32(in.UTXOID.OutputIndex)
	p.fixed(in.AssetID[:])
	p.u32(TypeTransferInput)
	p.u64(in.In.Amount)
	p.u32(uint32(len(in.In.SigIndices)))
	for _, idx := range in.In.SigIndices {
		p.u32(idx)
	}
}

// SortInputs orders inputs by the UTXO they consume.
func SortInputs(ins []TransferableInput) {
	slices.SortFunc(ins, func(a, b TransferableInput) int {
		return a.UTXOID.Compare(b.UTXOID)
	})
}

func packInputs(p *packer, ins []TransferableInput) {
	p.u32(uint32(len(ins)))
	for _, in := range ins {
		in.pack(p)
	}
}

func sumInputs(ins []TransferableInput, assetID types.ID) (uint64, error) {
	var total uint64
	for _, in := range ins {
		if in.AssetID != assetID {
			continue
		}
		if total > math.MaxUint64-in.In.Amount {
			return 0, fmt.Errorf("input amount overflow")
		}
		total += in.In.Amount
	}
	return total, nil
}
