package tx

import (
	"bytes"
	"fmt"
	"math"
	"slices"

	"github.com/iJaack/evalanche/pkg/types"
)

// OutputOwners is a spending condition: Threshold of Addrs may spend after
// Locktime (unix seconds).
type OutputOwners struct {
	Locktime  uint64          `json:"locktime"`
	Threshold uint32          `json:"threshold"`
	Addrs     []types.ShortID `json:"addresses"`
}

// NewOwners returns a single-address, threshold-1 owner set.
func NewOwners(addr types.ShortID) OutputOwners {
	return OutputOwners{Threshold: 1, Addrs: []types.ShortID{addr}}
}

// Index returns the position of addr in the owner list.
func (o OutputOwners) Index(addr types.ShortID) (uint32, bool) {
	for i, a := range o.Addrs {
		if a == addr {
			return uint32(i), true
		}
	}
	return 0, false
}

func (o OutputOwners) packFields(p *packer) {
	p.u64(o.Locktime)
	p.u32(o.Threshold)
	addrs := slices.Clone(o.Addrs)
	slices.SortFunc(addrs, types.ShortID.Compare)
	p.u32(uint32(len(addrs)))
	for _, a := range addrs {
		p.fixed(a[:])
	}
}

func (o *OutputOwners) unpackFields(u *unpacker) {
	o.Locktime = u.u64()
	o.Threshold = u.u32()
	n := u.count(types.ShortIDSize)
	o.Addrs = make([]types.ShortID, 0, n)
	for i := 0; i < n; i++ {
		o.Addrs = append(o.Addrs, u.shortID())
	}
}

// TransferOutput moves Amount of an asset to its owners.
type TransferOutput struct {
	Amount uint64 `json:"amount"`
	OutputOwners
}

func (o TransferOutput) pack(p *packer) {
	p.u32(TypeTransferOutput)
	p.u64(o.Amount)
	o.OutputOwners.packFields(p)
}

// TransferableOutput is a TransferOutput tagged with its asset.
type TransferableOutput struct {
	AssetID types.ID       `json:"assetID"`
	Out     TransferOutput `json:"output"`
}

// NewOutput pays amount of assetID to a single owner.
func NewOutput(assetID types.ID, amount uint64, owner types.ShortID) TransferableOutput {
	return TransferableOutput{
		AssetID: assetID,
		Out:     TransferOutput{Amount: amount, OutputOwners: NewOwners(owner)},
	}
}

func (o TransferableOutput) pack(p *packer) {
	p.fixed(o.AssetID[:])
	o.Out.pack(p)
}

func (o TransferableOutput) bytes() []byte {
	var p packer
	o.pack(&p)
	return p.buf
}

// SortOutputs orders outputs canonically by their encoded bytes.
func SortOutputs(outs []TransferableOutput) {
	slices.SortFunc(outs, func(a, b TransferableOutput) int {
		return bytes.Compare(a.bytes(), b.bytes())
	})
}

func packOutputs(p *packer, outs []TransferableOutput) {
	p.u32(uint32(len(outs)))
	for _, o := range outs {
		o.pack(p)
	}
}

// sumOutputs totals the outputs of one asset.
func sumOutputs(outs []TransferableOutput, assetID types.ID) (uint64, error) {
	var total uint64
	for _, o := range outs {
		if o.AssetID != assetID {
			continue
		}
		if total > math.MaxUint64-o.Out.Amount {
			return 0, fmt.Errorf("output amount overflow")
		}
		total += o.Out.Amount
	}
	return total, nil
}
