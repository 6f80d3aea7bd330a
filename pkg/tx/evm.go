package tx

import (
	"bytes"
	"fmt"
	"math"
	"slices"

	"github.com/ethereum/go-ethereum/common"

	"github.com/iJaack/evalanche/pkg/types"
)

// EVMInput debits an account on the C ledger.
type EVMInput struct {
	Address common.Address `json:"address"`
	Amount  uint64         `json:"amount"`
	AssetID types.ID       `json:"assetID"`
	Nonce   uint64         `json:"nonce"`
}

// EVMOutput credits an account on the C ledger.
type EVMOutput struct {
	Address common.Address `json:"address"`
	Amount  uint64         `json:"amount"`
	AssetID types.ID       `json:"assetID"`
}

func compareEVM(addrA, addrB common.Address, assetA, assetB types.ID) int {
	if c := bytes.Compare(addrA[:], addrB[:]); c != 0 {
		return c
	}
	return assetA.Compare(assetB)
}

// EVMExportTx burns account balance on the C ledger and exports UTXOs to
// DestinationChain.
type EVMExportTx struct {
	NetworkID        uint32               `json:"networkID"`
	BlockchainID     types.ID             `json:"blockchainID"`
	DestinationChain types.ID             `json:"destinationChain"`
	Ins              []EVMInput           `json:"inputs"`
	ExportedOuts     []TransferableOutput `json:"exportedOutputs"`
}

func (t *EVMExportTx) TypeID() uint32                      { return TypeCExportTx }
func (t *EVMExportTx) NumCredentials() int                 { return len(t.Ins) }
func (t *EVMExportTx) transferInputs() []TransferableInput { return nil }

func (t *EVMExportTx) packFields(p *packer) {
	p.u32(t.NetworkID)
	p.fixed(t.BlockchainID[:])
	p.fixed(t.DestinationChain[:])
	p.u32(uint32(len(t.Ins)))
	for _, in := range t.Ins {
		p.fixed(in.Address[:])
		p.u64(in.Amount)
		p.fixed(in.AssetID[:])
		p.u64(in.Nonce)
	}
	packOutputs(p, t.ExportedOuts)
}

func (t *EVMExportTx) flow(assetID types.ID) (uint64, uint64, error) {
	var in uint64
	for _, i := range t.Ins {
		if i.AssetID != assetID {
			continue
		}
		if in > math.MaxUint64-i.Amount {
			return 0, 0, fmt.Errorf("input amount overflow")
		}
		in += i.Amount
	}
	out, err := sumOutputs(t.ExportedOuts, assetID)
	if err != nil {
		return 0, 0, err
	}
	return in, out, nil
}

// Sort puts inputs and exported outputs in canonical order.
func (t *EVMExportTx) Sort() {
	slices.SortFunc(t.Ins, func(a, b EVMInput) int {
		return compareEVM(a.Address, b.Address, a.AssetID, b.AssetID)
	})
	SortOutputs(t.ExportedOuts)
}

// EVMImportTx consumes atomic UTXOs from SourceChain and credits accounts
// on the C ledger.
type EVMImportTx struct {
	NetworkID    uint32              `json:"networkID"`
	BlockchainID types.ID            `json:"blockchainID"`
	SourceChain  types.ID            `json:"sourceChain"`
	ImportedIns  []TransferableInput `json:"importedInputs"`
	Outs         []EVMOutput         `json:"outputs"`
}

func (t *EVMImportTx) TypeID() uint32                      { return TypeCImportTx }
func (t *EVMImportTx) NumCredentials() int                 { return len(t.ImportedIns) }
func (t *EVMImportTx) transferInputs() []TransferableInput { return t.ImportedIns }

func (t *EVMImportTx) packFields(p *packer) {
	p.u32(t.NetworkID)
	p.fixed(t.BlockchainID[:])
	p.fixed(t.SourceChain[:])
	packInputs(p, t.ImportedIns)
	p.u32(uint32(len(t.Outs)))
	for _, o := range t.Outs {
		p.fixed(o.Address[:])
		p.u64(o.Amount)
		p.fixed(o.AssetID[:])
	}
}

func (t *EVMImportTx) flow(assetID types.ID) (uint64, uint64, error) {
	in, err := sumInputs(t.ImportedIns, assetID)
	if err != nil {
		return 0, 0, err
	}
	var out uint64
	for _, o := range t.Outs {
		if o.AssetID != assetID {
			continue
		}
		if out > math.MaxUint64-o.Amount {
			return 0, 0, fmt.Errorf("output amount overflow")
		}
		out += o.Amount
	}
	return in, out, nil
}

// Sort puts imported inputs and outputs in canonical order.
func (t *EVMImportTx) Sort() {
	SortInputs(t.ImportedIns)
	slices.SortFunc(t.Outs, func(a, b EVMOutput) int {
		return compareEVM(a.Address, b.Address, a.AssetID, b.AssetID)
	})
}
