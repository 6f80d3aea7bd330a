package tx

import (
	"github.com/iJaack/evalanche/pkg/types"
)

// Builder assembles the BaseTx shared by UTXO-ledger transactions.
type Builder struct {
	base BaseTx
}

// NewBuilder creates a builder for a transaction on blockchainID.
func NewBuilder(networkID uint32, blockchainID types.ID) *Builder {
	return &Builder{base: BaseTx{NetworkID: networkID, BlockchainID: blockchainID}}
}

// AddInput spends u, signed by the owner at sigIndex.
func (b *Builder) AddInput(u *UTXO, sigIndex uint32) *Builder {
	b.base.Ins = append(b.base.Ins, u.Input(sigIndex))
	return b
}

// AddOutput pays amount of assetID to owner. Zero amounts are skipped.
func (b *Builder) AddOutput(assetID types.ID, amount uint64, owner types.ShortID) *Builder {
	if amount == 0 {
		return b
	}
	b.base.Outs = append(b.base.Outs, NewOutput(assetID, amount, owner))
	return b
}

// Base returns the sorted BaseTx.
func (b *Builder) Base() BaseTx {
	base := b.base
	SortInputs(base.Ins)
	SortOutputs(base.Outs)
	return base
}

// Export builds an export of outs to destination.
func (b *Builder) Export(vm VM, destination types.ID, outs []TransferableOutput) *ExportTx {
	SortOutputs(outs)
	return &ExportTx{
		BaseTx:           b.Base(),
		VM:               vm,
		DestinationChain: destination,
		ExportedOuts:     outs,
	}
}

// Import builds an import of atomic inputs from source.
func (b *Builder) Import(vm VM, source types.ID, imported []TransferableInput) *ImportTx {
	SortInputs(imported)
	return &ImportTx{
		BaseTx:      b.Base(),
		VM:          vm,
		SourceChain: source,
		ImportedIns: imported,
	}
}

// AddDelegator builds a P-ledger delegation of stake to validator.
func (b *Builder) AddDelegator(validator Validator, stake []TransferableOutput, rewards types.ShortID) *AddDelegatorTx {
	SortOutputs(stake)
	return &AddDelegatorTx{
		BaseTx:       b.Base(),
		Validator:    validator,
		StakeOuts:    stake,
		RewardsOwner: NewOwners(rewards),
	}
}
