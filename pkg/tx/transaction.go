package tx

import (
	"fmt"

	"github.com/iJaack/evalanche/pkg/crypto"
	"github.com/iJaack/evalanche/pkg/types"
)

// VM selects the type IDs used by a UTXO ledger.
type VM uint8

const (
	VMX VM = iota
	VMP
)

// UnsignedTx is a transaction body awaiting credentials.
type UnsignedTx interface {
	TypeID() uint32
	// NumCredentials is the number of signatures the transaction needs,
	// one per consumed input in input order.
	NumCredentials() int
	packFields(p *packer)
	transferInputs() []TransferableInput
	// flow returns the amount of assetID consumed and produced.
	flow(assetID types.ID) (in, out uint64, err error)
}

// BaseTx holds the fields common to UTXO-ledger transactions.
type BaseTx struct {
	NetworkID    uint32               `json:"networkID"`
	BlockchainID types.ID             `json:"blockchainID"`
	Outs         []TransferableOutput `json:"outputs"`
	Ins          []TransferableInput  `json:"inputs"`
	Memo         []byte               `json:"memo"`
}

func (b *BaseTx) packFields(p *packer) {
	p.u32(b.NetworkID)
	p.fixed(b.BlockchainID[:])
	packOutputs(p, b.Outs)
	packInputs(p, b.Ins)
	p.varBytes(b.Memo)
}

func (b *BaseTx) flow(assetID types.ID) (uint64, uint64, error) {
	in, err := sumInputs(b.Ins, assetID)
	if err != nil {
		return 0, 0, err
	}
	out, err := sumOutputs(b.Outs, assetID)
	if err != nil {
		return 0, 0, err
	}
	return in, out, nil
}

// ExportTx moves outputs into the shared memory of DestinationChain.
type ExportTx struct {
	BaseTx
	VM               VM                   `json:"-"`
	DestinationChain types.ID             `json:"destinationChain"`
	ExportedOuts     []TransferableOutput `json:"exportedOutputs"`
}

func (t *ExportTx) TypeID() uint32 {
	if t.VM == VMP {
		return TypePExportTx
	}
	return TypeXExportTx
}

func (t *ExportTx) NumCredentials() int                 { return len(t.Ins) }
func (t *ExportTx) transferInputs() []TransferableInput { return t.Ins }

func (t *ExportTx) packFields(p *packer) {
	t.BaseTx.packFields(p)
	p.fixed(t.DestinationChain[:])
	packOutputs(p, t.ExportedOuts)
}

func (t *ExportTx) flow(assetID types.ID) (uint64, uint64, error) {
	in, out, err := t.BaseTx.flow(assetID)
	if err != nil {
		return 0, 0, err
	}
	exported, err := sumOutputs(t.ExportedOuts, assetID)
	if err != nil {
		return 0, 0, err
	}
	return in, out + exported, nil
}

// ImportTx consumes atomic UTXOs exported to this chain by SourceChain.
type ImportTx struct {
	BaseTx
	VM          VM                  `json:"-"`
	SourceChain types.ID            `json:"sourceChain"`
	ImportedIns []TransferableInput `json:"importedInputs"`
}

func (t *ImportTx) TypeID() uint32 {
	if t.VM == VMP {
		return TypePImportTx
	}
	return TypeXImportTx
}

func (t *ImportTx) NumCredentials() int { return len(t.Ins) + len(t.ImportedIns) }

func (t *ImportTx) transferInputs() []TransferableInput {
	all := make([]TransferableInput, 0, len(t.Ins)+len(t.ImportedIns))
	all = append(all, t.Ins...)
	return append(all, t.ImportedIns...)
}

func (t *ImportTx) packFields(p *packer) {
	t.BaseTx.packFields(p)
	p.fixed(t.SourceChain[:])
	packInputs(p, t.ImportedIns)
}

func (t *ImportTx) flow(assetID types.ID) (uint64, uint64, error) {
	in, out, err := t.BaseTx.flow(assetID)
	if err != nil {
		return 0, 0, err
	}
	imported, err := sumInputs(t.ImportedIns, assetID)
	if err != nil {
		return 0, 0, err
	}
	return in + imported, out, nil
}

// Validator identifies the stake a delegator attaches to.
type Validator struct {
	NodeID types.NodeID `json:"nodeID"`
	Start  uint64       `json:"start"`
	End    uint64       `json:"end"`
	Weight uint64       `json:"weight"`
}

// AddDelegatorTx locks StakeOuts with a validator until Validator.End.
type AddDelegatorTx struct {
	BaseTx
	Validator    Validator            `json:"validator"`
	StakeOuts    []TransferableOutput `json:"stake"`
	RewardsOwner OutputOwners         `json:"rewardsOwner"`
}

func (t *AddDelegatorTx) TypeID() uint32                      { return TypePAddDelegatorTx }
func (t *AddDelegatorTx) NumCredentials() int                 { return len(t.Ins) }
func (t *AddDelegatorTx) transferInputs() []TransferableInput { return t.Ins }

func (t *AddDelegatorTx) packFields(p *packer) {
	t.BaseTx.packFields(p)
	p.fixed(t.Validator.NodeID[:])
	p.u64(t.Validator.Start)
	p.u64(t.Validator.End)
	p.u64(t.Validator.Weight)
	packOutputs(p, t.StakeOuts)
	p.u32(TypeOutputOwners)
	t.RewardsOwner.packFields(p)
}

func (t *AddDelegatorTx) flow(assetID types.ID) (uint64, uint64, error) {
	in, out, err := t.BaseTx.flow(assetID)
	if err != nil {
		return 0, 0, err
	}
	staked, err := sumOutputs(t.StakeOuts, assetID)
	if err != nil {
		return 0, 0, err
	}
	return in, out + staked, nil
}

// Credential carries the signatures for one input.
type Credential struct {
	Sigs [][crypto.SignatureLen]byte `json:"signatures"`
}

// Tx is a signed transaction.
type Tx struct {
	Unsigned UnsignedTx   `json:"unsignedTx"`
	Creds    []Credential `json:"credentials"`
}

// UnsignedBytes returns the encoding covered by signatures.
func (t *Tx) UnsignedBytes() []byte {
	return unsignedBytes(t.Unsigned)
}

func unsignedBytes(u UnsignedTx) []byte {
	var p packer
	p.u16(CodecVersion)
	p.u32(u.TypeID())
	u.packFields(&p)
	return p.buf
}

// Bytes returns the full signed encoding submitted to a ledger.
func (t *Tx) Bytes() []byte {
	p := packer{buf: t.UnsignedBytes()}
	p.u32(uint32(len(t.Creds)))
	for _, c := range t.Creds {
		p.u32(TypeCredential)
		p.u32(uint32(len(c.Sigs)))
		for _, s := range c.Sigs {
			p.fixed(s[:])
		}
	}
	return p.buf
}

// ID is the SHA-256 of the signed bytes.
func (t *Tx) ID() types.ID {
	return types.HashID(t.Bytes())
}

// Burned returns consumed minus produced for assetID, i.e. the fee paid.
func (t *Tx) Burned(assetID types.ID) (uint64, error) {
	in, out, err := t.Unsigned.flow(assetID)
	if err != nil {
		return 0, err
	}
	if out > in {
		return 0, fmt.Errorf("produced %d exceeds consumed %d", out, in)
	}
	return in - out, nil
}

// Sign signs every input of u with a single key. All inputs must belong
// to that key.
func Sign(u UnsignedTx, key crypto.Signer) (*Tx, error) {
	hash := crypto.Hash(unsignedBytes(u))
	sig, err := key.SignHash(hash[:])
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}
	var fixed [crypto.SignatureLen]byte
	copy(fixed[:], sig)

	creds := make([]Credential, u.NumCredentials())
	for i := range creds {
		creds[i] = Credential{Sigs: [][crypto.SignatureLen]byte{fixed}}
	}
	return &Tx{Unsigned: u, Creds: creds}, nil
}
