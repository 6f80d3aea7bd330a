package tx

import (
	"errors"
	"fmt"
	"math"

	"github.com/iJaack/evalanche/pkg/crypto"
	"github.com/iJaack/evalanche/pkg/types"
)

// Limits enforced before submission.
const (
	MaxInputs  = 1024
	MaxOutputs = 1024
)

// Validation errors.
var (
	ErrNoInputs        = errors.New("transaction has no inputs")
	ErrDuplicateInput  = errors.New("duplicate input")
	ErrZeroOutput      = errors.New("output value is zero")
	ErrOutputOverflow  = errors.New("output values overflow")
	ErrTooManyInputs   = errors.New("too many inputs")
	ErrTooManyOutputs  = errors.New("too many outputs")
	ErrCredentialCount = errors.New("credential count does not match inputs")
	ErrInvalidSig      = errors.New("invalid signature")
	ErrMissingSigIndex = errors.New("input has no signature index")
	ErrUnsortedInputs  = errors.New("inputs not sorted")
	ErrSameChainAtomic = errors.New("atomic transaction targets its own chain")
)

// outputsOf collects every output the transaction creates.
func outputsOf(u UnsignedTx) []TransferableOutput {
	switch t := u.(type) {
	case *ExportTx:
		return append(append([]TransferableOutput{}, t.Outs...), t.ExportedOuts...)
	case *ImportTx:
		return t.Outs
	case *AddDelegatorTx:
		return append(append([]TransferableOutput{}, t.Outs...), t.StakeOuts...)
	case *EVMExportTx:
		return t.ExportedOuts
	}
	return nil
}

// Validate checks transaction structure. It does not check that the
// consumed UTXOs exist.
func (t *Tx) Validate() error {
	u := t.Unsigned
	if u.NumCredentials() == 0 {
		return ErrNoInputs
	}
	ins := u.transferInputs()
	if len(ins) > MaxInputs {
		return fmt.Errorf("%w: %d inputs, max %d", ErrTooManyInputs, len(ins), MaxInputs)
	}

	seen := make(map[types.UTXOID]bool, len(ins))
	for i, in := range ins {
		if seen[in.UTXOID] {
			return fmt.Errorf("input %d: %w", i, ErrDuplicateInput)
		}
		seen[in.UTXOID] = true
		if len(in.In.SigIndices) == 0 {
			return fmt.Errorf("input %d: %w", i, ErrMissingSigIndex)
		}
	}

	outs := outputsOf(u)
	if len(outs) > MaxOutputs {
		return fmt.Errorf("%w: %d outputs, max %d", ErrTooManyOutputs, len(outs), MaxOutputs)
	}
	var total uint64
	for i, out := range outs {
		if out.Out.Amount == 0 {
			return fmt.Errorf("output %d: %w", i, ErrZeroOutput)
		}
		if total > math.MaxUint64-out.Out.Amount {
			return fmt.Errorf("output %d: %w", i, ErrOutputOverflow)
		}
		total += out.Out.Amount
	}

	switch v := u.(type) {
	case *ExportTx:
		if v.DestinationChain == v.BlockchainID {
			return ErrSameChainAtomic
		}
	case *ImportTx:
		if v.SourceChain == v.BlockchainID {
			return ErrSameChainAtomic
		}
		for i := 1; i < len(v.ImportedIns); i++ {
			if v.ImportedIns[i-1].UTXOID.Compare(v.ImportedIns[i].UTXOID) > 0 {
				return ErrUnsortedInputs
			}
		}
	case *EVMExportTx:
		if v.DestinationChain == v.BlockchainID {
			return ErrSameChainAtomic
		}
	case *EVMImportTx:
		if v.SourceChain == v.BlockchainID {
			return ErrSameChainAtomic
		}
	}

	if len(t.Creds) != u.NumCredentials() {
		return fmt.Errorf("%w: %d credentials, %d inputs", ErrCredentialCount, len(t.Creds), u.NumCredentials())
	}
	return nil
}

// VerifySignatures checks that every credential was produced by the key
// whose compressed public key hashes to owner.
func (t *Tx) VerifySignatures(owner types.ShortID) error {
	hash := crypto.Hash(t.UnsignedBytes())
	for i, c := range t.Creds {
		if len(c.Sigs) == 0 {
			return fmt.Errorf("credential %d: %w", i, ErrInvalidSig)
		}
		for _, sig := range c.Sigs {
			pub, err := crypto.RecoverPublicKey(hash[:], sig[:])
			if err != nil {
				return fmt.Errorf("credential %d: %w: %v", i, ErrInvalidSig, err)
			}
			if crypto.ShortIDFromPubKey(pub) != owner {
				return fmt.Errorf("credential %d: %w: signer mismatch", i, ErrInvalidSig)
			}
		}
	}
	return nil
}
