// Package ledger implements the per-ledger operations of the agent: balance
// queries, atomic export and import on X, P and C, and P-ledger staking.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/iJaack/evalanche/config"
	"github.com/iJaack/evalanche/internal/rpcclient"
	"github.com/iJaack/evalanche/internal/wallet"
	"github.com/iJaack/evalanche/pkg/tx"
	"github.com/iJaack/evalanche/pkg/types"
)

// ErrInsufficientFunds is returned when spendable balance cannot cover an
// amount plus fee. No transaction is submitted in that case.
var ErrInsufficientFunds = wallet.ErrInsufficientFunds

// InsufficientFundsError carries the shortfall.
type InsufficientFundsError = wallet.InsufficientFundsError

// ErrNothingToImport is returned when no atomic UTXOs await import.
var ErrNothingToImport = errors.New("nothing to import")

// ErrBadDestination is returned for an atomic move to an unsupported ledger.
var ErrBadDestination = errors.New("unsupported counterpart chain")

// SubmissionError reports that a ledger refused a transaction.
type SubmissionError struct {
	Chain types.Chain
	Op    string
	Err   error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("%s-chain %s submission failed: %v", e.Chain, e.Op, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// UTXOClient is the JSON-RPC surface shared by avm.*, platform.* and avax.*.
type UTXOClient interface {
	GetUTXOs(ctx context.Context, addrs []string, sourceChain string) ([]*tx.UTXO, error)
	IssueTx(ctx context.Context, txBytes []byte) (types.ID, error)
	GetTxStatus(ctx context.Context, txID types.ID) (string, error)
}

// PlatformClient adds the P ledger's staking queries.
type PlatformClient interface {
	UTXOClient
	GetStake(ctx context.Context, addrs []string) (uint64, error)
	GetCurrentValidators(ctx context.Context) ([]rpcclient.Validator, error)
	GetMinStake(ctx context.Context) (*rpcclient.MinStakeReply, error)
}

// AtomicLedger is a ledger that moves native funds through shared memory.
type AtomicLedger interface {
	Chain() types.Chain
	Address() string
	ExportTo(ctx context.Context, amount uint64, dest types.Chain) (types.ID, error)
	ImportFrom(ctx context.Context, source types.Chain) (types.ID, error)
	AtomicUTXOs(ctx context.Context, source types.Chain) ([]*tx.UTXO, error)
}

// Context holds the network constants every ledger module needs.
type Context struct {
	NetworkID   uint32
	HRP         string
	XChainID    types.ID
	CChainID    types.ID
	PChainID    types.ID
	AVAXAssetID types.ID

	XTxFee uint64 // nAVAX
	PTxFee uint64 // nAVAX

	// FallbackBaseFee (wei per gas) prices C ledger atomic transactions
	// when the node cannot report a base fee.
	FallbackBaseFee *big.Int
}

// NewContext builds a Context from validated configuration.
func NewContext(cfg *config.Config) (Context, error) {
	ids, err := cfg.Chain.IDs()
	if err != nil {
		return Context{}, err
	}
	hrp := cfg.Chain.HRP
	if hrp == "" {
		hrp = types.HRPForNetwork(cfg.Chain.NetworkID)
	}
	return Context{
		NetworkID:       cfg.Chain.NetworkID,
		HRP:             hrp,
		XChainID:        ids.X,
		CChainID:        ids.C,
		PChainID:        ids.P,
		AVAXAssetID:     ids.AVAX,
		XTxFee:          cfg.Fees.XTxFee,
		PTxFee:          cfg.Fees.PTxFee,
		FallbackBaseFee: new(big.Int).SetUint64(cfg.Fees.CFallbackBaseFee),
	}, nil
}

// ChainID returns the blockchain ID of chain.
func (c Context) ChainID(chain types.Chain) (types.ID, error) {
	switch chain {
	case types.ChainX:
		return c.XChainID, nil
	case types.ChainC:
		return c.CChainID, nil
	case types.ChainP:
		return c.PChainID, nil
	}
	return types.ID{}, fmt.Errorf("unknown chain %q", chain)
}

// unixNow is the clock used for locktime checks.
func unixNow(now func() time.Time) uint64 {
	t := now().Unix()
	if t < 0 {
		return 0
	}
	return uint64(t)
}

// coinsTotal sums coin amounts. Overflow is impossible for real balances
// but is still reported.
func coinsTotal(coins []wallet.Coin) (uint64, error) {
	var total uint64
	for _, c := range coins {
		if total+c.Amount() < total {
			return 0, fmt.Errorf("coin total overflows")
		}
		total += c.Amount()
	}
	return total, nil
}

// importInputs turns coins into sorted transferable inputs.
func importInputs(coins []wallet.Coin) []tx.TransferableInput {
	ins := make([]tx.TransferableInput, 0, len(coins))
	for _, c := range coins {
		ins = append(ins, c.UTXO.Input(c.SigIndex))
	}
	tx.SortInputs(ins)
	return ins
}

// addAmounts returns a+b or an error on overflow.
func addAmounts(a, b uint64) (uint64, error) {
	if a+b < a {
		return 0, fmt.Errorf("amount %d plus fee %d overflows", a, b)
	}
	return a + b, nil
}
