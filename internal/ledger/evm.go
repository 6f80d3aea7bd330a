package ledger

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"

	"github.com/iJaack/evalanche/internal/log"
	"github.com/iJaack/evalanche/internal/wallet"
	"github.com/iJaack/evalanche/pkg/crypto"
	"github.com/iJaack/evalanche/pkg/tx"
	"github.com/iJaack/evalanche/pkg/types"
)

// EVMClient is the subset of ethclient.Client the C ledger module uses.
type EVMClient interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error)
}

// EVMLedger operates the agent's account on C. Atomic moves go through the
// C ledger's avax.* API; balances and nonces through the EVM API.
type EVMLedger struct {
	ctx    Context
	eth    EVMClient
	atomic UTXOClient

	evmKey  *crypto.PrivateKey
	address common.Address

	// Set only when the seed can derive the UTXO key.
	utxoKey     *crypto.PrivateKey
	owner       types.ShortID
	atomicAddr  string
	multiLedger bool

	now    func() time.Time
	logger zerolog.Logger
}

// NewEVMLedger returns the C ledger module. Balance works for every seed;
// atomic operations need a seed that derives the UTXO key.
func NewEVMLedger(c Context, eth EVMClient, atomic UTXOClient, kr *wallet.Keyring) (*EVMLedger, error) {
	l := &EVMLedger{
		ctx:     c,
		eth:     eth,
		atomic:  atomic,
		evmKey:  kr.EVMKey(),
		address: kr.EVMAddress(),
		now:     time.Now,
		logger:  log.WithChain(string(types.ChainC)),
	}
	if key, err := kr.UTXOKey(); err == nil {
		addr, err := types.FormatAddress(types.ChainC, c.HRP, key.ShortID())
		if err != nil {
			return nil, err
		}
		l.utxoKey = key
		l.owner = key.ShortID()
		l.atomicAddr = addr
		l.multiLedger = true
	}
	return l, nil
}

// Chain returns types.ChainC.
func (l *EVMLedger) Chain() types.Chain { return types.ChainC }

// Address returns the agent's checksummed EVM address.
func (l *EVMLedger) Address() string { return l.address.Hex() }

// Balance returns the agent's C balance in wei.
func (l *EVMLedger) Balance(ctx context.Context) (*big.Int, error) {
	bal, err := l.eth.BalanceAt(ctx, l.address, nil)
	if err != nil {
		return nil, fmt.Errorf("C-chain balance: %w", err)
	}
	return bal, nil
}

// BaseFee returns the current base fee in wei per gas. When the node
// cannot report one the configured fallback is used and a warning logged.
func (l *EVMLedger) BaseFee(ctx context.Context) *big.Int {
	head, err := l.eth.HeaderByNumber(ctx, nil)
	if err == nil && head != nil && head.BaseFee != nil && head.BaseFee.Sign() > 0 {
		return head.BaseFee
	}
	if err == nil {
		err = tx.ErrNoBaseFee
	}
	l.logger.Warn().
		Err(err).
		Str("fallback", l.ctx.FallbackBaseFee.String()).
		Msg("Base fee lookup failed, using fallback")
	return new(big.Int).Set(l.ctx.FallbackBaseFee)
}

func (l *EVMLedger) counterpart(chain types.Chain) (types.ID, error) {
	if !l.multiLedger {
		return types.ID{}, wallet.ErrMultiLedgerUnavailable
	}
	if !chain.IsUTXO() {
		return types.ID{}, fmt.Errorf("%w: C-chain to %q", ErrBadDestination, chain)
	}
	return l.ctx.ChainID(chain)
}

// AtomicUTXOs returns the agent's UTXOs exported to C from source and not
// yet imported.
func (l *EVMLedger) AtomicUTXOs(ctx context.Context, source types.Chain) ([]*tx.UTXO, error) {
	sourceID, err := l.counterpart(source)
	if err != nil {
		return nil, err
	}
	utxos, err := l.atomic.GetUTXOs(ctx, []string{l.atomicAddr}, sourceID.String())
	if err != nil {
		return nil, fmt.Errorf("C-chain atomic utxos from %s: %w", source, err)
	}
	return utxos, nil
}

// ExportTo debits amount plus the atomic fee from the agent's account and
// exports amount nAVAX to dest, owned by the agent's UTXO address.
func (l *EVMLedger) ExportTo(ctx context.Context, amount uint64, dest types.Chain) (types.ID, error) {
	signed, err := l.BuildExport(ctx, amount, dest)
	if err != nil {
		return types.ID{}, err
	}
	id, err := issueSigned(ctx, l.atomic, types.ChainC, "export", signed)
	if err != nil {
		return types.ID{}, err
	}
	l.logger.Info().
		Str("tx", id.String()).
		Str("dest", string(dest)).
		Str("amount", types.FormatNano(amount)).
		Msg("Export issued")
	return id, nil
}

// BuildExport builds and signs the export ExportTo submits. The EVM input
// uses the account's current nonce.
func (l *EVMLedger) BuildExport(ctx context.Context, amount uint64, dest types.Chain) (*tx.Tx, error) {
	if amount == 0 {
		return nil, fmt.Errorf("export amount must be positive")
	}
	destID, err := l.counterpart(dest)
	if err != nil {
		return nil, err
	}
	nonce, err := l.eth.NonceAt(ctx, l.address, nil)
	if err != nil {
		return nil, fmt.Errorf("C-chain nonce: %w", err)
	}
	baseFee := l.BaseFee(ctx)

	unsigned := &tx.EVMExportTx{
		NetworkID:        l.ctx.NetworkID,
		BlockchainID:     l.ctx.CChainID,
		DestinationChain: destID,
		Ins: []tx.EVMInput{{
			Address: l.address,
			Amount:  amount,
			AssetID: l.ctx.AVAXAssetID,
			Nonce:   nonce,
		}},
		ExportedOuts: []tx.TransferableOutput{tx.NewOutput(l.ctx.AVAXAssetID, amount, l.owner)},
	}
	fee, err := tx.EstimateAtomicFee(unsigned, baseFee)
	if err != nil {
		return nil, err
	}
	debit, err := addAmounts(amount, fee)
	if err != nil {
		return nil, err
	}

	bal, err := l.Balance(ctx)
	if err != nil {
		return nil, err
	}
	if have, _ := weiToNano(bal); have < debit {
		return nil, &InsufficientFundsError{Have: have, Need: debit}
	}

	unsigned.Ins[0].Amount = debit
	unsigned.Sort()
	l.logger.Debug().
		Uint64("nonce", nonce).
		Str("fee", types.FormatNano(fee)).
		Str("baseFee", baseFee.String()).
		Msg("Built export")
	return signTx(types.ChainC, "export", unsigned, l.evmKey)
}

// ImportFrom claims every atomic UTXO exported to the agent from source and
// credits the agent's EVM account, less the atomic fee.
func (l *EVMLedger) ImportFrom(ctx context.Context, source types.Chain) (types.ID, error) {
	signed, err := l.BuildImport(ctx, source)
	if err != nil {
		return types.ID{}, err
	}
	id, err := issueSigned(ctx, l.atomic, types.ChainC, "import", signed)
	if err != nil {
		return types.ID{}, err
	}
	l.logger.Info().
		Str("tx", id.String()).
		Str("source", string(source)).
		Int("utxos", signed.Unsigned.NumCredentials()).
		Msg("Import issued")
	return id, nil
}

// BuildImport builds and signs the import ImportFrom submits.
func (l *EVMLedger) BuildImport(ctx context.Context, source types.Chain) (*tx.Tx, error) {
	sourceID, err := l.counterpart(source)
	if err != nil {
		return nil, err
	}
	atomic, err := l.AtomicUTXOs(ctx, source)
	if err != nil {
		return nil, err
	}
	coins := wallet.SpendableCoins(atomic, l.owner, l.ctx.AVAXAssetID, unixNow(l.now))
	if len(coins) == 0 {
		return nil, fmt.Errorf("C-chain from %s: %w", source, ErrNothingToImport)
	}
	total, err := coinsTotal(coins)
	if err != nil {
		return nil, err
	}

	unsigned := &tx.EVMImportTx{
		NetworkID:    l.ctx.NetworkID,
		BlockchainID: l.ctx.CChainID,
		SourceChain:  sourceID,
		ImportedIns:  importInputs(coins),
		Outs: []tx.EVMOutput{{
			Address: l.address,
			Amount:  total,
			AssetID: l.ctx.AVAXAssetID,
		}},
	}
	fee, err := tx.EstimateAtomicFee(unsigned, l.BaseFee(ctx))
	if err != nil {
		return nil, err
	}
	if total <= fee {
		return nil, &InsufficientFundsError{Have: total, Need: fee + 1}
	}
	unsigned.Outs[0].Amount = total - fee
	unsigned.Sort()
	return signTx(types.ChainC, "import", unsigned, l.utxoKey)
}

// TxStatus returns the atomic status of txID on C.
func (l *EVMLedger) TxStatus(ctx context.Context, txID types.ID) (string, error) {
	return l.atomic.GetTxStatus(ctx, txID)
}

// weiToNano converts a wei balance to nAVAX, truncating. The flag is false
// when the value exceeds uint64 nAVAX.
func weiToNano(wei *big.Int) (uint64, bool) {
	u, overflow := uint256.FromBig(wei)
	if overflow {
		return ^uint64(0), false
	}
	n, ok := types.WeiToNano(u)
	if !ok {
		return ^uint64(0), false
	}
	return n, true
}
