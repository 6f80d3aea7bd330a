package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iJaack/evalanche/internal/log"
	"github.com/iJaack/evalanche/internal/wallet"
	"github.com/iJaack/evalanche/pkg/crypto"
	"github.com/iJaack/evalanche/pkg/tx"
	"github.com/iJaack/evalanche/pkg/types"
)

// UTXOLedger operates the agent's account on X or P.
type UTXOLedger struct {
	chain   types.Chain
	vm      tx.VM
	ctx     Context
	chainID types.ID
	fee     uint64
	client  UTXOClient

	key     *crypto.PrivateKey
	owner   types.ShortID
	address string

	now    func() time.Time
	logger zerolog.Logger
}

// NewXChain returns the X ledger module. The keyring must hold a UTXO key.
func NewXChain(c Context, client UTXOClient, kr *wallet.Keyring) (*UTXOLedger, error) {
	return newUTXOLedger(types.ChainX, tx.VMX, c.XChainID, c.XTxFee, c, client, kr)
}

func newUTXOLedger(chain types.Chain, vm tx.VM, chainID types.ID, fee uint64, c Context, client UTXOClient, kr *wallet.Keyring) (*UTXOLedger, error) {
	key, err := kr.UTXOKey()
	if err != nil {
		return nil, err
	}
	owner := key.ShortID()
	addr, err := types.FormatAddress(chain, c.HRP, owner)
	if err != nil {
		return nil, err
	}
	return &UTXOLedger{
		chain:   chain,
		vm:      vm,
		ctx:     c,
		chainID: chainID,
		fee:     fee,
		client:  client,
		key:     key,
		owner:   owner,
		address: addr,
		now:     time.Now,
		logger:  log.WithChain(string(chain)),
	}, nil
}

// Chain returns the ledger this module operates.
func (l *UTXOLedger) Chain() types.Chain { return l.chain }

// Address returns the agent's address on this ledger.
func (l *UTXOLedger) Address() string { return l.address }

// Fee returns the flat transaction fee in nAVAX.
func (l *UTXOLedger) Fee() uint64 { return l.fee }

// UTXOs returns every UTXO the agent owns on this ledger.
func (l *UTXOLedger) UTXOs(ctx context.Context) ([]*tx.UTXO, error) {
	utxos, err := l.client.GetUTXOs(ctx, []string{l.address}, "")
	if err != nil {
		return nil, fmt.Errorf("%s-chain utxos: %w", l.chain, err)
	}
	return utxos, nil
}

// Balance returns the spendable native balance in nAVAX. Locked outputs
// are excluded until their locktime passes.
func (l *UTXOLedger) Balance(ctx context.Context) (uint64, error) {
	utxos, err := l.UTXOs(ctx)
	if err != nil {
		return 0, err
	}
	return coinsTotal(l.spendable(utxos))
}

func (l *UTXOLedger) spendable(utxos []*tx.UTXO) []wallet.Coin {
	return wallet.SpendableCoins(utxos, l.owner, l.ctx.AVAXAssetID, unixNow(l.now))
}

// AtomicUTXOs returns the agent's UTXOs exported from source and not yet
// imported here.
func (l *UTXOLedger) AtomicUTXOs(ctx context.Context, source types.Chain) ([]*tx.UTXO, error) {
	sourceID, err := l.counterpart(source)
	if err != nil {
		return nil, err
	}
	utxos, err := l.client.GetUTXOs(ctx, []string{l.address}, sourceID.String())
	if err != nil {
		return nil, fmt.Errorf("%s-chain atomic utxos from %s: %w", l.chain, source, err)
	}
	return utxos, nil
}

// counterpart resolves the other side of an atomic move.
func (l *UTXOLedger) counterpart(chain types.Chain) (types.ID, error) {
	if chain == l.chain || !chain.Valid() {
		return types.ID{}, fmt.Errorf("%w: %s-chain to %q", ErrBadDestination, l.chain, chain)
	}
	return l.ctx.ChainID(chain)
}

// fund selects coins covering amount plus the ledger fee and adds them to
// b, along with the change output. It fails with InsufficientFundsError
// before anything is built or submitted.
func (l *UTXOLedger) fund(ctx context.Context, b *tx.Builder, amount uint64) error {
	target, err := addAmounts(amount, l.fee)
	if err != nil {
		return err
	}
	utxos, err := l.UTXOs(ctx)
	if err != nil {
		return err
	}
	sel, err := wallet.SelectCoins(l.spendable(utxos), target)
	if err != nil {
		return err
	}
	for _, c := range sel.Coins {
		b.AddInput(c.UTXO, c.SigIndex)
	}
	b.AddOutput(l.ctx.AVAXAssetID, sel.Change, l.owner)
	return nil
}

// ExportTo moves amount nAVAX into shared memory for dest. Change returns
// to the agent; the ledger fee is paid on top of amount.
func (l *UTXOLedger) ExportTo(ctx context.Context, amount uint64, dest types.Chain) (types.ID, error) {
	signed, err := l.BuildExport(ctx, amount, dest)
	if err != nil {
		return types.ID{}, err
	}
	id, err := issueSigned(ctx, l.client, l.chain, "export", signed)
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

// BuildExport builds and signs the export ExportTo submits.
func (l *UTXOLedger) BuildExport(ctx context.Context, amount uint64, dest types.Chain) (*tx.Tx, error) {
	if amount == 0 {
		return nil, fmt.Errorf("export amount must be positive")
	}
	destID, err := l.counterpart(dest)
	if err != nil {
		return nil, err
	}

	b := tx.NewBuilder(l.ctx.NetworkID, l.chainID)
	if err := l.fund(ctx, b, amount); err != nil {
		return nil, err
	}
	exported := []tx.TransferableOutput{tx.NewOutput(l.ctx.AVAXAssetID, amount, l.owner)}
	return signTx(l.chain, "export", b.Export(l.vm, destID, exported), l.key)
}

// ImportFrom claims every atomic UTXO exported to the agent from source.
// The imported total must exceed the ledger fee.
func (l *UTXOLedger) ImportFrom(ctx context.Context, source types.Chain) (types.ID, error) {
	signed, err := l.BuildImport(ctx, source)
	if err != nil {
		return types.ID{}, err
	}
	id, err := issueSigned(ctx, l.client, l.chain, "import", signed)
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
func (l *UTXOLedger) BuildImport(ctx context.Context, source types.Chain) (*tx.Tx, error) {
	sourceID, err := l.counterpart(source)
	if err != nil {
		return nil, err
	}
	atomic, err := l.AtomicUTXOs(ctx, source)
	if err != nil {
		return nil, err
	}
	coins := l.spendable(atomic)
	if len(coins) == 0 {
		return nil, fmt.Errorf("%s-chain from %s: %w", l.chain, source, ErrNothingToImport)
	}
	total, err := coinsTotal(coins)
	if err != nil {
		return nil, err
	}
	if total <= l.fee {
		return nil, &InsufficientFundsError{Have: total, Need: l.fee + 1}
	}

	b := tx.NewBuilder(l.ctx.NetworkID, l.chainID)
	b.AddOutput(l.ctx.AVAXAssetID, total-l.fee, l.owner)
	return signTx(l.chain, "import", b.Import(l.vm, sourceID, importInputs(coins)), l.key)
}

// TxStatus returns the ledger's status for txID.
func (l *UTXOLedger) TxStatus(ctx context.Context, txID types.ID) (string, error) {
	return l.client.GetTxStatus(ctx, txID)
}

// signTx signs unsigned with key and checks its structure.
func signTx(chain types.Chain, op string, unsigned tx.UnsignedTx, key *crypto.PrivateKey) (*tx.Tx, error) {
	signed, err := tx.Sign(unsigned, key)
	if err != nil {
		return nil, err
	}
	if err := signed.Validate(); err != nil {
		return nil, fmt.Errorf("%s-chain %s: %w", chain, op, err)
	}
	return signed, nil
}

// issueSigned submits signed. Any failure to issue is a SubmissionError.
func issueSigned(ctx context.Context, client UTXOClient, chain types.Chain, op string, signed *tx.Tx) (types.ID, error) {
	id, err := client.IssueTx(ctx, signed.Bytes())
	if err != nil {
		return types.ID{}, &SubmissionError{Chain: chain, Op: op, Err: err}
	}
	if local := signed.ID(); id != local {
		lg := log.WithChain(string(chain))
		lg.Warn().
			Str("node", id.String()).
			Str("local", local.String()).
			Msg("Node reported a different tx ID")
	}
	return id, nil
}
