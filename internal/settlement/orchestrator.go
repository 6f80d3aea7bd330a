package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iJaack/evalanche/internal/ledger"
	"github.com/iJaack/evalanche/internal/log"
	"github.com/iJaack/evalanche/internal/wallet"
	"github.com/iJaack/evalanche/pkg/types"
)

// Options configures an Orchestrator.
type Options struct {
	Poll PollConfig
	// Journal records transfers. Without one, Pending and Resume are
	// unavailable.
	Journal *Journal
	// OnState is called synchronously on every state transition.
	OnState func(Event)
}

// Orchestrator runs export/import pairs between the agent's ledgers.
// Transfers run sequentially within a call; concurrent calls are not
// coordinated.
type Orchestrator struct {
	ledgers     map[types.Chain]ledger.AtomicLedger
	multiLedger bool
	poll        PollConfig
	journal     *Journal
	onState     func(Event)
	logger      zerolog.Logger
}

// New returns an orchestrator over the given ledgers. A keyring without a
// UTXO key refuses every transfer, since each direction touches X or P.
func New(kr *wallet.Keyring, ledgers []ledger.AtomicLedger, opts Options) *Orchestrator {
	o := &Orchestrator{
		ledgers:     make(map[types.Chain]ledger.AtomicLedger, len(ledgers)),
		multiLedger: kr.HasUTXOKey(),
		poll:        opts.Poll.withDefaults(),
		journal:     opts.Journal,
		onState:     opts.OnState,
		logger:      log.Settlement,
	}
	for _, l := range ledgers {
		o.ledgers[l.Chain()] = l
	}
	return o
}

// Journal returns the transfer journal, or nil.
func (o *Orchestrator) Journal() *Journal { return o.journal }

func (o *Orchestrator) pair(d Direction) (src, dst ledger.AtomicLedger, err error) {
	if err := d.Validate(); err != nil {
		return nil, nil, err
	}
	if !o.multiLedger {
		return nil, nil, wallet.ErrMultiLedgerUnavailable
	}
	src, ok := o.ledgers[d.From]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrLedgerUnavailable, d.From)
	}
	dst, ok = o.ledgers[d.To]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrLedgerUnavailable, d.To)
	}
	return src, dst, nil
}

// Transfer moves amount nAVAX from one ledger to another. The destination
// receives amount less its import fee.
//
// An export failure returns the ledger error and nothing is imported. Once
// the export is accepted, any later failure returns a *CrossChainError
// holding the export tx ID; the import can then be retried with Resume.
func (o *Orchestrator) Transfer(ctx context.Context, from, to types.Chain, amount uint64) (*Result, error) {
	d := Direction{From: from, To: to}
	src, dst, err := o.pair(d)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, errors.New("transfer amount must be positive")
	}

	rec, err := o.newRecord(d, amount)
	if err != nil {
		return nil, err
	}
	o.logger.Info().
		Str("transfer", rec.ID).
		Str("direction", d.String()).
		Str("amount", types.FormatNano(amount)).
		Msg("Transfer started")

	o.setState(rec, StateExporting, nil)
	exportID, err := src.ExportTo(ctx, amount, to)
	if err != nil {
		o.setState(rec, StateFailed, err)
		return nil, fmt.Errorf("export from %s: %w", from, err)
	}
	rec.ExportTxID = exportID

	return o.settle(ctx, rec, dst)
}

// settle waits for rec's export to reach dst and imports it.
func (o *Orchestrator) settle(ctx context.Context, rec *Record, dst ledger.AtomicLedger) (*Result, error) {
	d := rec.Direction
	o.setState(rec, StateAwaitingConfirmation, nil)
	if err := o.waitForExport(ctx, dst, d.From, rec.ExportTxID); err != nil {
		o.setState(rec, StateAwaitingConfirmation, err)
		return nil, &CrossChainError{
			TransferID: rec.ID,
			Direction:  d,
			ExportTxID: rec.ExportTxID,
			Pending:    true,
			Err:        err,
		}
	}

	o.setState(rec, StateImporting, nil)
	importID, err := dst.ImportFrom(ctx, d.From)
	if err != nil {
		o.setState(rec, StateFailed, err)
		return nil, &CrossChainError{
			TransferID: rec.ID,
			Direction:  d,
			ExportTxID: rec.ExportTxID,
			Err:        err,
		}
	}
	rec.ImportTxID = importID
	o.setState(rec, StateComplete, nil)

	o.logger.Info().
		Str("transfer", rec.ID).
		Str("direction", d.String()).
		Str("export", rec.ExportTxID.String()).
		Str("import", importID.String()).
		Msg("Transfer complete")
	return &Result{TransferID: rec.ID, ExportTxID: rec.ExportTxID, ImportTxID: importID}, nil
}

// Pending lists journaled transfers that have not completed.
func (o *Orchestrator) Pending() ([]*Record, error) {
	if o.journal == nil {
		return nil, nil
	}
	return o.journal.Pending()
}

// Prune drops journal records last updated before cutoff. See
// Journal.Prune.
func (o *Orchestrator) Prune(cutoff time.Time) (int, error) {
	if o.journal == nil {
		return 0, nil
	}
	n, err := o.journal.Prune(cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		o.logger.Info().Int("removed", n).Time("cutoff", cutoff).Msg("Transfer journal pruned")
	}
	return n, nil
}

// Resume retries the import of a journaled transfer whose export was
// accepted. A completed transfer returns its recorded result.
func (o *Orchestrator) Resume(ctx context.Context, id string) (*Result, error) {
	if o.journal == nil {
		return nil, fmt.Errorf("%w: no journal", ErrTransferNotFound)
	}
	rec, err := o.journal.Get(id)
	if err != nil {
		return nil, err
	}
	if rec.State == StateComplete {
		return &Result{TransferID: rec.ID, ExportTxID: rec.ExportTxID, ImportTxID: rec.ImportTxID}, nil
	}
	if !rec.Exported() {
		return nil, fmt.Errorf("%w: %s", ErrNothingToResume, id)
	}
	_, dst, err := o.pair(rec.Direction)
	if err != nil {
		return nil, err
	}
	o.logger.Info().
		Str("transfer", rec.ID).
		Str("direction", rec.Direction.String()).
		Str("export", rec.ExportTxID.String()).
		Msg("Resuming import")
	return o.settle(ctx, rec, dst)
}

func (o *Orchestrator) newRecord(d Direction, amount uint64) (*Record, error) {
	if o.journal != nil {
		return o.journal.Create(d, amount)
	}
	id, err := newTransferID(d, amount, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return &Record{ID: id, Direction: d, Amount: amount, State: StateIdle}, nil
}

// setState records the transition, persists it and notifies the hook.
// A journal write failure is logged but does not stop the transfer.
func (o *Orchestrator) setState(rec *Record, s State, cause error) {
	rec.State = s
	rec.LastError = ""
	if cause != nil {
		rec.LastError = cause.Error()
	}
	if o.journal != nil {
		if err := o.journal.Update(rec); err != nil {
			o.logger.Error().Err(err).Str("transfer", rec.ID).Msg("Journal update failed")
		}
	}

	ev := o.logger.Debug()
	if s == StateFailed || cause != nil {
		ev = o.logger.Warn().Err(cause)
	}
	ev.Str("transfer", rec.ID).
		Str("direction", rec.Direction.String()).
		Str("state", string(s)).
		Msg("Transfer state")

	if o.onState != nil {
		o.onState(Event{
			TransferID: rec.ID,
			Direction:  rec.Direction,
			State:      s,
			ExportTxID: rec.ExportTxID,
			ImportTxID: rec.ImportTxID,
			Err:        cause,
		})
	}
}
