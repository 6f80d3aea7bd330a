package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iJaack/evalanche/config"
	"github.com/iJaack/evalanche/internal/ledger"
	"github.com/iJaack/evalanche/pkg/types"
)

var errWaitTimeout = errors.New("timed out waiting for exported funds")

// PollConfig bounds the wait for exported funds. The interval starts at
// Initial and doubles up to Max; the wait gives up after Timeout.
type PollConfig struct {
	Initial time.Duration
	Max     time.Duration
	Timeout time.Duration
}

// PollConfigFrom copies the settlement section of cfg.
func PollConfigFrom(cfg config.SettlementConfig) PollConfig {
	return PollConfig{
		Initial: cfg.PollInitial,
		Max:     cfg.PollMax,
		Timeout: cfg.Timeout,
	}
}

func (p PollConfig) withDefaults() PollConfig {
	if p.Initial <= 0 {
		p.Initial = config.DefaultPollInitial
	}
	if p.Max < p.Initial {
		p.Max = p.Initial
	}
	if p.Timeout <= 0 {
		p.Timeout = config.DefaultSettlementTimeout
	}
	return p
}

// next returns the interval that follows d.
func (p PollConfig) next(d time.Duration) time.Duration {
	d *= 2
	if d > p.Max {
		return p.Max
	}
	return d
}

// waitForExport polls dst until an atomic UTXO produced by exportTxID
// shows up or the wait ends. Lookup errors are logged and retried.
func (o *Orchestrator) waitForExport(parent context.Context, dst ledger.AtomicLedger, source types.Chain, exportTxID types.ID) error {
	poll := o.poll
	ctx, cancel := context.WithTimeout(parent, poll.Timeout)
	defer cancel()

	interval := poll.Initial
	timer := time.NewTimer(0)
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			if err := parent.Err(); err != nil {
				return err
			}
			return fmt.Errorf("%w after %s", errWaitTimeout, poll.Timeout)
		case <-timer.C:
		}

		utxos, err := dst.AtomicUTXOs(ctx, source)
		if err != nil {
			o.logger.Warn().
				Err(err).
				Int("attempt", attempt).
				Str("chain", string(dst.Chain())).
				Msg("Atomic UTXO lookup failed")
		} else {
			for _, u := range utxos {
				if u.TxID == exportTxID {
					o.logger.Debug().
						Int("attempt", attempt).
						Str("export", exportTxID.String()).
						Msg("Exported funds visible")
					return nil
				}
			}
		}

		timer.Reset(interval)
		interval = poll.next(interval)
	}
}
