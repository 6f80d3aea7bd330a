package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"

	"github.com/iJaack/evalanche/internal/ledger"
	"github.com/iJaack/evalanche/internal/rpcclient"
	"github.com/iJaack/evalanche/internal/settlement"
	"github.com/iJaack/evalanche/internal/wallet"
	"github.com/iJaack/evalanche/pkg/types"
)

// DelegationStartDelay is how far in the future a delegation starts.
const DelegationStartDelay = time.Minute

// Balances are decimal AVAX amounts per ledger.
type Balances struct {
	C     string `json:"C"`
	X     string `json:"X"`
	P     string `json:"P"`
	Total string `json:"total"`
}

// GetMultiChainBalance fetches the three balances concurrently. X and P
// report zero when the seed cannot derive their address.
func (a *Agent) GetMultiChainBalance(ctx context.Context) (*Balances, error) {
	set, _, release, err := a.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	var cWei, xWei, pWei *uint256.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bal, err := set.c.Balance(gctx)
		if err != nil {
			return err
		}
		var overflow bool
		cWei, overflow = uint256.FromBig(bal)
		if overflow {
			return fmt.Errorf("C-chain balance %s overflows", bal)
		}
		return nil
	})
	if set.x != nil {
		g.Go(func() error {
			bal, err := set.x.Balance(gctx)
			if err != nil {
				return err
			}
			xWei = types.NanoToWei(bal)
			return nil
		})
		g.Go(func() error {
			bal, err := set.p.Balance(gctx)
			if err != nil {
				return err
			}
			pWei = types.NanoToWei(bal)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if xWei == nil {
		xWei = new(uint256.Int)
	}
	if pWei == nil {
		pWei = new(uint256.Int)
	}
	total := new(uint256.Int).Add(cWei, xWei)
	total.Add(total, pWei)

	return &Balances{
		C:     types.FormatWei(cWei),
		X:     types.FormatWei(xWei),
		P:     types.FormatWei(pWei),
		Total: types.FormatWei(total),
	}, nil
}

// Transfer moves amount (decimal AVAX) between ledgers. See
// settlement.Orchestrator.Transfer for the failure contract.
func (a *Agent) Transfer(ctx context.Context, from, to types.Chain, amount string) (*settlement.Result, error) {
	_, orch, release, err := a.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	nano, err := types.ParseNano(amount)
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", amount, err)
	}
	return orch.Transfer(ctx, from, to, nano)
}

// ImportFrom claims funds already exported from source to chain, e.g.
// after an interrupted transfer that was not journaled.
func (a *Agent) ImportFrom(ctx context.Context, chain, source types.Chain) (types.ID, error) {
	set, _, release, err := a.acquire()
	if err != nil {
		return types.ID{}, err
	}
	defer release()
	if err := (settlement.Direction{From: source, To: chain}).Validate(); err != nil {
		return types.ID{}, err
	}
	l, err := set.atomic(chain)
	if err != nil {
		return types.ID{}, err
	}
	return l.ImportFrom(ctx, source)
}

// PendingTransfers lists journaled transfers that have not completed.
func (a *Agent) PendingTransfers() ([]*settlement.Record, error) {
	_, orch, release, err := a.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return orch.Pending()
}

// ResumeTransfer retries the import of a pending transfer.
func (a *Agent) ResumeTransfer(ctx context.Context, id string) (*settlement.Result, error) {
	_, orch, release, err := a.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return orch.Resume(ctx, id)
}

// PruneTransfers removes journal records untouched for longer than age.
// Transfers with funds in transit are kept.
func (a *Agent) PruneTransfers(age time.Duration) (int, error) {
	if age <= 0 {
		return 0, fmt.Errorf("prune age must be positive, got %s", age)
	}
	_, orch, release, err := a.acquire()
	if err != nil {
		return 0, err
	}
	defer release()
	return orch.Prune(time.Now().Add(-age))
}

// TxStatus reports the status of txID on chain as the node sees it.
func (a *Agent) TxStatus(ctx context.Context, chain types.Chain, txID string) (string, error) {
	id, err := types.ParseID(txID)
	if err != nil {
		return "", fmt.Errorf("tx id %q: %w", txID, err)
	}
	set, _, release, err := a.acquire()
	if err != nil {
		return "", err
	}
	defer release()
	switch chain {
	case types.ChainC:
		return set.c.TxStatus(ctx, id)
	case types.ChainX, types.ChainP:
		if set.x == nil {
			return "", wallet.ErrMultiLedgerUnavailable
		}
		if chain == types.ChainX {
			return set.x.TxStatus(ctx, id)
		}
		return set.p.TxStatus(ctx, id)
	}
	return "", fmt.Errorf("unknown chain %q", chain)
}

// Delegate stakes amount (decimal AVAX) with nodeID for durationDays,
// starting DelegationStartDelay from now. Rewards go to the agent.
func (a *Agent) Delegate(ctx context.Context, nodeID, amount string, durationDays int) (types.ID, error) {
	set, _, release, err := a.acquire()
	if err != nil {
		return types.ID{}, err
	}
	defer release()
	p, err := set.pchain()
	if err != nil {
		return types.ID{}, err
	}
	node, err := types.ParseNodeID(nodeID)
	if err != nil {
		return types.ID{}, err
	}
	nano, err := types.ParseNano(amount)
	if err != nil {
		return types.ID{}, fmt.Errorf("amount %q: %w", amount, err)
	}
	if durationDays <= 0 {
		return types.ID{}, fmt.Errorf("duration must be at least one day, got %d", durationDays)
	}

	start := time.Now().Add(DelegationStartDelay).Truncate(time.Second)
	return p.AddDelegator(ctx, ledger.Delegation{
		NodeID: node,
		Amount: nano,
		Start:  start,
		End:    start.Add(time.Duration(durationDays) * 24 * time.Hour),
	})
}

// GetStake returns the agent's staked amount in decimal AVAX.
func (a *Agent) GetStake(ctx context.Context) (string, error) {
	set, _, release, err := a.acquire()
	if err != nil {
		return "", err
	}
	defer release()
	p, err := set.pchain()
	if err != nil {
		return "", err
	}
	staked, err := p.Stake(ctx)
	if err != nil {
		return "", err
	}
	return types.FormatNano(staked), nil
}

// GetValidators returns the current validators, heaviest first. A
// positive limit truncates the list.
func (a *Agent) GetValidators(ctx context.Context, limit int) ([]rpcclient.Validator, error) {
	set, _, release, err := a.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	p, err := set.pchain()
	if err != nil {
		return nil, err
	}
	return p.CurrentValidators(ctx, limit)
}

// MinStake holds the network minimums in decimal AVAX.
type MinStake struct {
	Validator string `json:"minValidatorStake"`
	Delegator string `json:"minDelegatorStake"`
}

// GetMinStake returns the network's minimum stake amounts.
func (a *Agent) GetMinStake(ctx context.Context) (*MinStake, error) {
	set, _, release, err := a.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	p, err := set.pchain()
	if err != nil {
		return nil, err
	}
	ms, err := p.MinStake(ctx)
	if err != nil {
		return nil, err
	}
	return &MinStake{
		Validator: types.FormatNano(uint64(ms.MinValidatorStake)),
		Delegator: types.FormatNano(uint64(ms.MinDelegatorStake)),
	}, nil
}
