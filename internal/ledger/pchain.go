package ledger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/iJaack/evalanche/internal/rpcclient"
	"github.com/iJaack/evalanche/internal/wallet"
	"github.com/iJaack/evalanche/pkg/tx"
	"github.com/iJaack/evalanche/pkg/types"
)

// Delegation errors.
var (
	ErrStartNotFuture = errors.New("delegation must start in the future")
	ErrEndBeforeStart = errors.New("delegation must end after it starts")
	ErrBelowMinStake  = errors.New("amount below minimum delegator stake")
)

// PChain is the P ledger module: the UTXO operations plus staking.
type PChain struct {
	*UTXOLedger
	platform PlatformClient
}

// NewPChain returns the P ledger module. The keyring must hold a UTXO key.
func NewPChain(c Context, client PlatformClient, kr *wallet.Keyring) (*PChain, error) {
	l, err := newUTXOLedger(types.ChainP, tx.VMP, c.PChainID, c.PTxFee, c, client, kr)
	if err != nil {
		return nil, err
	}
	return &PChain{UTXOLedger: l, platform: client}, nil
}

// Delegation describes an AddDelegator request. A zero Rewards pays
// rewards to the agent.
type Delegation struct {
	NodeID  types.NodeID
	Amount  uint64 // nAVAX
	Start   time.Time
	End     time.Time
	Rewards types.ShortID
}

// AddDelegator stakes d.Amount with the validator d.NodeID. The stake and
// the ledger fee are funded from the agent's P balance.
func (p *PChain) AddDelegator(ctx context.Context, d Delegation) (types.ID, error) {
	signed, err := p.BuildAddDelegator(ctx, d)
	if err != nil {
		return types.ID{}, err
	}
	id, err := issueSigned(ctx, p.client, p.chain, "addDelegator", signed)
	if err != nil {
		return types.ID{}, err
	}
	p.logger.Info().
		Str("tx", id.String()).
		Str("node", d.NodeID.String()).
		Str("amount", types.FormatNano(d.Amount)).
		Time("end", d.End).
		Msg("Delegation issued")
	return id, nil
}

// BuildAddDelegator checks d and builds the signed delegation.
// The minimum stake check is skipped, with a warning, when the node cannot
// report the minimum.
func (p *PChain) BuildAddDelegator(ctx context.Context, d Delegation) (*tx.Tx, error) {
	if d.Amount == 0 {
		return nil, fmt.Errorf("delegation amount must be positive")
	}
	if !d.Start.After(p.now()) {
		return nil, ErrStartNotFuture
	}
	if !d.End.After(d.Start) {
		return nil, ErrEndBeforeStart
	}
	if ms, err := p.platform.GetMinStake(ctx); err != nil {
		p.logger.Warn().Err(err).Msg("Minimum stake unavailable, skipping check")
	} else if d.Amount < uint64(ms.MinDelegatorStake) {
		return nil, fmt.Errorf("%w: %s < %s AVAX", ErrBelowMinStake,
			types.FormatNano(d.Amount), types.FormatNano(uint64(ms.MinDelegatorStake)))
	}

	rewards := d.Rewards
	if rewards.IsZero() {
		rewards = p.owner
	}

	b := tx.NewBuilder(p.ctx.NetworkID, p.chainID)
	if err := p.fund(ctx, b, d.Amount); err != nil {
		return nil, err
	}
	validator := tx.Validator{
		NodeID: d.NodeID,
		Start:  uint64(d.Start.Unix()),
		End:    uint64(d.End.Unix()),
		Weight: d.Amount,
	}
	stake := []tx.TransferableOutput{tx.NewOutput(p.ctx.AVAXAssetID, d.Amount, p.owner)}
	return signTx(p.chain, "addDelegator", b.AddDelegator(validator, stake, rewards), p.key)
}

// Stake returns the amount the agent has staked, in nAVAX.
func (p *PChain) Stake(ctx context.Context) (uint64, error) {
	staked, err := p.platform.GetStake(ctx, []string{p.address})
	if err != nil {
		return 0, fmt.Errorf("get stake: %w", err)
	}
	return staked, nil
}

// CurrentValidators returns the current validators ordered by weight,
// heaviest first. A positive limit truncates the list.
func (p *PChain) CurrentValidators(ctx context.Context, limit int) ([]rpcclient.Validator, error) {
	vals, err := p.platform.GetCurrentValidators(ctx)
	if err != nil {
		return nil, fmt.Errorf("get validators: %w", err)
	}
	slices.SortStableFunc(vals, func(a, b rpcclient.Validator) int {
		return cmp.Compare(b.Weight, a.Weight)
	})
	if limit > 0 && len(vals) > limit {
		vals = vals[:limit]
	}
	return vals, nil
}

// MinStake returns the network's minimum validator and delegator stake.
func (p *PChain) MinStake(ctx context.Context) (*rpcclient.MinStakeReply, error) {
	ms, err := p.platform.GetMinStake(ctx)
	if err != nil {
		return nil, fmt.Errorf("get min stake: %w", err)
	}
	return ms, nil
}
