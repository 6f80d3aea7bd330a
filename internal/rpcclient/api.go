package rpcclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/iJaack/evalanche/internal/log"
	"github.com/iJaack/evalanche/pkg/tx"
	"github.com/iJaack/evalanche/pkg/types"
)

// UTXOPageLimit is the page size requested from getUTXOs.
const UTXOPageLimit = 1024

// maxUTXOPages stops a server that never ends pagination.
const maxUTXOPages = 1000

// Transaction statuses reported by the ledgers.
const (
	StatusAccepted   = "Accepted"
	StatusCommitted  = "Committed"
	StatusProcessing = "Processing"
	StatusRejected   = "Rejected"
	StatusDropped    = "Dropped"
	StatusUnknown    = "Unknown"
)

// ChainAPI wraps the UTXO-oriented methods shared by avm.*, platform.* and
// the C ledger's avax.* namespace.
type ChainAPI struct {
	client       *Client
	ns           string
	statusMethod string
}

// NewAVM returns the X ledger API.
func NewAVM(c *Client) *ChainAPI {
	return &ChainAPI{client: c, ns: "avm", statusMethod: "avm.getTxStatus"}
}

// NewAtomic returns the C ledger's atomic API.
func NewAtomic(c *Client) *ChainAPI {
	return &ChainAPI{client: c, ns: "avax", statusMethod: "avax.getAtomicTxStatus"}
}

// Client returns the underlying JSON-RPC client.
func (a *ChainAPI) Client() *Client { return a.client }

type index struct {
	Address string `json:"address"`
	UTXO    string `json:"utxo"`
}

type getUTXOsArgs struct {
	Addresses   []string `json:"addresses"`
	SourceChain string   `json:"sourceChain,omitempty"`
	Limit       Uint64   `json:"limit"`
	StartIndex  *index   `json:"startIndex,omitempty"`
	Encoding    string   `json:"encoding"`
}

type getUTXOsReply struct {
	NumFetched Uint64   `json:"numFetched"`
	UTXOs      []string `json:"utxos"`
	EndIndex   index    `json:"endIndex"`
}

// GetUTXOs returns every UTXO owned by addrs. With a non-empty
// sourceChain it returns atomic UTXOs exported from that chain. Outputs
// of unsupported types are skipped.
func (a *ChainAPI) GetUTXOs(ctx context.Context, addrs []string, sourceChain string) ([]*tx.UTXO, error) {
	args := getUTXOsArgs{
		Addresses:   addrs,
		SourceChain: sourceChain,
		Limit:       UTXOPageLimit,
		Encoding:    "hex",
	}
	seen := make(map[types.UTXOID]bool)
	var out []*tx.UTXO

	for page := 0; page < maxUTXOPages; page++ {
		var reply getUTXOsReply
		if err := a.client.Call(ctx, a.ns+".getUTXOs", args, &reply); err != nil {
			return nil, err
		}
		for _, enc := range reply.UTXOs {
			raw, err := types.DecodeHex(enc)
			if err != nil {
				return nil, fmt.Errorf("decode utxo: %w", err)
			}
			u, err := tx.ParseUTXO(raw)
			if errors.Is(err, tx.ErrUnsupportedOutput) {
				log.RPC.Debug().Str("ns", a.ns).Err(err).Msg("skipping utxo")
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("parse utxo: %w", err)
			}
			if seen[u.UTXOID] {
				continue
			}
			seen[u.UTXOID] = true
			out = append(out, u)
		}
		if uint64(reply.NumFetched) < UTXOPageLimit {
			return out, nil
		}
		end := reply.EndIndex
		args.StartIndex = &end
	}
	return nil, fmt.Errorf("%s.getUTXOs: more than %d pages", a.ns, maxUTXOPages)
}

type issueTxArgs struct {
	Tx       string `json:"tx"`
	Encoding string `json:"encoding"`
}

type issueTxReply struct {
	TxID types.ID `json:"txID"`
}

// IssueTx submits signed transaction bytes and returns the ledger's tx ID.
func (a *ChainAPI) IssueTx(ctx context.Context, txBytes []byte) (types.ID, error) {
	var reply issueTxReply
	args := issueTxArgs{Tx: types.EncodeHex(txBytes), Encoding: "hex"}
	if err := a.client.Call(ctx, a.ns+".issueTx", args, &reply); err != nil {
		return types.ID{}, err
	}
	return reply.TxID, nil
}

type txStatusArgs struct {
	TxID types.ID `json:"txID"`
}

type txStatusReply struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// GetTxStatus returns the ledger's status string for txID.
func (a *ChainAPI) GetTxStatus(ctx context.Context, txID types.ID) (string, error) {
	var reply txStatusReply
	if err := a.client.Call(ctx, a.statusMethod, txStatusArgs{TxID: txID}, &reply); err != nil {
		return "", err
	}
	return reply.Status, nil
}

// PlatformAPI adds the P ledger's staking queries.
type PlatformAPI struct {
	*ChainAPI
}

// NewPlatform returns the P ledger API.
func NewPlatform(c *Client) *PlatformAPI {
	return &PlatformAPI{ChainAPI: &ChainAPI{client: c, ns: "platform", statusMethod: "platform.getTxStatus"}}
}

type addressesArgs struct {
	Addresses []string `json:"addresses"`
}

// StakeReply is platform.getStake's result.
type StakeReply struct {
	Staked Uint64 `json:"staked"`
}

// GetStake returns the amount staked by addrs, in nAVAX.
func (p *PlatformAPI) GetStake(ctx context.Context, addrs []string) (uint64, error) {
	var reply StakeReply
	if err := p.client.Call(ctx, "platform.getStake", addressesArgs{Addresses: addrs}, &reply); err != nil {
		return 0, err
	}
	return uint64(reply.Staked), nil
}

// Validator is one entry of platform.getCurrentValidators.
type Validator struct {
	TxID           types.ID `json:"txID"`
	NodeID         string   `json:"nodeID"`
	StartTime      Uint64   `json:"startTime"`
	EndTime        Uint64   `json:"endTime"`
	StakeAmount    Uint64   `json:"stakeAmount"`
	Weight         Uint64   `json:"weight"`
	DelegationFee  string   `json:"delegationFee"`
	Uptime         string   `json:"uptime"`
	Connected      bool     `json:"connected"`
	DelegatorCount Uint64   `json:"delegatorCount"`
}

type validatorsReply struct {
	Validators []Validator `json:"validators"`
}

// GetCurrentValidators lists the primary network's current validators.
func (p *PlatformAPI) GetCurrentValidators(ctx context.Context) ([]Validator, error) {
	var reply validatorsReply
	if err := p.client.Call(ctx, "platform.getCurrentValidators", struct{}{}, &reply); err != nil {
		return nil, err
	}
	return reply.Validators, nil
}

// MinStakeReply is platform.getMinStake's result, in nAVAX.
type MinStakeReply struct {
	MinValidatorStake Uint64 `json:"minValidatorStake"`
	MinDelegatorStake Uint64 `json:"minDelegatorStake"`
}

// GetMinStake returns the minimum validator and delegator stake.
func (p *PlatformAPI) GetMinStake(ctx context.Context) (*MinStakeReply, error) {
	var reply MinStakeReply
	if err := p.client.Call(ctx, "platform.getMinStake", struct{}{}, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}
