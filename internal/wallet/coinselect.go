package wallet

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/iJaack/evalanche/pkg/tx"
	"github.com/iJaack/evalanche/pkg/types"
)

// ErrInsufficientFunds is matched by every coin selection shortfall.
var ErrInsufficientFunds = errors.New("insufficient funds")

// InsufficientFundsError reports the shortfall. It matches
// ErrInsufficientFunds with errors.Is.
type InsufficientFundsError struct {
	Have uint64
	Need uint64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("%v: have %d, need %d", ErrInsufficientFunds, e.Have, e.Need)
}

func (e *InsufficientFundsError) Is(target error) bool { return target == ErrInsufficientFunds }

// Coin is a spendable UTXO and the signature index the agent signs at.
type Coin struct {
	UTXO     *tx.UTXO
	SigIndex uint32
}

// Amount returns the UTXO value.
func (c Coin) Amount() uint64 { return c.UTXO.Out.Amount }

// CoinSelection holds the result of coin selection.
type CoinSelection struct {
	Coins  []Coin
	Total  uint64
	Change uint64
}

// SelectCoins chooses coins covering target. It compares the smallest
// single coin that covers target with largest-first accumulation and keeps
// whichever leaves less change.
func SelectCoins(coins []Coin, target uint64) (*CoinSelection, error) {
	if target == 0 {
		return nil, fmt.Errorf("target must be positive")
	}
	candidates := make([]Coin, 0, len(coins))
	for _, c := range coins {
		if c.Amount() > 0 {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil, &InsufficientFundsError{Need: target}
	}
	slices.SortStableFunc(candidates, func(a, b Coin) int {
		switch {
		case a.Amount() < b.Amount():
			return -1
		case a.Amount() > b.Amount():
			return 1
		}
		return a.UTXO.UTXOID.Compare(b.UTXO.UTXOID)
	})

	var single *CoinSelection
	for _, c := range candidates {
		if c.Amount() >= target {
			single = &CoinSelection{Coins: []Coin{c}, Total: c.Amount(), Change: c.Amount() - target}
			break
		}
	}

	var accum *CoinSelection
	var picked []Coin
	var total uint64
	for i := len(candidates) - 1; i >= 0; i-- {
		amt := candidates[i].Amount()
		if total > math.MaxUint64-amt {
			total = math.MaxUint64
		} else {
			total += amt
		}
		picked = append(picked, candidates[i])
		if total >= target {
			accum = &CoinSelection{Coins: picked, Total: total, Change: total - target}
			break
		}
	}

	switch {
	case single != nil && accum != nil:
		if single.Change <= accum.Change {
			return single, nil
		}
		return accum, nil
	case single != nil:
		return single, nil
	case accum != nil:
		return accum, nil
	default:
		return nil, &InsufficientFundsError{Have: total, Need: target}
	}
}

// SpendableCoins filters utxos down to those owner can spend alone at unix
// time now, in assetID.
func SpendableCoins(utxos []*tx.UTXO, owner types.ShortID, assetID types.ID, now uint64) []Coin {
	var coins []Coin
	for _, u := range utxos {
		if u.AssetID != assetID {
			continue
		}
		idx, ok := u.Spendable(owner, now)
		if !ok {
			continue
		}
		coins = append(coins, Coin{UTXO: u, SigIndex: idx})
	}
	return coins
}
