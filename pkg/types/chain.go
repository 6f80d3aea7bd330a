package types

import (
	"fmt"
	"strings"
)

// Chain names one of the three ledgers.
type Chain string

const (
	ChainC Chain = "C" // account-based EVM ledger
	ChainX Chain = "X" // UTXO asset-exchange ledger
	ChainP Chain = "P" // UTXO staking ledger
)

// Chains lists the ledgers in display order.
var Chains = []Chain{ChainC, ChainX, ChainP}

// ParseChain accepts "C", "X" or "P" in either case.
func ParseChain(s string) (Chain, error) {
	c := Chain(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown chain %q (want C, X or P)", s)
	}
	return c, nil
}

// Valid reports whether c is one of the three known ledgers.
func (c Chain) Valid() bool {
	switch c {
	case ChainC, ChainX, ChainP:
		return true
	}
	return false
}

// IsUTXO reports whether the ledger tracks balances as unspent outputs.
func (c Chain) IsUTXO() bool {
	return c == ChainX || c == ChainP
}

func (c Chain) String() string {
	return string(c)
}
