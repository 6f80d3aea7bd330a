package types

import "fmt"

// UTXOID references a specific output of a transaction.
type UTXOID struct {
	TxID        ID     `json:"txID"`
	OutputIndex uint32 `json:"outputIndex"`
}

// String returns "txid:index".
func (u UTXOID) String() string {
	return fmt.Sprintf("%s:%d", u.TxID, u.OutputIndex)
}

// Compare orders UTXO IDs by tx ID, then output index.
func (u UTXOID) Compare(other UTXOID) int {
	if c := u.TxID.Compare(other.TxID); c != 0 {
		return c
	}
	switch {
	case u.OutputIndex < other.OutputIndex:
		return -1
	case u.OutputIndex > other.OutputIndex:
		return 1
	}
	return 0
}
