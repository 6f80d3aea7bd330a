package settlement

import "github.com/iJaack/evalanche/pkg/types"

// State is a step of the transfer pipeline.
type State string

const (
	StateIdle                 State = "idle"
	StateExporting            State = "exporting"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateImporting            State = "importing"
	StateComplete             State = "complete"
	StateFailed               State = "failed"
)

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// Event is passed to the OnState hook on every transition.
type Event struct {
	TransferID string
	Direction  Direction
	State      State
	ExportTxID types.ID
	ImportTxID types.ID
	Err        error
}

// Result holds the transaction IDs of a completed transfer.
type Result struct {
	TransferID string
	ExportTxID types.ID
	ImportTxID types.ID
}
