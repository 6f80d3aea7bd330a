package settlement

import (
	"errors"
	"fmt"

	"github.com/iJaack/evalanche/pkg/types"
)

// Settlement errors.
var (
	ErrInvalidDirection  = errors.New("invalid transfer direction")
	ErrImportPending     = errors.New("exported funds not yet importable")
	ErrTransferNotFound  = errors.New("transfer not found")
	ErrNothingToResume   = errors.New("transfer has no export to resume")
	ErrLedgerUnavailable = errors.New("ledger not configured")
)

// CrossChainError reports a transfer whose export was accepted but whose
// import did not complete. The funds sit in shared memory and the import
// can be retried with Resume.
type CrossChainError struct {
	TransferID string
	Direction  Direction
	ExportTxID types.ID
	// Pending is true when the exported funds never became visible on the
	// destination before the wait ended.
	Pending bool
	Err     error
}

func (e *CrossChainError) Error() string {
	if e.Pending {
		return fmt.Sprintf("transfer %s (%s): export %s succeeded, import pending; retry the import later: %v",
			e.TransferID, e.Direction, e.ExportTxID, e.Err)
	}
	return fmt.Sprintf("transfer %s (%s): export %s succeeded but import failed; retry the import: %v",
		e.TransferID, e.Direction, e.ExportTxID, e.Err)
}

func (e *CrossChainError) Unwrap() error { return e.Err }

// Is matches ErrImportPending when the import never ran.
func (e *CrossChainError) Is(target error) bool {
	return target == ErrImportPending && e.Pending
}
