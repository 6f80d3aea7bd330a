package wallet

import (
	"errors"
	"fmt"
)

// Key material errors.
var (
	ErrNoMnemonic             = errors.New("seed has no mnemonic")
	ErrMultiLedgerUnavailable = errors.New("X and P ledgers need a mnemonic seed; this key store holds only a private key")
	ErrInvalidMnemonic        = errors.New("invalid mnemonic")
	ErrRecordExists           = errors.New("keystore record already exists")
	ErrNoRecord               = errors.New("no keystore record")
	ErrEntropyMissing         = errors.New("entropy file missing")
)

// StorageError reports that the key directory could not be created,
// locked, or written.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("key storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// KeyLoadError reports that stored key material exists but cannot be
// used: entropy missing, record corrupt, or decryption failed.
type KeyLoadError struct {
	Path string
	Err  error
}

func (e *KeyLoadError) Error() string {
	return fmt.Sprintf("load key material from %s: %v", e.Path, e.Err)
}

func (e *KeyLoadError) Unwrap() error { return e.Err }
