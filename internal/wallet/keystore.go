package wallet

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/iJaack/evalanche/internal/log"
)

// File names inside the key directory.
const (
	RecordFile  = "keystore.json"
	EntropyFile = ".entropy"
	lockFile    = ".lock"
)

const (
	fileMode = 0o600
	dirMode  = 0o700

	lockRetry = 50 * time.Millisecond
)

// record is the on-disk Web3 Secret Storage (V3) document.
type record struct {
	Version int                 `json:"version"`
	ID      string              `json:"id"`
	Address string              `json:"address"`
	Crypto  keystore.CryptoJSON `json:"crypto"`
	Meta    recordMeta          `json:"x-evalanche"`
}

type recordMeta struct {
	Kind      SeedKind  `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// InitResult describes the key material after Init or an import.
type InitResult struct {
	Address     common.Address
	StoragePath string
	IsNew       bool
}

// Store keeps the seed encrypted on disk, with a password derived from a
// sibling entropy file.
type Store struct {
	dir     string
	scryptN int
	scryptP int
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithScrypt overrides the KDF cost, e.g. keystore.LightScryptN in tests.
func WithScrypt(n, p int) StoreOption {
	return func(s *Store) {
		s.scryptN = n
		s.scryptP = p
	}
}

// NewStore returns a store rooted at dir. Nothing is touched on disk until
// Init or an import.
func NewStore(dir string, opts ...StoreOption) *Store {
	s := &Store{
		dir:     dir,
		scryptN: keystore.StandardScryptN,
		scryptP: keystore.StandardScryptP,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Dir returns the key directory.
func (s *Store) Dir() string { return s.dir }

// RecordPath returns the path of keystore.json.
func (s *Store) RecordPath() string { return filepath.Join(s.dir, RecordFile) }

// EntropyPath returns the path of the entropy file.
func (s *Store) EntropyPath() string { return filepath.Join(s.dir, EntropyFile) }

// Exists reports whether a record is present.
func (s *Store) Exists() (bool, error) {
	_, err := os.Stat(s.RecordPath())
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, &StorageError{Op: "stat", Path: s.RecordPath(), Err: err}
}

// Init loads the existing key, or generates a 24-word mnemonic and stores
// it. Calling it again returns the same address with IsNew false.
func (s *Store) Init(ctx context.Context) (*InitResult, error) {
	var res *InitResult
	err := s.withLock(ctx, func() error {
		exists, err := s.Exists()
		if err != nil {
			return err
		}
		if exists {
			seed, err := s.Load()
			if err != nil {
				return err
			}
			res, err = s.result(seed, false)
			return err
		}

		mnemonic, err := GenerateMnemonic()
		if err != nil {
			return err
		}
		seed, err := NewMnemonicSeed(mnemonic)
		if err != nil {
			return err
		}
		if err := s.create(seed); err != nil {
			return err
		}
		res, err = s.result(seed, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Keystore.Info().
		Str("address", res.Address.Hex()).
		Bool("new", res.IsNew).
		Str("path", res.StoragePath).
		Msg("key material ready")
	return res, nil
}

// ImportMnemonic stores a caller-supplied mnemonic. Fails with
// ErrRecordExists if a record is already present.
func (s *Store) ImportMnemonic(ctx context.Context, mnemonic string) (*InitResult, error) {
	seed, err := NewMnemonicSeed(mnemonic)
	if err != nil {
		return nil, err
	}
	return s.importSeed(ctx, seed)
}

// ImportPrivateKey stores a hex private key. Only the C ledger will be
// usable.
func (s *Store) ImportPrivateKey(ctx context.Context, hexKey string) (*InitResult, error) {
	seed, err := NewPrivateKeySeed(hexKey)
	if err != nil {
		return nil, err
	}
	return s.importSeed(ctx, seed)
}

func (s *Store) importSeed(ctx context.Context, seed *Seed) (*InitResult, error) {
	var res *InitResult
	err := s.withLock(ctx, func() error {
		exists, err := s.Exists()
		if err != nil {
			return err
		}
		if exists {
			return ErrRecordExists
		}
		if err := s.create(seed); err != nil {
			return err
		}
		res, err = s.result(seed, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Keystore.Info().Str("address", res.Address.Hex()).Str("kind", string(seed.Kind())).Msg("key material imported")
	return res, nil
}

// Load decrypts the stored seed.
func (s *Store) Load() (*Seed, error) {
	entropy, err := readEntropy(s.EntropyPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &KeyLoadError{Path: s.EntropyPath(), Err: ErrEntropyMissing}
	}
	if err != nil {
		return nil, &KeyLoadError{Path: s.EntropyPath(), Err: err}
	}
	defer zero(entropy)

	raw, err := os.ReadFile(s.RecordPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &KeyLoadError{Path: s.RecordPath(), Err: ErrNoRecord}
	}
	if err != nil {
		return nil, &KeyLoadError{Path: s.RecordPath(), Err: err}
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, &KeyLoadError{Path: s.RecordPath(), Err: fmt.Errorf("parse record: %w", err)}
	}
	if rec.Version != 3 {
		return nil, &KeyLoadError{Path: s.RecordPath(), Err: fmt.Errorf("unsupported record version %d", rec.Version)}
	}

	secret, err := keystore.DecryptDataV3(rec.Crypto, derivePassword(entropy))
	if err != nil {
		return nil, &KeyLoadError{Path: s.RecordPath(), Err: fmt.Errorf("decrypt record: %w", err)}
	}
	defer zero(secret)

	seed, err := seedFromSecret(rec.Meta.Kind, secret)
	if err != nil {
		return nil, &KeyLoadError{Path: s.RecordPath(), Err: err}
	}
	s.checkMode(s.RecordPath())
	s.checkMode(s.EntropyPath())
	return seed, nil
}

// ExportMnemonic returns the stored recovery phrase.
func (s *Store) ExportMnemonic() (string, error) {
	seed, err := s.Load()
	if err != nil {
		return "", err
	}
	return seed.Mnemonic()
}

func (s *Store) result(seed *Seed, isNew bool) (*InitResult, error) {
	kr, err := NewKeyring(seed, 0)
	if err != nil {
		return nil, err
	}
	defer kr.Zero()
	return &InitResult{Address: kr.EVMAddress(), StoragePath: s.dir, IsNew: isNew}, nil
}

// create writes entropy, then the encrypted record. The record is linked
// into place so an existing one is never replaced.
func (s *Store) create(seed *Seed) error {
	entropy, err := newEntropy()
	if err != nil {
		return err
	}
	defer zero(entropy)

	kr, err := NewKeyring(seed, 0)
	if err != nil {
		return err
	}
	defer kr.Zero()

	secret := seed.secret()
	defer zero(secret)
	cj, err := keystore.EncryptDataV3(secret, []byte(derivePassword(entropy)), s.scryptN, s.scryptP)
	if err != nil {
		return fmt.Errorf("encrypt record: %w", err)
	}
	rec := record{
		Version: 3,
		ID:      uuid.NewString(),
		Address: hex.EncodeToString(kr.EVMAddress().Bytes()),
		Crypto:  cj,
		Meta:    recordMeta{Kind: seed.Kind(), CreatedAt: time.Now().UTC()},
	}
	data, err := json.MarshalIndent(&rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	// No record exists, so a stale entropy file from an interrupted run
	// can be replaced.
	if err := writeFile(s.EntropyPath(), entropy, true); err != nil {
		return err
	}
	if err := writeFile(s.RecordPath(), data, false); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrRecordExists
		}
		return err
	}
	return nil
}

// withLock runs fn holding the directory's advisory lock.
func (s *Store) withLock(ctx context.Context, fn func() error) error {
	if err := os.MkdirAll(s.dir, dirMode); err != nil {
		return &StorageError{Op: "mkdir", Path: s.dir, Err: err}
	}
	lk := flock.New(filepath.Join(s.dir, lockFile))
	ok, err := lk.TryLockContext(ctx, lockRetry)
	if err != nil {
		return &StorageError{Op: "lock", Path: lk.Path(), Err: err}
	}
	if !ok {
		return &StorageError{Op: "lock", Path: lk.Path(), Err: errors.New("lock not acquired")}
	}
	defer func() {
		if err := lk.Unlock(); err != nil {
			log.Keystore.Warn().Err(err).Msg("release key directory lock")
		}
	}()
	return fn()
}

// checkMode tightens permissions that drifted from 0600.
func (s *Store) checkMode(path string) {
	fi, err := os.Stat(path)
	if err != nil || fi.Mode().Perm() == fileMode {
		return
	}
	log.Keystore.Warn().Str("path", path).Str("mode", fi.Mode().Perm().String()).Msg("key file permissions too open, fixing")
	if err := os.Chmod(path, fileMode); err != nil {
		log.Keystore.Warn().Err(err).Str("path", path).Msg("chmod key file")
	}
}

// writeFile writes data to a temp file in the same directory and moves it
// to path. With replace false the move fails with fs.ErrExist when path
// already exists.
func writeFile(path string, data []byte, replace bool) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &StorageError{Op: "create", Path: dir, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &StorageError{Op: "write", Path: tmpName, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &StorageError{Op: "sync", Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &StorageError{Op: "close", Path: tmpName, Err: err}
	}
	if err := os.Chmod(tmpName, fileMode); err != nil {
		return &StorageError{Op: "chmod", Path: tmpName, Err: err}
	}

	if replace {
		err = os.Rename(tmpName, path)
	} else {
		err = os.Link(tmpName, path)
	}
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return err
		}
		return &StorageError{Op: "install", Path: path, Err: err}
	}
	return os.Chmod(path, fileMode)
}
