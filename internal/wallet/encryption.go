package wallet

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/iJaack/evalanche/internal/log"
)

// Backup format:
//
//	magic(8) | memory(4) | iterations(4) | parallelism(1) | salt(32) | nonce(24) | ciphertext
//
// Integers are big-endian. The header is authenticated as associated data.
const (
	backupMagic = "EVABKP01"
	SaltSize    = 32
	headerSize  = len(backupMagic) + 4 + 4 + 1 + SaltSize
)

// ErrBadPassphrase is returned when a backup fails to authenticate.
var ErrBadPassphrase = errors.New("wrong passphrase or corrupted backup")

// EncryptionParams holds Argon2id parameters.
type EncryptionParams struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultParams returns the Argon2id cost used for backups.
func DefaultParams() EncryptionParams {
	return EncryptionParams{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 4,
	}
}

// backupPayload is the plaintext sealed inside a backup.
type backupPayload struct {
	Kind   SeedKind `json:"kind"`
	Secret []byte   `json:"secret"`
}

func passphraseKey(passphrase, salt []byte, p EncryptionParams) []byte {
	return argon2.IDKey(passphrase, salt, p.Iterations, p.Memory, p.Parallelism, chacha20poly1305.KeySize)
}

// Seal encrypts data under passphrase with Argon2id and XChaCha20-Poly1305.
func Seal(data, passphrase []byte, params EncryptionParams) ([]byte, error) {
	if params.Memory == 0 || params.Iterations == 0 || params.Parallelism == 0 {
		return nil, fmt.Errorf("invalid argon2 parameters %+v", params)
	}
	header := make([]byte, 0, headerSize)
	header = append(header, backupMagic...)
	header = binary.BigEndian.AppendUint32(header, params.Memory)
	header = binary.BigEndian.AppendUint32(header, params.Iterations)
	header = append(header, params.Parallelism)
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	header = append(header, salt...)

	key := passphraseKey(passphrase, salt, params)
	defer zero(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := append(header, nonce...)
	return aead.Seal(out, nonce, data, header), nil
}

// Open reverses Seal.
func Open(sealed, passphrase []byte) ([]byte, error) {
	minSize := headerSize + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead
	if len(sealed) < minSize {
		return nil, fmt.Errorf("backup too short: %d bytes, need at least %d", len(sealed), minSize)
	}
	if !bytes.HasPrefix(sealed, []byte(backupMagic)) {
		return nil, errors.New("not an evalanche backup")
	}
	off := len(backupMagic)
	params := EncryptionParams{
		Memory:      binary.BigEndian.Uint32(sealed[off:]),
		Iterations:  binary.BigEndian.Uint32(sealed[off+4:]),
		Parallelism: sealed[off+8],
	}
	salt := sealed[off+9 : headerSize]
	nonce := sealed[headerSize : headerSize+chacha20poly1305.NonceSizeX]
	ciphertext := sealed[headerSize+chacha20poly1305.NonceSizeX:]

	key := passphraseKey(passphrase, salt, params)
	defer zero(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	plain, err := aead.Open(nil, nonce, ciphertext, sealed[:headerSize])
	if err != nil {
		return nil, ErrBadPassphrase
	}
	return plain, nil
}

// Backup writes the stored seed to w sealed under passphrase.
func (s *Store) Backup(w io.Writer, passphrase []byte, params EncryptionParams) error {
	seed, err := s.Load()
	if err != nil {
		return err
	}
	defer seed.Zero()

	secret := seed.secret()
	defer zero(secret)
	payload, err := json.Marshal(backupPayload{Kind: seed.Kind(), Secret: secret})
	if err != nil {
		return fmt.Errorf("marshal backup: %w", err)
	}
	defer zero(payload)

	sealed, err := Seal(payload, passphrase, params)
	if err != nil {
		return err
	}
	if _, err := w.Write(sealed); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	log.Keystore.Info().Str("kind", string(seed.Kind())).Msg("backup written")
	return nil
}

// RestoreBackup recreates the key store from a backup. Fails with
// ErrRecordExists if a record is already present.
func (s *Store) RestoreBackup(ctx context.Context, r io.Reader, passphrase []byte) (*InitResult, error) {
	sealed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}
	plain, err := Open(sealed, passphrase)
	if err != nil {
		return nil, err
	}
	defer zero(plain)

	var payload backupPayload
	if err := json.Unmarshal(plain, &payload); err != nil {
		return nil, fmt.Errorf("parse backup: %w", err)
	}
	defer zero(payload.Secret)
	seed, err := seedFromSecret(payload.Kind, payload.Secret)
	if err != nil {
		return nil, fmt.Errorf("restore backup: %w", err)
	}
	return s.importSeed(ctx, seed)
}
