package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "keys"), WithScrypt(keystore.LightScryptN, keystore.LightScryptP))
}

func TestStore_InitIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	first, err := s.Init(ctx)
	if err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	if !first.IsNew {
		t.Error("first Init() should report IsNew")
	}
	if first.StoragePath != s.Dir() {
		t.Errorf("StoragePath = %s, want %s", first.StoragePath, s.Dir())
	}

	second, err := s.Init(ctx)
	if err != nil {
		t.Fatalf("second Init() error: %v", err)
	}
	if second.IsNew {
		t.Error("second Init() should not report IsNew")
	}
	if second.Address != first.Address {
		t.Errorf("address changed: %s -> %s", first.Address.Hex(), second.Address.Hex())
	}
}

func TestStore_FilePermissions(t *testing.T) {
	s := testStore(t)
	if _, err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	for _, p := range []string{s.RecordPath(), s.EntropyPath()} {
		fi, err := os.Stat(p)
		if err != nil {
			t.Fatalf("Stat(%s) error: %v", p, err)
		}
		if perm := fi.Mode().Perm(); perm != 0o600 {
			t.Errorf("%s mode = %o, want 600", filepath.Base(p), perm)
		}
	}
	fi, err := os.Stat(s.EntropyPath())
	if err != nil {
		t.Fatalf("Stat() error: %v", err)
	}
	if fi.Size() != EntropySize {
		t.Errorf("entropy size = %d, want %d", fi.Size(), EntropySize)
	}
}

func TestStore_RecordFormat(t *testing.T) {
	s := testStore(t)
	res, err := s.Init(context.Background())
	if err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	raw, err := os.ReadFile(s.RecordPath())
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if doc["version"] != float64(3) {
		t.Errorf("version = %v, want 3", doc["version"])
	}
	if _, ok := doc["crypto"].(map[string]any); !ok {
		t.Error("record missing crypto section")
	}
	if !strings.EqualFold("0x"+doc["address"].(string), res.Address.Hex()) {
		t.Errorf("address = %v, want %s", doc["address"], res.Address.Hex())
	}
	mnemonic, err := s.ExportMnemonic()
	if err != nil {
		t.Fatalf("ExportMnemonic() error: %v", err)
	}
	for _, w := range strings.Fields(mnemonic)[:3] {
		if bytes.Contains(raw, []byte(`"`+w+`"`)) {
			t.Errorf("record contains mnemonic word %q", w)
		}
	}
}

func TestStore_ExportMnemonicRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	res, err := s.ImportMnemonic(ctx, testMnemonic)
	if err != nil {
		t.Fatalf("ImportMnemonic() error: %v", err)
	}
	if res.Address.Hex() != "0x9858EfFD232B4033E47d90003D41EC34EcaEda94" {
		t.Errorf("Address = %s", res.Address.Hex())
	}

	got, err := s.ExportMnemonic()
	if err != nil {
		t.Fatalf("ExportMnemonic() error: %v", err)
	}
	if got != testMnemonic {
		t.Errorf("ExportMnemonic() = %q", got)
	}

	// Reloading in a fresh Store yields the same keys.
	again := NewStore(s.Dir())
	seed, err := again.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	m, _ := seed.Mnemonic()
	if m != testMnemonic {
		t.Error("reloaded mnemonic differs")
	}
}

func TestStore_ImportWhenExists(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if _, err := s.Init(ctx); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	if _, err := s.ImportMnemonic(ctx, testMnemonic); !errors.Is(err, ErrRecordExists) {
		t.Errorf("ImportMnemonic() error = %v, want ErrRecordExists", err)
	}
}

func TestStore_PrivateKeyNoMnemonic(t *testing.T) {
	s := testStore(t)
	res, err := s.ImportPrivateKey(context.Background(), keyOneHex)
	if err != nil {
		t.Fatalf("ImportPrivateKey() error: %v", err)
	}
	if res.Address.Hex() != "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf" {
		t.Errorf("Address = %s", res.Address.Hex())
	}
	if _, err := s.ExportMnemonic(); !errors.Is(err, ErrNoMnemonic) {
		t.Errorf("ExportMnemonic() error = %v, want ErrNoMnemonic", err)
	}
	seed, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if seed.Kind() != KindPrivateKey {
		t.Errorf("Kind() = %s", seed.Kind())
	}
}

func TestStore_MissingEntropy(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if _, err := s.Init(ctx); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	if err := os.Remove(s.EntropyPath()); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}

	_, err := s.Load()
	var kle *KeyLoadError
	if !errors.As(err, &kle) {
		t.Fatalf("Load() error = %v, want *KeyLoadError", err)
	}
	if !errors.Is(err, ErrEntropyMissing) {
		t.Errorf("Load() error = %v, want ErrEntropyMissing", err)
	}

	// Init must not silently replace the key.
	if _, err := s.Init(ctx); !errors.As(err, &kle) {
		t.Errorf("Init() error = %v, want *KeyLoadError", err)
	}
}

func TestStore_CorruptRecord(t *testing.T) {
	s := testStore(t)
	if _, err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	if err := os.WriteFile(s.RecordPath(), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	var kle *KeyLoadError
	if _, err := s.Load(); !errors.As(err, &kle) {
		t.Errorf("Load() error = %v, want *KeyLoadError", err)
	}
}

func TestStore_WrongEntropy(t *testing.T) {
	s := testStore(t)
	if _, err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	if err := os.WriteFile(s.EntropyPath(), make([]byte, EntropySize), 0o600); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	var kle *KeyLoadError
	if _, err := s.Load(); !errors.As(err, &kle) {
		t.Errorf("Load() error = %v, want *KeyLoadError", err)
	}
}

func TestStore_LoadWithoutInit(t *testing.T) {
	s := testStore(t)
	var kle *KeyLoadError
	if _, err := s.Load(); !errors.As(err, &kle) {
		t.Errorf("Load() error = %v, want *KeyLoadError", err)
	}
	exists, err := s.Exists()
	if err != nil || exists {
		t.Errorf("Exists() = %v, %v; want false, nil", exists, err)
	}
}

func TestStore_UnwritableDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	s := NewStore(filepath.Join(file, "keys"))

	_, err := s.Init(context.Background())
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("Init() error = %v, want *StorageError", err)
	}
}

func TestStore_StaleEntropyReplaced(t *testing.T) {
	s := testStore(t)
	if err := os.MkdirAll(s.Dir(), 0o700); err != nil {
		t.Fatal(err)
	}
	// Leftover from a run interrupted between the two writes.
	if err := os.WriteFile(s.EntropyPath(), []byte("short"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	if _, err := s.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
}

func TestStore_ConcurrentInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keys")
	const n = 4
	var wg sync.WaitGroup
	results := make([]*InitResult, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := NewStore(dir, WithScrypt(keystore.LightScryptN, keystore.LightScryptP))
			results[i], errs[i] = s.Init(context.Background())
		}(i)
	}
	wg.Wait()

	newCount := 0
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("Init() #%d error: %v", i, errs[i])
		}
		if results[i].IsNew {
			newCount++
		}
		if results[i].Address != results[0].Address {
			t.Errorf("Init() #%d address %s differs from %s", i, results[i].Address.Hex(), results[0].Address.Hex())
		}
	}
	if newCount != 1 {
		t.Errorf("%d callers generated a key, want 1", newCount)
	}
}

func TestStore_BackupRestore(t *testing.T) {
	src := testStore(t)
	ctx := context.Background()
	orig, err := src.ImportMnemonic(ctx, testMnemonic)
	if err != nil {
		t.Fatalf("ImportMnemonic() error: %v", err)
	}

	var buf bytes.Buffer
	if err := src.Backup(&buf, []byte("correct horse"), fastParams()); err != nil {
		t.Fatalf("Backup() error: %v", err)
	}
	if bytes.Contains(buf.Bytes(), []byte("abandon")) {
		t.Fatal("backup contains plaintext")
	}

	dst := testStore(t)
	if _, err := dst.RestoreBackup(ctx, bytes.NewReader(buf.Bytes()), []byte("wrong")); !errors.Is(err, ErrBadPassphrase) {
		t.Errorf("RestoreBackup(wrong) error = %v, want ErrBadPassphrase", err)
	}
	res, err := dst.RestoreBackup(ctx, bytes.NewReader(buf.Bytes()), []byte("correct horse"))
	if err != nil {
		t.Fatalf("RestoreBackup() error: %v", err)
	}
	if res.Address != orig.Address {
		t.Errorf("restored address %s, want %s", res.Address.Hex(), orig.Address.Hex())
	}
	m, err := dst.ExportMnemonic()
	if err != nil || m != testMnemonic {
		t.Errorf("ExportMnemonic() = %q, %v", m, err)
	}
}
