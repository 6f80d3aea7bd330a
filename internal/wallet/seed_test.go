package wallet

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// keyOneHex is the private key 1.
const keyOneHex = "0x0000000000000000000000000000000000000000000000000000000000000001"

func TestGenerateMnemonic(t *testing.T) {
	m, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}
	if n := len(strings.Fields(m)); n != 24 {
		t.Errorf("word count = %d, want 24", n)
	}
	if !ValidateMnemonic(m) {
		t.Error("generated mnemonic should validate")
	}

	other, _ := GenerateMnemonic()
	if m == other {
		t.Error("two generated mnemonics should differ")
	}
}

func TestNewMnemonicSeed(t *testing.T) {
	seed, err := NewMnemonicSeed("  ABANDON abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon   about ")
	if err != nil {
		t.Fatalf("NewMnemonicSeed() error: %v", err)
	}
	m, err := seed.Mnemonic()
	if err != nil {
		t.Fatalf("Mnemonic() error: %v", err)
	}
	if m != testMnemonic {
		t.Errorf("Mnemonic() = %q, want normalized form", m)
	}

	if _, err := NewMnemonicSeed("abandon abandon abandon"); !errors.Is(err, ErrInvalidMnemonic) {
		t.Errorf("short mnemonic error = %v, want ErrInvalidMnemonic", err)
	}
	// Bad checksum.
	bad := strings.Replace(testMnemonic, "about", "abandon", 1)
	if _, err := NewMnemonicSeed(bad); !errors.Is(err, ErrInvalidMnemonic) {
		t.Errorf("bad checksum error = %v, want ErrInvalidMnemonic", err)
	}
}

func TestPrivateKeySeed(t *testing.T) {
	seed, err := NewPrivateKeySeed(keyOneHex)
	if err != nil {
		t.Fatalf("NewPrivateKeySeed() error: %v", err)
	}
	if seed.HasMnemonic() {
		t.Error("private key seed should not have a mnemonic")
	}
	if _, err := seed.Mnemonic(); !errors.Is(err, ErrNoMnemonic) {
		t.Errorf("Mnemonic() error = %v, want ErrNoMnemonic", err)
	}
	if _, err := seed.BIP39Seed(); !errors.Is(err, ErrNoMnemonic) {
		t.Errorf("BIP39Seed() error = %v, want ErrNoMnemonic", err)
	}

	for _, bad := range []string{"zz", "0x00", "0x" + strings.Repeat("00", 32)} {
		if _, err := NewPrivateKeySeed(bad); err == nil {
			t.Errorf("NewPrivateKeySeed(%q) should fail", bad)
		}
	}
}

func TestSeed_Redacted(t *testing.T) {
	seed, err := NewMnemonicSeed(testMnemonic)
	if err != nil {
		t.Fatalf("NewMnemonicSeed() error: %v", err)
	}
	for _, out := range []string{seed.String(), fmt.Sprintf("%v", seed), fmt.Sprintf("%+v", seed), fmt.Sprintf("%#v", seed)} {
		if strings.Contains(out, "abandon") {
			t.Errorf("formatted seed leaks mnemonic: %s", out)
		}
	}
}

func TestBIP39Seed(t *testing.T) {
	seed, _ := NewMnemonicSeed(testMnemonic)
	b, err := seed.BIP39Seed()
	if err != nil {
		t.Fatalf("BIP39Seed() error: %v", err)
	}
	if len(b) != SeedSize {
		t.Errorf("seed length = %d, want %d", len(b), SeedSize)
	}
	// BIP-39 vector for the all-abandon mnemonic with empty passphrase.
	const want = "5eb00bbddcf069084889a8ab9155568165f5c453ccb85e70811aaed6f6da5fc19a5ac40b389cd370d086206dec8aa6c43daea6690f20ad3d8d48b2d2ce9e38e4"
	if got := fmt.Sprintf("%x", b); got != want {
		t.Errorf("BIP39Seed() = %s, want %s", got, want)
	}
}
