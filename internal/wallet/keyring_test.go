package wallet

import (
	"errors"
	"strings"
	"testing"

	"github.com/tyler-smith/go-bip32"

	"github.com/iJaack/evalanche/pkg/types"
)

func testKeyring(t *testing.T, networkID uint32) *Keyring {
	t.Helper()
	seed, err := NewMnemonicSeed(testMnemonic)
	if err != nil {
		t.Fatalf("NewMnemonicSeed() error: %v", err)
	}
	kr, err := NewKeyring(seed, networkID)
	if err != nil {
		t.Fatalf("NewKeyring() error: %v", err)
	}
	return kr
}

func TestParsePath(t *testing.T) {
	got, err := ParsePath(PathUTXO)
	if err != nil {
		t.Fatalf("ParsePath() error: %v", err)
	}
	want := []uint32{
		bip32.FirstHardenedChild + 44,
		bip32.FirstHardenedChild + 9000,
		bip32.FirstHardenedChild,
		0,
		0,
	}
	if len(got) != len(want) {
		t.Fatalf("ParsePath() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d = %d, want %d", i, got[i], want[i])
		}
	}

	for _, bad := range []string{"44'/60'", "m/x", "m/-1", "m/4294967295"} {
		if _, err := ParsePath(bad); err == nil {
			t.Errorf("ParsePath(%q) should fail", bad)
		}
	}
}

func TestKeyring_EVMVector(t *testing.T) {
	kr := testKeyring(t, types.MainnetID)
	// Well-known first account of the all-abandon mnemonic.
	const want = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"
	if got := kr.EVMAddress().Hex(); got != want {
		t.Errorf("EVMAddress() = %s, want %s", got, want)
	}
	addr, err := kr.Address(types.ChainC)
	if err != nil || addr != want {
		t.Errorf("Address(C) = %s, %v", addr, err)
	}
}

func TestKeyring_Deterministic(t *testing.T) {
	a := testKeyring(t, types.FujiID)
	b := testKeyring(t, types.FujiID)
	for _, c := range types.Chains {
		addrA, err := a.Address(c)
		if err != nil {
			t.Fatalf("Address(%s) error: %v", c, err)
		}
		addrB, _ := b.Address(c)
		if addrA != addrB {
			t.Errorf("Address(%s) not deterministic: %s vs %s", c, addrA, addrB)
		}
	}
}

func TestKeyring_SharedUTXOKey(t *testing.T) {
	kr := testKeyring(t, types.MainnetID)
	x, err := kr.Address(types.ChainX)
	if err != nil {
		t.Fatalf("Address(X) error: %v", err)
	}
	p, err := kr.Address(types.ChainP)
	if err != nil {
		t.Fatalf("Address(P) error: %v", err)
	}
	if !strings.HasPrefix(x, "X-avax1") || !strings.HasPrefix(p, "P-avax1") {
		t.Errorf("unexpected addresses %s %s", x, p)
	}
	if x[2:] != p[2:] {
		t.Errorf("X and P should share a key: %s vs %s", x, p)
	}

	chain, hrp, id, err := types.ParseAddress(x)
	if err != nil {
		t.Fatalf("ParseAddress() error: %v", err)
	}
	short, _ := kr.ShortID()
	if chain != types.ChainX || hrp != types.MainnetHRP || id != short {
		t.Errorf("ParseAddress(%s) = %s %s %s", x, chain, hrp, id)
	}

	// EVM and UTXO keys come from different paths.
	utxoKey, _ := kr.UTXOKey()
	if utxoKey.EVMAddress() == kr.EVMAddress() {
		t.Error("UTXO key should differ from EVM key")
	}
}

func TestKeyring_NetworkHRP(t *testing.T) {
	kr := testKeyring(t, types.FujiID)
	x, _ := kr.Address(types.ChainX)
	if !strings.HasPrefix(x, "X-fuji1") {
		t.Errorf("fuji address = %s", x)
	}
	main := testKeyring(t, types.MainnetID)
	mx, _ := main.Address(types.ChainX)
	if mx[len("X-avax1"):] == x[len("X-fuji1"):] {
		t.Error("bech32 payload should differ with the HRP checksum")
	}
}

func TestKeyring_PrivateKeyOnly(t *testing.T) {
	seed, err := NewPrivateKeySeed(keyOneHex)
	if err != nil {
		t.Fatalf("NewPrivateKeySeed() error: %v", err)
	}
	kr, err := NewKeyring(seed, types.FujiID)
	if err != nil {
		t.Fatalf("NewKeyring() error: %v", err)
	}
	if got := kr.EVMAddress().Hex(); got != "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf" {
		t.Errorf("EVMAddress() = %s", got)
	}
	if kr.HasUTXOKey() {
		t.Error("private-key keyring should not have a UTXO key")
	}
	for _, c := range []types.Chain{types.ChainX, types.ChainP} {
		if _, err := kr.Address(c); !errors.Is(err, ErrMultiLedgerUnavailable) {
			t.Errorf("Address(%s) error = %v, want ErrMultiLedgerUnavailable", c, err)
		}
	}
	if _, err := kr.UTXOKey(); !errors.Is(err, ErrMultiLedgerUnavailable) {
		t.Errorf("UTXOKey() error = %v, want ErrMultiLedgerUnavailable", err)
	}
	if got := kr.Addresses(); len(got) != 1 {
		t.Errorf("Addresses() = %v, want only C", got)
	}
}
