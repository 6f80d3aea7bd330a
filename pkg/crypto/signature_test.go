package crypto

import (
	"bytes"
	"testing"
)

// keyOne is the private key with scalar 1; its public key is the generator.
func keyOne(t *testing.T) *PrivateKey {
	t.Helper()
	b := make([]byte, 32)
	b[31] = 1
	key, err := PrivateKeyFromBytes(b)
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes() error: %v", err)
	}
	return key
}

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}

	if len(key.PublicKey()) != 33 {
		t.Errorf("PublicKey() length = %d, want 33", len(key.PublicKey()))
	}
	if len(key.UncompressedPublicKey()) != 65 {
		t.Errorf("UncompressedPublicKey() length = %d, want 65", len(key.UncompressedPublicKey()))
	}
	if len(key.Serialize()) != 32 {
		t.Errorf("Serialize() length = %d, want 32", len(key.Serialize()))
	}
}

func TestPrivateKeyFromBytes_Invalid(t *testing.T) {
	tests := []struct {
		name string
		b    []byte
	}{
		{"short", make([]byte, 31)},
		{"long", make([]byte, 33)},
		{"zero", make([]byte, 32)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := PrivateKeyFromBytes(tt.b); err == nil {
				t.Error("PrivateKeyFromBytes() should fail")
			}
		})
	}
}

func TestPrivateKeyFromHex(t *testing.T) {
	key, err := PrivateKeyFromHex("0x0000000000000000000000000000000000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("PrivateKeyFromHex() error: %v", err)
	}
	if !bytes.Equal(key.Serialize(), keyOne(t).Serialize()) {
		t.Error("hex key should equal scalar 1")
	}

	if _, err := PrivateKeyFromHex("zz"); err == nil {
		t.Error("PrivateKeyFromHex() should reject non-hex input")
	}
}

func TestAddresses_KnownVector(t *testing.T) {
	key := keyOne(t)

	if got, want := key.EVMAddress().Hex(), "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"; got != want {
		t.Errorf("EVMAddress() = %s, want %s", got, want)
	}
	if got, want := key.ShortID().Hex(), "751e76e8199196d454941c45d1b3a323f1433bd6"; got != want {
		t.Errorf("ShortID() = %s, want %s", got, want)
	}
}

func TestSignHash_Recover(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	hash := Hash([]byte("unsigned tx bytes"))

	sig, err := key.SignHash(hash[:])
	if err != nil {
		t.Fatalf("SignHash() error: %v", err)
	}
	if len(sig) != SignatureLen {
		t.Fatalf("signature length = %d, want %d", len(sig), SignatureLen)
	}
	if sig[64] > 1 {
		t.Errorf("recovery id = %d, want 0 or 1", sig[64])
	}

	pub, err := RecoverPublicKey(hash[:], sig)
	if err != nil {
		t.Fatalf("RecoverPublicKey() error: %v", err)
	}
	if !bytes.Equal(pub, key.PublicKey()) {
		t.Error("recovered public key does not match signer")
	}
	if !VerifySignature(hash[:], sig, key.PublicKey()) {
		t.Error("VerifySignature() = false, want true")
	}

	other := Hash([]byte("different bytes"))
	if VerifySignature(other[:], sig, key.PublicKey()) {
		t.Error("signature should not verify against a different hash")
	}
}

func TestSignHash_BadLength(t *testing.T) {
	key := keyOne(t)
	if _, err := key.SignHash(make([]byte, 31)); err == nil {
		t.Error("SignHash() should reject a 31-byte hash")
	}
}

func TestRecoverPublicKey_Invalid(t *testing.T) {
	hash := Hash([]byte("x"))
	if _, err := RecoverPublicKey(hash[:], make([]byte, 64)); err == nil {
		t.Error("RecoverPublicKey() should reject short signatures")
	}
	sig := make([]byte, SignatureLen)
	sig[64] = 7
	if _, err := RecoverPublicKey(hash[:], sig); err == nil {
		t.Error("RecoverPublicKey() should reject recovery id 7")
	}
}
