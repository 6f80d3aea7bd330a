package wallet

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/zeebo/blake3"
)

// EntropySize is the length of the .entropy file.
const EntropySize = 32

const passwordContext = "evalanche keystore password v1"

// newEntropy returns fresh random bytes for a password.
func newEntropy() ([]byte, error) {
	b := make([]byte, EntropySize)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate entropy: %w", err)
	}
	return b, nil
}

// readEntropy loads and size-checks the entropy file.
func readEntropy(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(b) != EntropySize {
		return nil, fmt.Errorf("entropy file is %d bytes, want %d", len(b), EntropySize)
	}
	return b, nil
}

// derivePassword turns entropy into the keystore password. The password
// itself is never written anywhere.
func derivePassword(entropy []byte) string {
	out := make([]byte, 32)
	blake3.DeriveKey(passwordContext, entropy, out)
	return hex.EncodeToString(out)
}
