// derive_key.go prints the C, X and P addresses for a mnemonic or
// hex-encoded private key file.
// Usage: go run scripts/derive_key.go <keyfile> [mainnet|fuji]
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/iJaack/evalanche/internal/wallet"
	"github.com/iJaack/evalanche/pkg/types"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: derive_key <keyfile> [mainnet|fuji]")
		os.Exit(1)
	}
	networkID := types.MainnetID
	if len(os.Args) > 2 && os.Args[2] == "fuji" {
		networkID = types.FujiID
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	secret := strings.TrimSpace(string(data))

	var seed *wallet.Seed
	if strings.Contains(secret, " ") {
		seed, err = wallet.NewMnemonicSeed(secret)
	} else {
		seed, err = wallet.NewPrivateKeySeed(secret)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	kr, err := wallet.NewKeyring(seed, networkID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	addrs := kr.Addresses()
	for _, c := range types.Chains {
		if addr, ok := addrs[c]; ok {
			fmt.Printf("%s=%s\n", strings.ToLower(string(c)), addr)
		}
	}
}
