package tx

import (
	"errors"
	"math/big"
	"testing"

	"github.com/iJaack/evalanche/pkg/types"
)

func TestAtomicGas(t *testing.T) {
	if got := AtomicGas(300, 2); got != 300+2000+10000 {
		t.Errorf("AtomicGas(300, 2) = %d, want 12300", got)
	}
}

func TestAtomicFee(t *testing.T) {
	tests := []struct {
		name    string
		gas     uint64
		baseFee *big.Int
		want    uint64
	}{
		{"exact", 10000, big.NewInt(25_000_000_000), 250_000},
		{"rounds up", 1, big.NewInt(1), 1},
		{"rounds up partial", 3, big.NewInt(500_000_000), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AtomicFee(tt.gas, tt.baseFee)
			if err != nil {
				t.Fatalf("AtomicFee() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("AtomicFee() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAtomicFee_NoBaseFee(t *testing.T) {
	if _, err := AtomicFee(1, nil); !errors.Is(err, ErrNoBaseFee) {
		t.Errorf("AtomicFee(nil) error = %v, want ErrNoBaseFee", err)
	}
	if _, err := AtomicFee(1, big.NewInt(0)); !errors.Is(err, ErrNoBaseFee) {
		t.Errorf("AtomicFee(0) error = %v, want ErrNoBaseFee", err)
	}
}

func TestEstimateAtomicFee_MatchesSigned(t *testing.T) {
	key := testKey(t)
	imp := &EVMImportTx{
		NetworkID:    types.FujiID,
		BlockchainID: testID(1),
		SourceChain:  testID(2),
		ImportedIns:  []TransferableInput{testUTXO(5, 0, 100, key.ShortID()).Input(0)},
		Outs:         []EVMOutput{{Address: key.EVMAddress(), Amount: 90, AssetID: testID(0xAA)}},
	}
	baseFee := big.NewInt(25_000_000_000)

	est, err := EstimateAtomicFee(imp, baseFee)
	if err != nil {
		t.Fatalf("EstimateAtomicFee() error: %v", err)
	}
	signed, err := Sign(imp, key)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	actual, err := AtomicFee(AtomicGas(len(signed.Bytes()), len(signed.Creds)), baseFee)
	if err != nil {
		t.Fatalf("AtomicFee() error: %v", err)
	}
	if est != actual {
		t.Errorf("estimate %d != signed fee %d", est, actual)
	}
}
