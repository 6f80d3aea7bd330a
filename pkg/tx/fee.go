package tx

import (
	"errors"
	"math/big"
)

// Gas schedule for atomic transactions on the C ledger.
const (
	TxBytesGas  uint64 = 1
	CostPerSig  uint64 = 1000
	FixedFeeGas uint64 = 10000
	weiPerNAVAX        = 1_000_000_000
)

// ErrNoBaseFee is returned when a fee is requested without a base fee.
var ErrNoBaseFee = errors.New("base fee unavailable")

// AtomicGas returns the gas consumed by an atomic transaction of txLen
// signed bytes carrying numSigs signatures.
func AtomicGas(txLen, numSigs int) uint64 {
	return uint64(txLen)*TxBytesGas + uint64(numSigs)*CostPerSig + FixedFeeGas
}

// AtomicFee converts gas at baseFee (wei per gas) into a fee in nAVAX,
// rounding up.
func AtomicFee(gas uint64, baseFee *big.Int) (uint64, error) {
	if baseFee == nil || baseFee.Sign() <= 0 {
		return 0, ErrNoBaseFee
	}
	wei := new(big.Int).Mul(new(big.Int).SetUint64(gas), baseFee)
	nano, rem := new(big.Int).QuoRem(wei, big.NewInt(weiPerNAVAX), new(big.Int))
	if rem.Sign() != 0 {
		nano.Add(nano, big.NewInt(1))
	}
	if !nano.IsUint64() {
		return 0, errors.New("fee overflows uint64")
	}
	return nano.Uint64(), nil
}

// EstimateAtomicFee returns the fee u will owe once it carries one
// signature per credential.
func EstimateAtomicFee(u UnsignedTx, baseFee *big.Int) (uint64, error) {
	size := len(unsignedBytes(u)) + credentialsLen(u.NumCredentials())
	return AtomicFee(AtomicGas(size, u.NumCredentials()), baseFee)
}

// credentialsLen is the encoded size of n single-signature credentials.
func credentialsLen(n int) int {
	const perCred = 4 + 4 + 65
	return 4 + n*perCred
}
