package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
)

// Denominations. UTXO ledgers and atomic transactions count in nAVAX
// (9 decimals); the EVM ledger counts in wei (18 decimals).
const (
	NanoDecimals = 9
	WeiDecimals  = 18

	NanoAVAX uint64 = 1
	AVAX     uint64 = 1_000_000_000 * NanoAVAX

	// WeiPerNano converts nAVAX to wei.
	WeiPerNano uint64 = 1_000_000_000
)

// FormatNano renders nAVAX as a decimal AVAX string with trailing zeros trimmed.
func FormatNano(units uint64) string {
	whole := units / AVAX
	frac := units % AVAX
	return trimDecimal(fmt.Sprintf("%d.%09d", whole, frac))
}

// FormatWei renders wei as a decimal AVAX string with trailing zeros trimmed.
func FormatWei(wei *uint256.Int) string {
	if wei == nil {
		return "0"
	}
	s := wei.Dec()
	if len(s) <= WeiDecimals {
		s = strings.Repeat("0", WeiDecimals-len(s)+1) + s
	}
	return trimDecimal(s[:len(s)-WeiDecimals] + "." + s[len(s)-WeiDecimals:])
}

func trimDecimal(s string) string {
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// ParseNano converts a decimal AVAX string to nAVAX.
func ParseNano(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("negative amount")
	}

	parts := strings.SplitN(s, ".", 2)

	whole, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid whole part: %w", err)
	}

	var frac uint64
	if len(parts) == 2 {
		fracStr := parts[1]
		if len(fracStr) > NanoDecimals {
			return 0, fmt.Errorf("too many decimal places (max %d)", NanoDecimals)
		}
		fracStr = fracStr + strings.Repeat("0", NanoDecimals-len(fracStr))
		frac, err = strconv.ParseUint(fracStr, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid fractional part: %w", err)
		}
	}

	if whole > math.MaxUint64/AVAX {
		return 0, fmt.Errorf("amount too large")
	}
	result := whole * AVAX
	if result > math.MaxUint64-frac {
		return 0, fmt.Errorf("amount too large")
	}
	return result + frac, nil
}

// NanoToWei scales nAVAX to wei.
func NanoToWei(units uint64) *uint256.Int {
	v := uint256.NewInt(units)
	return v.Mul(v, uint256.NewInt(WeiPerNano))
}

// WeiToNano scales wei down to nAVAX, truncating sub-nAVAX dust.
// The second return is false if the result does not fit in a uint64.
func WeiToNano(wei *uint256.Int) (uint64, bool) {
	q := new(uint256.Int).Div(wei, uint256.NewInt(WeiPerNano))
	if !q.IsUint64() {
		return 0, false
	}
	return q.Uint64(), true
}
