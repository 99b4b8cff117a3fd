// Package units converts IBT amounts between display decimals and each
// chain's smallest unit.
package units

import (
	"fmt"
	"math/big"
	"strings"
)

const (
	// EthereumDecimals is the ERC20 precision of IBT on Ethereum
	EthereumDecimals = 18
	// SuiDecimals is the coin precision of IBT on Sui
	SuiDecimals = 9
)

var (
	// WeiPerToken is 10^18
	WeiPerToken = pow10(EthereumDecimals)
	// MistPerToken is 10^9
	MistPerToken = pow10(SuiDecimals)
	// WeiPerMist is the factor between the two smallest units
	WeiPerMist = pow10(EthereumDecimals - SuiDecimals)

	maxUint64 = new(big.Int).SetUint64(^uint64(0))
)

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// ParseAmount converts a decimal token amount ("1.5") into 18-decimal smallest
// units. The conversion is exact; more than 18 fractional digits is an error.
func ParseAmount(amount string) (*big.Int, error) {
	return parseDecimal(amount, EthereumDecimals)
}

// ParseSuiAmount converts a decimal token amount into 9-decimal smallest units
func ParseSuiAmount(amount string) (uint64, error) {
	v, err := parseDecimal(amount, SuiDecimals)
	if err != nil {
		return 0, err
	}
	if v.Cmp(maxUint64) > 0 {
		return 0, fmt.Errorf("amount %s exceeds the Sui u64 range", amount)
	}
	return v.Uint64(), nil
}

func parseDecimal(amount string, decimals int) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}

	whole, frac, _ := strings.Cut(amount, ".")
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("invalid amount format: %s", amount)
	}
	if !isDigits(whole) || !isDigits(frac) {
		return nil, fmt.Errorf("invalid amount format: %s", amount)
	}
	if len(frac) > decimals {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", amount, decimals)
	}

	digits := whole + frac + strings.Repeat("0", decimals-len(frac))
	result, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount format: %s", amount)
	}
	return result, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ToSui converts 18-decimal units to 9-decimal units, truncating toward zero.
// The remainder is returned so callers can report what was dropped.
func ToSui(wei *big.Int) (mist uint64, remainder *big.Int, err error) {
	if wei.Sign() < 0 {
		return 0, nil, fmt.Errorf("negative amount: %s", wei)
	}
	q, r := new(big.Int).QuoRem(wei, WeiPerMist, new(big.Int))
	if q.Cmp(maxUint64) > 0 {
		return 0, nil, fmt.Errorf("amount %s exceeds the Sui u64 range", Format(wei, EthereumDecimals))
	}
	return q.Uint64(), r, nil
}

// FromSui converts 9-decimal units to 18-decimal units
func FromSui(mist uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(mist), WeiPerMist)
}

// Format renders smallest units as a decimal string with trailing zeros trimmed
func Format(v *big.Int, decimals int) string {
	if v == nil {
		return "0"
	}
	neg := v.Sign() < 0
	s := new(big.Int).Abs(v).String()
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	whole, frac := s[:len(s)-decimals], strings.TrimRight(s[len(s)-decimals:], "0")
	out := whole
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

// FormatWei renders an Ethereum balance in token units
func FormatWei(wei *big.Int) string {
	return Format(wei, EthereumDecimals)
}

// FormatMist renders a Sui balance in token units
func FormatMist(mist uint64) string {
	return Format(new(big.Int).SetUint64(mist), SuiDecimals)
}
