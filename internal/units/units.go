// Package units converts between integer smallest-unit quantities and
// human-readable decimal strings.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// NativeDecimals is the decimal exponent of the native coin on all
// supported networks (wei per coin = 10^18).
const NativeDecimals = 18

// ErrInvalidAmount is returned when a decimal string cannot be parsed
// or is negative.
var ErrInvalidAmount = errors.New("invalid amount")

// Parse converts a decimal string to its integer smallest-unit value
// at the given decimal exponent. Fractional digits beyond the exponent
// are truncated, never rounded, so the result is never larger than the
// exact amount given.
func Parse(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	if len(frac) > decimals {
		frac = frac[:decimals]
	}
	frac += strings.Repeat("0", decimals-len(frac))

	v, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return v, nil
}

// Format converts an integer smallest-unit value to a decimal string at
// the given decimal exponent, rounding half to even at maxFrac
// fractional digits and trimming trailing zeros. No grouping separators
// are emitted. Display is the one place rounding is allowed; Parse
// stays truncating so a submitted amount never exceeds what was typed.
func Format(v *big.Int, decimals, maxFrac int) string {
	if v == nil || v.Sign() == 0 {
		return "0"
	}

	neg := v.Sign() < 0
	abs := new(big.Int).Abs(v)
	if maxFrac < decimals {
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals-maxFrac)), nil)
		rem := new(big.Int)
		abs.QuoRem(abs, scale, rem)
		rem.Lsh(rem, 1)
		if c := rem.Cmp(scale); c > 0 || (c == 0 && abs.Bit(0) == 1) {
			abs.Add(abs, big.NewInt(1))
		}
		decimals = maxFrac
	}
	if abs.Sign() == 0 {
		return "0"
	}

	s := abs.String()
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}

	whole := s[:len(s)-decimals]
	frac := strings.TrimRight(s[len(s)-decimals:], "0")

	out := whole
	if frac != "" {
		out = whole + "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

// FormatString is Format for values arriving as integer decimal strings
// (the explorer wire format). Unparseable input formats as "0".
func FormatString(s string, decimals, maxFrac int) string {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return "0"
	}
	return Format(v, decimals, maxFrac)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
