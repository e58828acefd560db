package fixed

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
)

// fracScale is 10^12 / 4096: one raw unit is exactly fracScale * 10^-12.
const (
	fracDigits       = 12
	fracScale uint64 = 244140625
)

// appendDecimal writes the exact decimal expansion of r. Every raw/4096 has
// at most twelve fractional digits, so no rounding happens.
func appendDecimal(dst []byte, r Real) []byte {
	mag := uint64(r.raw)
	if r.raw < 0 {
		dst = append(dst, '-')
		mag = -mag
	}
	dst = strconv.AppendUint(dst, mag>>Shift, 10)
	frac := (mag & uint64(oneRaw-1)) * fracScale
	if frac == 0 {
		return dst
	}
	digits := strconv.AppendUint(make([]byte, 0, fracDigits), frac, 10)
	dst = append(dst, '.')
	for i := len(digits); i < fracDigits; i++ {
		dst = append(dst, '0')
	}
	end := len(digits)
	for digits[end-1] == '0' {
		end--
	}
	return append(dst, digits[:end]...)
}

// MarshalJSON writes the exact decimal value as a JSON number.
func (r Real) MarshalJSON() ([]byte, error) {
	return appendDecimal(nil, r), nil
}

// UnmarshalJSON reads a JSON number exactly, rounding half to even to the
// nearest raw unit. Numbers outside the raw range fail with ErrOverflow.
func (r *Real) UnmarshalJSON(b []byte) error {
	v, err := parseDecimal(b)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Numbers whose magnitude is at least 10^maxIntDigits cannot fit; those
// below 10^-minFracDigits round to zero.
const (
	maxIntDigits  = 20
	minFracDigits = 20
)

func parseDecimal(b []byte) (Real, error) {
	bad := func() (Real, error) { return Zero, fmt.Errorf("fixed: expected number, got %q", b) }

	s := string(b)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}

	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	intPart := s[:i]
	if intPart == "" {
		return bad()
	}
	s = s[i:]

	var fracPart string
	if len(s) > 0 && s[0] == '.' {
		i = 1
		for i < len(s) && isDigit(s[i]) {
			i++
		}
		fracPart = s[1:i]
		if fracPart == "" {
			return bad()
		}
		s = s[i:]
	}

	exp := 0
	if len(s) > 0 && (s[0] == 'e' || s[0] == 'E') {
		e, err := strconv.ParseInt(s[1:], 10, 32)
		if err != nil {
			var numErr *strconv.NumError
			if !errors.As(err, &numErr) || numErr.Err != strconv.ErrRange {
				return bad()
			}
		}
		if !isDigit(s[len(s)-1]) {
			return bad()
		}
		exp = int(e)
		s = ""
	}
	if s != "" {
		return bad()
	}

	// value = digits * 10^exp10
	digits := intPart + fracPart
	for len(digits) > 1 && digits[0] == '0' {
		digits = digits[1:]
	}
	if digits == "0" {
		return Zero, nil
	}
	exp10 := exp - len(fracPart)
	if exp10+len(digits) > maxIntDigits {
		return Zero, fmt.Errorf("fixed: %s: %w", b, ErrOverflow)
	}
	if exp10+len(digits) < -minFracDigits {
		return Zero, nil
	}

	num, _ := new(big.Int).SetString(digits, 10)
	num.Lsh(num, Shift)
	den := big.NewInt(1)
	ten := big.NewInt(10)
	if exp10 > 0 {
		num.Mul(num, new(big.Int).Exp(ten, big.NewInt(int64(exp10)), nil))
	} else if exp10 < 0 {
		den.Exp(ten, big.NewInt(int64(-exp10)), nil)
	}

	q, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	switch rem.Lsh(rem, 1).Cmp(den) {
	case 1:
		q.Add(q, big.NewInt(1))
	case 0:
		if q.Bit(0) == 1 {
			q.Add(q, big.NewInt(1))
		}
	}
	if neg {
		q.Neg(q)
	}
	if !q.IsInt64() {
		return Zero, fmt.Errorf("fixed: %s: %w", b, ErrOverflow)
	}
	return Real{q.Int64()}, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
