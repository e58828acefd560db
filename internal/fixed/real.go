// Package fixed provides a deterministic Q12 fixed-point number.
//
// Every operation works on the raw integer only, so two machines given the
// same inputs produce the same bit patterns regardless of CPU or FPU mode.
// Plain operators wrap at 64 bits; the *Checked variants report overflow.
package fixed

import (
	"errors"
	"math"
	"math/bits"
)

// Q12 format constants
const (
	Shift        = 12
	oneRaw int64 = 1 << Shift
)

var (
	// ErrOverflow is returned when a result does not fit in 64 bits.
	ErrOverflow = errors.New("fixed: arithmetic overflow")
	// ErrNegative is returned by Sqrt for negative input.
	ErrNegative = errors.New("fixed: negative input")
	// ErrDomain is returned by Asin for input outside [-1, 1].
	ErrDomain = errors.New("fixed: input outside function domain")
	// ErrDivideByZero is returned by functions that would divide by a zero result.
	ErrDivideByZero = errors.New("fixed: division by zero")
)

// Real is a value scaled by 2^Shift. The zero value is 0.
type Real struct {
	raw int64
}

var (
	Zero   = Real{}
	One    = Real{oneRaw}
	Half   = Real{oneRaw >> 1}
	Pi     = Real{12868}
	TwoPi  = Real{25736}
	HalfPi = Real{6434}
)

// --- Construction ---

// FromRaw wraps an already scaled value.
func FromRaw(raw int64) Real { return Real{raw} }

// FromInt converts a whole number.
func FromInt(n int64) Real { return Real{n << Shift} }

// FromFloat converts a float, rounding half to even, and panics when f has
// no raw representation. Only use it for constants; simulation code must
// stay in fixed point.
func FromFloat(f float64) Real {
	r, err := FromFloatChecked(f)
	if err != nil {
		panic(err)
	}
	return r
}

// FromFloatChecked converts a float, rounding half to even. NaN, infinities
// and values outside the raw range fail with ErrOverflow.
func FromFloatChecked(f float64) (Real, error) {
	const limit = 1 << 63
	v := math.RoundToEven(f * float64(oneRaw))
	if math.IsNaN(v) || v < -limit || v >= limit {
		return Zero, ErrOverflow
	}
	return Real{int64(v)}, nil
}

// FromParts builds pre.post where post is in thousandths: FromParts(1, 500) is 1.5,
// FromParts(1, 5) is 1.005.
func FromParts(pre, post int64) Real {
	r := FromInt(pre)
	if post != 0 {
		r.raw += FromInt(post).Div(FromInt(1000)).raw
	}
	return r
}

// FromDecimal builds before.after where after has the given number of
// decimal digits: FromDecimal(1, 5, 4) is 1.0005.
func FromDecimal(before int64, after int64, digits int) Real {
	sign := int64(1)
	if before < 0 {
		sign = -1
	}
	pow := int64(1)
	for i := 0; i < digits; i++ {
		pow *= 10
	}
	frac := Real{oneRaw * after * sign}.Div(FromInt(pow))
	return Real{frac.raw + oneRaw*before}
}

// --- Conversion ---

func (r Real) Raw() int64 { return r.raw }

// Int truncates toward negative infinity.
func (r Real) Int() int64 { return r.raw >> Shift }

func (r Real) Float64() float64 { return float64(r.raw) / float64(oneRaw) }

func (r Real) Float32() float32 { return float32(r.raw) / float32(oneRaw) }

// String returns the exact decimal value.
func (r Real) String() string { return string(appendDecimal(nil, r)) }

// --- Arithmetic ---

func (r Real) Add(o Real) Real { return Real{r.raw + o.raw} }

func (r Real) Sub(o Real) Real { return Real{r.raw - o.raw} }

func (r Real) Mul(o Real) Real { return Real{(r.raw * o.raw) >> Shift} }

// Div panics when o is zero. Callers guard.
func (r Real) Div(o Real) Real { return Real{(r.raw << Shift) / o.raw} }

// Mod panics when o is zero.
func (r Real) Mod(o Real) Real { return Real{r.raw % o.raw} }

func (r Real) Neg() Real { return Real{-r.raw} }

func (r Real) Shl(n uint) Real { return Real{r.raw << n} }

func (r Real) Shr(n uint) Real { return Real{r.raw >> n} }

// AddChecked adds and reports overflow instead of wrapping.
func (r Real) AddChecked(o Real) (Real, error) {
	s := r.raw + o.raw
	if (s > r.raw) != (o.raw > 0) {
		return Zero, ErrOverflow
	}
	return Real{s}, nil
}

// SubChecked subtracts and reports overflow instead of wrapping.
func (r Real) SubChecked(o Real) (Real, error) {
	d := r.raw - o.raw
	if (d < r.raw) != (o.raw > 0) {
		return Zero, ErrOverflow
	}
	return Real{d}, nil
}

// MulChecked multiplies and reports overflow instead of wrapping. For
// results that fit, it matches Mul bit for bit.
func (r Real) MulChecked(o Real) (Real, error) {
	if r.raw == 0 || o.raw == 0 {
		return Zero, nil
	}
	hi, lo := bits.Mul64(uabs(r.raw), uabs(o.raw))
	if hi != 0 || lo > math.MaxInt64 {
		return Zero, ErrOverflow
	}
	return r.Mul(o), nil
}

func uabs(v int64) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}

// --- Rounding ---

func (r Real) Abs() Real {
	if r.raw < 0 {
		return Real{-r.raw}
	}
	return r
}

func (r Real) Floor() Real { return Real{(r.raw >> Shift) << Shift} }

func (r Real) Ceil() Real {
	f := r.Floor()
	if f.raw == r.raw {
		return r
	}
	return Real{f.raw + oneRaw}
}

// --- Comparison ---

// Cmp returns -1, 0 or +1.
func (r Real) Cmp(o Real) int {
	switch {
	case r.raw < o.raw:
		return -1
	case r.raw > o.raw:
		return 1
	}
	return 0
}

func (r Real) Less(o Real) bool      { return r.raw < o.raw }
func (r Real) LessEq(o Real) bool    { return r.raw <= o.raw }
func (r Real) Greater(o Real) bool   { return r.raw > o.raw }
func (r Real) GreaterEq(o Real) bool { return r.raw >= o.raw }
func (r Real) IsZero() bool          { return r.raw == 0 }

// Sign returns -1, 0 or +1.
func (r Real) Sign() int { return r.Cmp(Zero) }

func Min(a, b Real) Real {
	if a.raw < b.raw {
		return a
	}
	return b
}

func Max(a, b Real) Real {
	if a.raw > b.raw {
		return a
	}
	return b
}
