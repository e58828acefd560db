package fixed

import "fmt"

// Sqrt iteration thresholds. These are tuned constants; changing them changes
// results and breaks replay compatibility with existing journals.
const (
	sqrtMediumThreshold = 0x64000  // 100.0
	sqrtLargeThreshold  = 0x3e8000 // 1000.0
)

// sinTable holds sin(d) * 4096 for whole degrees 0..90.
var sinTable = [91]int64{
	0, 71, 142, 214, 285, 357, 428, 499, 570, 641,
	711, 781, 851, 921, 990, 1060, 1128, 1197, 1265, 1333,
	1400, 1468, 1534, 1600, 1665, 1730, 1795, 1859, 1922, 1985,
	2048, 2109, 2170, 2230, 2290, 2349, 2407, 2464, 2521, 2577,
	2632, 2686, 2740, 2793, 2845, 2896, 2946, 2995, 3043, 3091,
	3137, 3183, 3227, 3271, 3313, 3355, 3395, 3434, 3473, 3510,
	3547, 3582, 3616, 3649, 3681, 3712, 3741, 3770, 3797, 3823,
	3849, 3872, 3895, 3917, 3937, 3956, 3974, 3991, 4006, 4020,
	4033, 4045, 4056, 4065, 4073, 4080, 4086, 4090, 4093, 4095,
	4096,
}

// cosOffset is the raw phase shift Cos applies before calling Sin.
const cosOffset = 6435

// Sqrt returns the square root of x using a fixed number of Newton-Raphson
// steps chosen from the magnitude of x.
func Sqrt(x Real) (Real, error) {
	iterations := 8
	if x.raw > sqrtMediumThreshold {
		iterations = 12
	}
	if x.raw > sqrtLargeThreshold {
		iterations = 16
	}
	return SqrtN(x, iterations)
}

// SqrtN runs exactly iterations Newton-Raphson steps.
func SqrtN(x Real, iterations int) (Real, error) {
	if x.raw < 0 {
		return Zero, fmt.Errorf("%w: sqrt(%s)", ErrNegative, x)
	}
	if x.raw == 0 {
		return Zero, nil
	}
	k := x.Add(One).Shr(1)
	for i := 0; i < iterations; i++ {
		if k.raw <= 0 {
			return Zero, fmt.Errorf("%w: sqrt(%s)", ErrOverflow, x)
		}
		k = k.Add(x.Div(k)).Shr(1)
	}
	if k.raw < 0 {
		return Zero, fmt.Errorf("%w: sqrt(%s)", ErrOverflow, x)
	}
	return k, nil
}

// Sin reads the quarter-wave table at tenth-of-a-degree resolution and
// interpolates linearly between whole degrees.
func Sin(x Real) Real {
	raw := x.raw
	if raw < 0 {
		raw %= TwoPi.raw
		if raw < 0 {
			raw += TwoPi.raw
		}
	}
	if raw > TwoPi.raw {
		raw %= TwoPi.raw
	}

	tenths := raw * 3600 / TwoPi.raw
	switch {
	case tenths <= 900:
		return sinLookup(tenths)
	case tenths <= 1800:
		return sinLookup(1800 - tenths)
	case tenths <= 2700:
		return sinLookup(tenths - 1800).Neg()
	default:
		return sinLookup(3600 - tenths).Neg()
	}
}

// sinLookup takes an angle in [0, 900] tenths of a degree.
func sinLookup(tenths int64) Real {
	deg, frac := tenths/10, tenths%10
	base := Real{sinTable[deg]}
	if frac == 0 || deg >= 90 {
		return base
	}
	step := Real{sinTable[deg+1]}.Sub(base)
	return base.Add(step.Div(Real{10}).Mul(Real{frac}))
}

func Cos(x Real) Real {
	return Sin(x.Add(Real{cosOffset}))
}

// Tan fails where the cosine lookup is exactly zero.
func Tan(x Real) (Real, error) {
	c := Cos(x)
	if c.raw == 0 {
		return Zero, fmt.Errorf("%w: tan(%s)", ErrDivideByZero, x)
	}
	return Sin(x).Div(c), nil
}

// Asin uses a fixed-coefficient polynomial valid on [-1, 1].
func Asin(x Real) (Real, error) {
	negative := x.raw < 0
	x = x.Abs()
	if x.raw < 0 || x.Greater(One) {
		return Zero, fmt.Errorf("%w: asin(%s)", ErrDomain, x)
	}

	poly := Real{145103 >> Shift}.Mul(x).
		Sub(Real{599880 >> Shift}).Mul(x).
		Add(Real{1420468 >> Shift}).Mul(x).
		Sub(Real{3592413 >> Shift}).Mul(x).
		Add(Real{26353447 >> Shift})

	root, err := Sqrt(One.Sub(x))
	if err != nil {
		return Zero, err
	}
	result := Pi.Div(FromInt(2)).Sub(root.Mul(poly))
	if negative {
		return result.Neg(), nil
	}
	return result, nil
}

func Atan(x Real) (Real, error) {
	sq, err := x.MulChecked(x)
	if err != nil {
		return Zero, err
	}
	sum, err := One.AddChecked(sq)
	if err != nil {
		return Zero, err
	}
	root, err := Sqrt(sum)
	if err != nil {
		return Zero, err
	}
	return Asin(x.Div(root))
}

// Atan2 returns the angle of (x, y). Atan2(0, 0) is 0.
func Atan2(y, x Real) (Real, error) {
	if x.raw == 0 && y.raw == 0 {
		return Zero, nil
	}

	switch {
	case x.raw > 0:
		return Atan(y.Div(x))
	case x.raw < 0:
		a, err := Atan(y.Div(x).Abs())
		if err != nil {
			return Zero, err
		}
		if y.raw >= 0 {
			return Pi.Sub(a), nil
		}
		return Pi.Sub(a).Neg(), nil
	}

	if y.raw >= 0 {
		return Pi.Div(FromInt(2)), nil
	}
	return Pi.Neg().Div(FromInt(2)), nil
}
