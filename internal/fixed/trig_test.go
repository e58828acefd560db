package fixed

import (
	"errors"
	"testing"
)

// degrees converts whole degrees to a raw angle without touching floats
func degrees(d int64) Real {
	return FromRaw(d * TwoPi.Raw() / 360)
}

func TestSqrt(t *testing.T) {
	tests := []struct {
		name string
		in   Real
		want Real
	}{
		{"zero", Zero, Zero},
		{"one", One, One},
		{"four", FromInt(4), FromInt(2)},
		{"hundred", FromInt(100), FromInt(10)},
		{"large", FromInt(10000), FromInt(100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sqrt(tt.in)
			if err != nil {
				t.Fatalf("Sqrt(%s) failed: %v", tt.in, err)
			}
			if diff := got.Sub(tt.want).Abs().Raw(); diff > 1 {
				t.Errorf("Sqrt(%s) = %s (raw %d), want %s", tt.in, got, got.Raw(), tt.want)
			}
		})
	}
}

func TestSqrtExactValues(t *testing.T) {
	if got, _ := Sqrt(Zero); got != Zero {
		t.Errorf("Sqrt(0) = %s, want 0", got)
	}
	if got, _ := Sqrt(One); got != One {
		t.Errorf("Sqrt(1) = %s, want exactly 1", got)
	}
}

func TestSqrtNegative(t *testing.T) {
	if _, err := Sqrt(FromInt(-1)); !errors.Is(err, ErrNegative) {
		t.Errorf("Expected ErrNegative, got %v", err)
	}
}

// TestSqrtIsDeterministic pins a few raw outputs so a change to the
// iteration heuristic is caught
func TestSqrtIsDeterministic(t *testing.T) {
	got, err := Sqrt(FromRaw(2048))
	if err != nil {
		t.Fatal(err)
	}
	if got.Raw() != 2896 {
		t.Errorf("Sqrt(0.5) raw = %d, want 2896", got.Raw())
	}
}

// TestPythagoreanIdentity checks sin^2 + cos^2 ≈ 1 for every whole degree
func TestPythagoreanIdentity(t *testing.T) {
	const tolerance = 64 // 1.5% of One

	for d := int64(0); d <= 360; d++ {
		x := degrees(d)
		s, c := Sin(x), Cos(x)
		sum := s.Mul(s).Add(c.Mul(c))
		if diff := sum.Sub(One).Abs().Raw(); diff > tolerance {
			t.Errorf("%d°: sin²+cos² = %d, want %d ± %d", d, sum.Raw(), One.Raw(), tolerance)
		}
	}
}

func TestSinKnownAngles(t *testing.T) {
	tests := []struct {
		name string
		in   Real
		want int64
	}{
		{"zero", Zero, 0},
		{"half pi", HalfPi, 4096},
		{"pi", Pi, 0},
		{"three halves pi", Pi.Add(HalfPi), -4096},
		{"negative half pi", HalfPi.Neg(), -4096},
		{"two pi plus half pi", TwoPi.Add(HalfPi), 4096},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sin(tt.in)
			if diff := got.Raw() - tt.want; diff > 16 || diff < -16 {
				t.Errorf("Sin(%s) raw = %d, want ~%d", tt.in, got.Raw(), tt.want)
			}
		})
	}
}

// TestSinSymmetry verifies the quadrant folding mirrors the table
func TestSinSymmetry(t *testing.T) {
	for d := int64(1); d < 180; d += 7 {
		a := Sin(degrees(d))
		b := Sin(degrees(d).Neg())
		if diff := a.Add(b).Abs().Raw(); diff > 16 {
			t.Errorf("sin(%d°) = %d but sin(-%d°) = %d", d, a.Raw(), d, b.Raw())
		}
	}
}

// TestSinInterpolatesFirstQuadrant checks every raw angle in the first
// quadrant: results never decrease and fall between table entries
func TestSinInterpolatesFirstQuadrant(t *testing.T) {
	prev := Sin(Zero)
	distinct := 1
	for raw := int64(1); raw <= HalfPi.Raw(); raw++ {
		got := Sin(FromRaw(raw))
		if got.Less(prev) {
			t.Fatalf("Sin decreased at raw %d: %d after %d", raw, got.Raw(), prev.Raw())
		}
		if got != prev {
			distinct++
		}
		prev = got
	}
	// 91 table entries alone would give at most 91 values
	if distinct < 500 {
		t.Errorf("Expected interpolated values between table entries, got %d distinct", distinct)
	}
}

func TestTan(t *testing.T) {
	got, err := Tan(degrees(45))
	if err != nil {
		t.Fatal(err)
	}
	if diff := got.Sub(One).Abs().Raw(); diff > 64 {
		t.Errorf("tan(45°) = %s, want ~1", got)
	}
}

func TestAsin(t *testing.T) {
	tests := []struct {
		name string
		in   Real
		want Real
	}{
		{"zero", Zero, Zero},
		{"one", One, HalfPi},
		{"minus one", One.Neg(), HalfPi.Neg()},
		{"half", Half, FromRaw(2145)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Asin(tt.in)
			if err != nil {
				t.Fatalf("Asin(%s) failed: %v", tt.in, err)
			}
			if diff := got.Sub(tt.want).Abs().Raw(); diff > 8 {
				t.Errorf("Asin(%s) raw = %d, want ~%d", tt.in, got.Raw(), tt.want.Raw())
			}
		})
	}
}

func TestAsinOutOfDomain(t *testing.T) {
	for _, in := range []Real{One.Add(FromRaw(1)), FromInt(-2)} {
		if _, err := Asin(in); !errors.Is(err, ErrDomain) {
			t.Errorf("Asin(%s): expected ErrDomain, got %v", in, err)
		}
	}
}

func TestAtan2Quadrants(t *testing.T) {
	quarter := FromRaw(3217) // pi/4

	tests := []struct {
		name string
		y, x Real
		want Real
	}{
		{"origin", Zero, Zero, Zero},
		{"first", One, One, quarter},
		{"second", One, One.Neg(), Pi.Sub(quarter)},
		{"third", One.Neg(), One.Neg(), Pi.Sub(quarter).Neg()},
		{"fourth", One.Neg(), One, quarter.Neg()},
		{"positive y axis", One, Zero, HalfPi},
		{"negative y axis", One.Neg(), Zero, HalfPi.Neg()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Atan2(tt.y, tt.x)
			if err != nil {
				t.Fatalf("Atan2 failed: %v", err)
			}
			if diff := got.Sub(tt.want).Abs().Raw(); diff > 16 {
				t.Errorf("Atan2(%s, %s) raw = %d, want ~%d", tt.y, tt.x, got.Raw(), tt.want.Raw())
			}
		})
	}
}
