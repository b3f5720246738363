package generate

import (
	"math"
	"math/big"

	"github.com/foundrydata/foundrygen/schema"
)

// rationalMath aligns values to multipleOf exactly, with a bounded fallback
// when the rationals grow past the configured bit cap.
type rationalMath struct {
	opts RationalOptions
}

// lcm returns the least common multiple of two positive rationals:
// lcm(a/b, c/d) = lcm(a, c) / gcd(b, d).
func (rm rationalMath) lcm(x, y *big.Rat) *big.Rat {
	if x == nil {
		return y
	}
	if y == nil {
		return x
	}
	a, b := x.Num(), x.Denom()
	c, d := y.Num(), y.Denom()

	g := new(big.Int).GCD(nil, nil, a, c)
	num := new(big.Int).Mul(a, c)
	num.Quo(num, g)
	den := new(big.Int).GCD(nil, nil, b, d)
	return new(big.Rat).SetFrac(num, den)
}

func (rm rationalMath) tooBig(r *big.Rat) bool {
	return r.Num().BitLen() > rm.opts.MaxRatBits || r.Denom().BitLen() > rm.opts.MaxRatBits
}

// step returns the multipleOf to align with. When m exceeds the bit cap the
// decimal fallback rounds it to DecimalPrecision significant digits; the
// float fallback (or a decimal rounding that is still too big) reports
// exact=false and the caller aligns in float64.
func (rm rationalMath) step(m *big.Rat) (r *big.Rat, exact bool) {
	if m == nil || m.Sign() <= 0 {
		return nil, false
	}
	if !rm.tooBig(m) {
		return m, true
	}
	if rm.opts.Fallback == RationalFallbackDecimal {
		f, _ := m.Float64()
		rounded := roundSignificant(f, rm.opts.DecimalPrecision)
		if rounded > 0 {
			rr := schema.FloatRat(rounded)
			if !rm.tooBig(rr) {
				return rr, true
			}
		}
	}
	return m, false
}

// alignUp returns the smallest multiple of m that is >= v.
func (rm rationalMath) alignUp(v float64, m *big.Rat) float64 {
	r, exact := rm.step(m)
	if r == nil {
		return v
	}
	if !exact {
		f, _ := r.Float64()
		return math.Ceil(v/f) * f
	}
	k := ratCeil(new(big.Rat).Quo(schema.FloatRat(v), r))
	out, _ := new(big.Rat).Mul(new(big.Rat).SetInt(k), r).Float64()
	return out
}

// alignDown returns the largest multiple of m that is <= v.
func (rm rationalMath) alignDown(v float64, m *big.Rat) float64 {
	r, exact := rm.step(m)
	if r == nil {
		return v
	}
	if !exact {
		f, _ := r.Float64()
		return math.Floor(v/f) * f
	}
	k := ratFloor(new(big.Rat).Quo(schema.FloatRat(v), r))
	out, _ := new(big.Rat).Mul(new(big.Rat).SetInt(k), r).Float64()
	return out
}

// isMultiple reports whether v is an exact multiple of m.
func (rm rationalMath) isMultiple(v float64, m *big.Rat) bool {
	r, exact := rm.step(m)
	if r == nil {
		return true
	}
	if !exact {
		f, _ := r.Float64()
		q := v / f
		return math.Abs(q-math.Round(q)) < 1e-9
	}
	return new(big.Rat).Quo(schema.FloatRat(v), r).IsInt()
}

func ratFloor(r *big.Rat) *big.Int {
	q, _ := new(big.Int).DivMod(r.Num(), r.Denom(), new(big.Int))
	return q
}

func ratCeil(r *big.Rat) *big.Int {
	q, m := new(big.Int).DivMod(r.Num(), r.Denom(), new(big.Int))
	if m.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

func roundSignificant(f float64, digits int) float64 {
	if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	mag := math.Ceil(math.Log10(math.Abs(f)))
	scale := math.Pow(10, float64(digits)-mag)
	return math.Round(f*scale) / scale
}
