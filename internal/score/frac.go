package score

import "math/big"

// Frac is a rational duration, a fraction of one base note, backed by
// big.Rat so accumulated beat durations never drift from rounding error.
type Frac struct {
	r big.Rat
}

// NewFrac builds a Frac equal to num/den.
func NewFrac(num, den int64) Frac {
	var f Frac
	f.r.SetFrac64(num, den)
	return f
}

// Zero is the additive identity.
func Zero() Frac { return Frac{} }

// One is a whole base note.
func One() Frac { return NewFrac(1, 1) }

// Add returns a+b.
func (a Frac) Add(b Frac) Frac {
	var out Frac
	out.r.Add(&a.r, &b.r)
	return out
}

// Mul returns a*b.
func (a Frac) Mul(b Frac) Frac {
	var out Frac
	out.r.Mul(&a.r, &b.r)
	return out
}

// MulInt returns a*n.
func (a Frac) MulInt(n int64) Frac {
	return a.Mul(NewFrac(n, 1))
}

// Cmp returns -1, 0, +1 as a compares less than, equal to, or greater than b.
func (a Frac) Cmp(b Frac) int {
	return a.r.Cmp(&b.r)
}

// IsZero reports whether the fraction is exactly zero.
func (a Frac) IsZero() bool {
	return a.r.Sign() == 0
}

// Ticks converts the fraction to an integer tick count, given how many
// ticks make up one base note (PPQ * 4 / denominator-of-base-note, supplied
// by the caller as baseNoteTicks).
func (a Frac) Ticks(baseNoteTicks int) int {
	scaled := new(big.Rat).Mul(&a.r, big.NewRat(int64(baseNoteTicks), 1))
	num := scaled.Num()
	den := scaled.Denom()
	q := new(big.Int).Quo(num, den)
	rem := new(big.Int).Mod(num, den)
	// round half up
	if new(big.Int).Mul(rem, big.NewInt(2)).Cmp(den) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	return int(q.Int64())
}

// Int rounds the fraction to the nearest integer (half rounds up), used to
// turn a repetition-count formula into a concrete note count.
func (a Frac) Int() int {
	num := a.r.Num()
	den := a.r.Denom()
	q := new(big.Int).Quo(num, den)
	rem := new(big.Int).Mod(num, den)
	if new(big.Int).Mul(rem, big.NewInt(2)).Cmp(den) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	return int(q.Int64())
}

// String renders the fraction as "num/den".
func (a Frac) String() string {
	return a.r.RatString()
}
