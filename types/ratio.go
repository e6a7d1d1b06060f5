package types

import (
	"fmt"
	"math/bits"
)

// Ratio is an exact rational rate, used for the token reward minted
// per unit contributed.
type Ratio struct {
	Numerator   uint64 `cramberry:"1"`
	Denominator uint64 `cramberry:"2"`
}

// OneToOne mints one reward token per unit contributed.
var OneToOne = Ratio{Numerator: 1, Denominator: 1}

// Validate checks that the ratio can be applied.
func (r Ratio) Validate() error {
	if r.Denominator == 0 {
		return fmt.Errorf("ratio %d/%d: zero denominator", r.Numerator, r.Denominator)
	}
	return nil
}

// Apply returns floor(v * Numerator / Denominator). ok is false when
// the result does not fit in an Amount or the ratio is invalid.
func (r Ratio) Apply(v Amount) (result Amount, ok bool) {
	if r.Denominator == 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(uint64(v), r.Numerator)
	if hi >= r.Denominator {
		return 0, false
	}
	q, _ := bits.Div64(hi, lo, r.Denominator)
	return Amount(q), true
}

func (r Ratio) String() string {
	return fmt.Sprintf("%d/%d", r.Numerator, r.Denominator)
}
