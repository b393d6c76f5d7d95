// Package curve implements the linear price/time relationship used by
// liquidation sales. All arithmetic is exact big.Int with divisions
// truncating toward zero, so callers must tolerate up to one unit of
// rounding error on round trips.
package curve

import "math/big"

// ValueAt evaluates the line through (t1, v1) and (t2, v2) at time t.
//
// The result is v1 + (v2-v1)*(t-t1)/(t2-t1) with a single truncating
// division. Values outside [t1, t2] extrapolate linearly; callers that need
// bounded prices must clamp. t1 == t2 is undefined and must not be passed.
func ValueAt(t, t1, t2 int64, v1, v2 *big.Int) *big.Int {
	num := new(big.Int).Sub(v2, v1)
	num.Mul(num, big.NewInt(t-t1))
	num.Quo(num, big.NewInt(t2-t1))
	return num.Add(num, v1)
}

// TimeAt inverts ValueAt: it returns the time at which the line through
// (t1, v1) and (t2, v2) reaches value v, truncating toward zero. v1 == v2
// is undefined and must not be passed.
func TimeAt(v *big.Int, t1, t2 int64, v1, v2 *big.Int) int64 {
	num := new(big.Int).Sub(v, v1)
	num.Mul(num, big.NewInt(t2-t1))
	num.Quo(num, new(big.Int).Sub(v2, v1))
	return t1 + num.Int64()
}

// Clamp bounds v to [lo, hi]. The returned value is a fresh big.Int.
func Clamp(v, lo, hi *big.Int) *big.Int {
	if v.Cmp(lo) < 0 {
		return new(big.Int).Set(lo)
	}
	if v.Cmp(hi) > 0 {
		return new(big.Int).Set(hi)
	}
	return new(big.Int).Set(v)
}
