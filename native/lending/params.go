package lending

import "math/big"

// InterestParams groups the owner-controlled knobs shaping the per-second
// borrow rate and the advance rate on collateral value.
type InterestParams struct {
	// MinInterestPerSecond is the floor rate charged regardless of
	// utilization, scaled by 1e18.
	MinInterestPerSecond *big.Int
	// MaxVariablePerSecond is the utilization-driven component at full
	// utilization, scaled by 1e18 per wei of liquidity.
	MaxVariablePerSecond *big.Int
	// LoanToValueBps is the fraction of attested collateral value disbursed
	// as principal, expressed in basis points.
	LoanToValueBps uint64
}

// Clone returns a deep copy of the interest parameters.
func (p InterestParams) Clone() InterestParams {
	clone := InterestParams{LoanToValueBps: p.LoanToValueBps}
	if p.MinInterestPerSecond != nil {
		clone.MinInterestPerSecond = new(big.Int).Set(p.MinInterestPerSecond)
	}
	if p.MaxVariablePerSecond != nil {
		clone.MaxVariablePerSecond = new(big.Int).Set(p.MaxVariablePerSecond)
	}
	return clone
}
