package lending

import "math/big"

// Loan records an active collateralized position. Amounts are denominated in
// wei; the interest rate is a per-second rate scaled by 1e18. A loan exists
// only between borrow and repay/claw-back, its record is deleted on exit.
type Loan struct {
	// AssetID identifies the collateral asset backing the loan.
	AssetID uint64
	// Holder is the account entitled to repay and reclaim the collateral.
	Holder [20]byte
	// Principal is the disbursed amount owed excluding interest.
	Principal *big.Int
	// InterestPerSecond is the agreed per-second rate scaled by 1e18.
	InterestPerSecond *big.Int
	// StartTime is the origination timestamp.
	StartTime int64
}

// Clone returns a deep copy of the loan so callers can safely mutate the copy
// without affecting the stored instance.
func (l *Loan) Clone() *Loan {
	if l == nil {
		return nil
	}
	clone := *l
	if l.Principal != nil {
		clone.Principal = new(big.Int).Set(l.Principal)
	} else {
		clone.Principal = big.NewInt(0)
	}
	if l.InterestPerSecond != nil {
		clone.InterestPerSecond = new(big.Int).Set(l.InterestPerSecond)
	} else {
		clone.InterestPerSecond = big.NewInt(0)
	}
	return &clone
}

// Book captures the pool-wide accounting shared by all loans: the aggregate
// outstanding principal and the rolling daily-borrow window used for rate
// limiting.
type Book struct {
	// TotalBorrowed is the outstanding principal across all active loans.
	TotalBorrowed *big.Int
	// WindowAmount is the current value of the daily-borrow window. It is
	// decayed linearly on every borrow and partially refunded on early
	// repayment, and stays strictly below the configured cap.
	WindowAmount *big.Int
	// WindowUpdated records when the window was last decayed.
	WindowUpdated int64
}

// Clone returns a deep copy of the book.
func (b *Book) Clone() *Book {
	if b == nil {
		return nil
	}
	clone := &Book{WindowUpdated: b.WindowUpdated}
	if b.TotalBorrowed != nil {
		clone.TotalBorrowed = new(big.Int).Set(b.TotalBorrowed)
	}
	if b.WindowAmount != nil {
		clone.WindowAmount = new(big.Int).Set(b.WindowAmount)
	}
	return clone
}
