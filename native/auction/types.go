package auction

import "math/big"

// Phase tracks the lifecycle of a liquidation sale. The original design
// overloaded a single "active" boolean to mean closed; the explicit phase
// keeps the externally observed gating (no purchases after activation or a
// completed sale) without the ambiguity.
type Phase uint8

const (
	// PhaseScheduled marks a sale whose curve is fixed and that can still be
	// purchased within its time window.
	PhaseScheduled Phase = iota
	// PhaseSold marks a sale closed to purchases, either because it settled
	// or because the operator activated it.
	PhaseSold
)

// Valid reports whether the phase value is within the supported range.
func (p Phase) Valid() bool {
	switch p {
	case PhaseScheduled, PhaseSold:
		return true
	default:
		return false
	}
}

// Auction captures the fixed price curve and runtime phase of a liquidation
// sale for a single collateral asset. Prices are denominated in wei.
type Auction struct {
	AssetID    uint64
	StartPrice *big.Int
	EndPrice   *big.Int
	StartTime  int64
	EndTime    int64
	Phase      Phase
}

// Clone returns a deep copy of the auction so callers can safely mutate the
// copy without affecting the stored instance.
func (a *Auction) Clone() *Auction {
	if a == nil {
		return nil
	}
	clone := *a
	if a.StartPrice != nil {
		clone.StartPrice = new(big.Int).Set(a.StartPrice)
	} else {
		clone.StartPrice = big.NewInt(0)
	}
	if a.EndPrice != nil {
		clone.EndPrice = new(big.Int).Set(a.EndPrice)
	} else {
		clone.EndPrice = big.NewInt(0)
	}
	return &clone
}
