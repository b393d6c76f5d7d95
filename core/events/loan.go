package events

import (
	"fmt"
	"math/big"

	"lienchain/core/types"
	"lienchain/crypto"
)

const (
	// TypeLoanCreated is emitted for every collateral asset registered by a borrow.
	TypeLoanCreated = "loan.created"
	// TypeLoanRepaid is emitted when a loan is repaid and its collateral released.
	TypeLoanRepaid = "loan.repaid"
	// TypeLoanClawedBack is emitted when an expired loan is seized by the liquidator.
	TypeLoanClawedBack = "loan.clawed_back"
)

type LoanCreated struct {
	AssetID   uint64
	Borrower  [20]byte
	Principal *big.Int
	RateWei   *big.Int
	StartTime int64
}

func (LoanCreated) EventType() string { return TypeLoanCreated }

func (e LoanCreated) Event() *types.Event {
	principal := big.NewInt(0)
	if e.Principal != nil {
		principal = new(big.Int).Set(e.Principal)
	}
	rate := big.NewInt(0)
	if e.RateWei != nil {
		rate = new(big.Int).Set(e.RateWei)
	}
	return &types.Event{
		Type: TypeLoanCreated,
		Attributes: map[string]string{
			"assetId":   fmt.Sprintf("%d", e.AssetID),
			"borrower":  crypto.NewAddress(crypto.LienPrefix, e.Borrower[:]).String(),
			"principal": principal.String(),
			"rate":      rate.String(),
			"startTime": fmt.Sprintf("%d", e.StartTime),
		},
	}
}

type LoanRepaid struct {
	AssetID  uint64
	Holder   [20]byte
	Owed     *big.Int
	LateFees *big.Int
}

func (LoanRepaid) EventType() string { return TypeLoanRepaid }

func (e LoanRepaid) Event() *types.Event {
	owed := big.NewInt(0)
	if e.Owed != nil {
		owed = new(big.Int).Set(e.Owed)
	}
	late := big.NewInt(0)
	if e.LateFees != nil {
		late = new(big.Int).Set(e.LateFees)
	}
	return &types.Event{
		Type: TypeLoanRepaid,
		Attributes: map[string]string{
			"assetId":  fmt.Sprintf("%d", e.AssetID),
			"holder":   crypto.NewAddress(crypto.LienPrefix, e.Holder[:]).String(),
			"owed":     owed.String(),
			"lateFees": late.String(),
		},
	}
}

type LoanClawedBack struct {
	AssetID    uint64
	Liquidator [20]byte
	Principal  *big.Int
}

func (LoanClawedBack) EventType() string { return TypeLoanClawedBack }

func (e LoanClawedBack) Event() *types.Event {
	principal := big.NewInt(0)
	if e.Principal != nil {
		principal = new(big.Int).Set(e.Principal)
	}
	return &types.Event{
		Type: TypeLoanClawedBack,
		Attributes: map[string]string{
			"assetId":    fmt.Sprintf("%d", e.AssetID),
			"liquidator": crypto.NewAddress(crypto.LienPrefix, e.Liquidator[:]).String(),
			"principal":  principal.String(),
		},
	}
}
