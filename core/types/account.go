package types

import "math/big"

// Account tracks the fungible balance used to disburse principal, collect
// repayments and settle auction proceeds. Balances are denominated in wei.
type Account struct {
	Nonce      uint64   `json:"nonce"`
	BalanceWei *big.Int `json:"balanceWei"`
}

// Clone returns a deep copy of the account so callers can stage mutations
// without touching the stored instance.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := &Account{Nonce: a.Nonce, BalanceWei: big.NewInt(0)}
	if a.BalanceWei != nil {
		clone.BalanceWei = new(big.Int).Set(a.BalanceWei)
	}
	return clone
}
