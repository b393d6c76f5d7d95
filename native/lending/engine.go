package lending

import (
	"errors"
	"math/big"
	"sync"
	"time"

	"lienchain/core/events"
	"lienchain/core/types"
	nativecommon "lienchain/native/common"
	"lienchain/native/oracle"
)

var (
	errNilState    = errors.New("lending engine: state not configured")
	errNilCustody  = errors.New("lending engine: custody not configured")
	errNilVerifier = errors.New("lending engine: price verifier not configured")
	errNoAssets    = errors.New("lending engine: at least one asset required")
	errDuplicate   = errors.New("lending engine: duplicate asset in batch")
	errLoanExists  = errors.New("lending engine: asset already collateralized")

	// ErrUnauthorized marks privileged calls from the wrong account.
	ErrUnauthorized = errors.New("lending engine: caller not authorized")
	// ErrNotOwner marks borrow/repay attempts against assets or loans the
	// caller does not hold.
	ErrNotOwner = errors.New("lending engine: caller does not hold asset")
	// ErrRateTooHigh rejects borrows whose computed rate exceeds the caller's
	// stated maximum.
	ErrRateTooHigh = errors.New("lending engine: interest rate above accepted maximum")
	// ErrDailyLimitExceeded rejects borrows that would saturate the rolling
	// daily window.
	ErrDailyLimitExceeded = errors.New("lending engine: daily borrow limit exceeded")
	// ErrInsufficientPayment rejects repayments below the amount owed.
	ErrInsufficientPayment = errors.New("lending engine: payment below amount owed")
	// ErrInsufficientLiquidity marks disbursements the pool cannot cover.
	ErrInsufficientLiquidity = errors.New("lending engine: insufficient pool liquidity")
	// ErrNoLoan marks operations against assets without an active loan.
	ErrNoLoan = errors.New("lending engine: loan not found")
	// ErrLoanNotExpired rejects claw-backs before the loan passed its
	// maximum length.
	ErrLoanNotExpired = errors.New("lending engine: loan not past maximum length")
)

var (
	basisPoints   = big.NewInt(10_000)
	interestScale = big.NewInt(1_000_000_000_000_000_000)
)

const secondsPerDay = 86_400

const moduleName = "lending"

type engineState interface {
	GetBook() (*Book, error)
	PutBook(*Book) error
	GetLoan(assetID uint64) (*Loan, error)
	PutLoan(*Loan) error
	DeleteLoan(assetID uint64) error
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
}

// Custody is the opaque ownership-transfer capability for collateral assets.
// Transfers must be atomic from the engine's perspective.
type Custody interface {
	Owner(assetID uint64) ([20]byte, error)
	Transfer(assetID uint64, from, to [20]byte) error
}

// Engine orchestrates loan issuance, repayment accounting and claw-backs.
// All mutating operations are serialized: TotalBorrowed and the daily-borrow
// window are shared across every loan.
type Engine struct {
	mu sync.Mutex

	state    engineState
	custody  Custody
	verifier *oracle.Verifier
	emitter  events.Emitter
	pauses   nativecommon.PauseView

	owner      [20]byte
	vault      [20]byte
	liquidator [20]byte

	params        InterestParams
	maxLoanLength int64
	dailyCap      *big.Int

	nowFn func() int64
}

// NewEngine constructs a lending engine. The vault address custodies both
// the pool liquidity and the collateral of active loans.
func NewEngine(owner, vault [20]byte, params InterestParams) *Engine {
	return &Engine{
		owner:   owner,
		vault:   vault,
		params:  params.Clone(),
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetCustody wires the collateral ownership capability.
func (e *Engine) SetCustody(custody Custody) { e.custody = custody }

// SetVerifier wires the oracle price verifier consulted on every borrow.
func (e *Engine) SetVerifier(verifier *oracle.Verifier) { e.verifier = verifier }

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetNowFunc overrides the time source used by the engine. Primarily
// intended for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// Owner returns the pool owner address. The auction engine consults this
// when gating forced withdrawals.
func (e *Engine) Owner() [20]byte {
	if e == nil {
		return [20]byte{}
	}
	return e.owner
}

// Vault returns the address custodying pool liquidity and collateral.
func (e *Engine) Vault() [20]byte {
	if e == nil {
		return [20]byte{}
	}
	return e.vault
}

// TransferOwnership hands pool governance to a new owner.
func (e *Engine) TransferOwnership(caller, newOwner [20]byte) error {
	if caller != e.owner {
		return ErrUnauthorized
	}
	e.owner = newOwner
	return nil
}

// SetLiquidator assigns the account permitted to claw back expired loans.
func (e *Engine) SetLiquidator(caller, liquidator [20]byte) error {
	if caller != e.owner {
		return ErrUnauthorized
	}
	e.liquidator = liquidator
	return nil
}

// SetInterestParams replaces the interest configuration.
func (e *Engine) SetInterestParams(caller [20]byte, params InterestParams) error {
	if caller != e.owner {
		return ErrUnauthorized
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.params = params.Clone()
	return nil
}

// SetMaxLoanLength sets the loan maturity in seconds.
func (e *Engine) SetMaxLoanLength(caller [20]byte, seconds int64) error {
	if caller != e.owner {
		return ErrUnauthorized
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.maxLoanLength = seconds
	return nil
}

// SetDailyCap sets the daily borrow cap in wei. The cap bounds how fast
// principal can leave the pool independently of per-loan limits.
func (e *Engine) SetDailyCap(caller [20]byte, cap *big.Int) error {
	if caller != e.owner {
		return ErrUnauthorized
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if cap == nil {
		e.dailyCap = nil
		return nil
	}
	e.dailyCap = new(big.Int).Set(cap)
	return nil
}

// Deposit moves liquidity from the owner into the pool vault.
func (e *Engine) Deposit(caller [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if caller != e.owner {
		return ErrUnauthorized
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInsufficientPayment
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	callerAcc, err := e.loadAccount(caller)
	if err != nil {
		return err
	}
	if callerAcc.BalanceWei.Cmp(amount) < 0 {
		return ErrInsufficientLiquidity
	}
	vaultAcc, err := e.loadAccount(e.vault)
	if err != nil {
		return err
	}

	callerAcc.BalanceWei = new(big.Int).Sub(callerAcc.BalanceWei, amount)
	vaultAcc.BalanceWei = new(big.Int).Add(vaultAcc.BalanceWei, amount)

	if err := e.state.PutAccount(caller, callerAcc); err != nil {
		return err
	}
	return e.state.PutAccount(e.vault, vaultAcc)
}

// WithdrawLiquidity releases idle pool liquidity back to the owner.
// Outstanding principal is not part of the vault balance, so active loans
// are unaffected.
func (e *Engine) WithdrawLiquidity(caller [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if caller != e.owner {
		return ErrUnauthorized
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInsufficientPayment
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	vaultAcc, err := e.loadAccount(e.vault)
	if err != nil {
		return err
	}
	if vaultAcc.BalanceWei.Cmp(amount) < 0 {
		return ErrInsufficientLiquidity
	}
	callerAcc, err := e.loadAccount(caller)
	if err != nil {
		return err
	}

	vaultAcc.BalanceWei = new(big.Int).Sub(vaultAcc.BalanceWei, amount)
	callerAcc.BalanceWei = new(big.Int).Add(callerAcc.BalanceWei, amount)

	if err := e.state.PutAccount(e.vault, vaultAcc); err != nil {
		return err
	}
	return e.state.PutAccount(caller, callerAcc)
}

// InterestRate returns the per-second rate (scaled by 1e18) that a new loan
// of the given size would be charged. The additional principal is halved in
// the utilization term so a borrower's own loan does not fully determine
// their rate.
func (e *Engine) InterestRate(additional *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	book, err := e.ensureBook()
	if err != nil {
		return nil, err
	}
	vaultAcc, err := e.loadAccount(e.vault)
	if err != nil {
		return nil, err
	}
	return e.interestRateLocked(additional, book, vaultAcc.BalanceWei), nil
}

func (e *Engine) interestRateLocked(additional *big.Int, book *Book, poolBalance *big.Int) *big.Int {
	minimum := big.NewInt(0)
	if e.params.MinInterestPerSecond != nil {
		minimum = new(big.Int).Set(e.params.MinInterestPerSecond)
	}
	if e.params.MaxVariablePerSecond == nil || e.params.MaxVariablePerSecond.Sign() == 0 {
		return minimum
	}
	demand := big.NewInt(0)
	if additional != nil {
		demand = new(big.Int).Quo(additional, big.NewInt(2))
	}
	demand.Add(demand, book.TotalBorrowed)

	supply := new(big.Int).Add(poolBalance, book.TotalBorrowed)
	if supply.Sign() == 0 {
		return minimum
	}

	variable := new(big.Int).Mul(demand, e.params.MaxVariablePerSecond)
	variable.Quo(variable, supply)
	return minimum.Add(minimum, variable)
}

// Borrow verifies the price attestation, registers one loan per asset at the
// current rate and timestamp, moves collateral custody to the vault and
// disburses the aggregate principal. The batch is all-or-nothing: every
// check runs before any state is mutated. Returns the disbursed principal.
func (e *Engine) Borrow(borrower [20]byte, assetIDs []uint64, att *oracle.Attestation, maxInterestPerSecond *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.custody == nil {
		return nil, errNilCustody
	}
	if e.verifier == nil {
		return nil, errNilVerifier
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if len(assetIDs) == 0 {
		return nil, errNoAssets
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.nowFn()

	if _, err := e.verifier.VerifyAt(att, now); err != nil {
		return nil, err
	}

	perAsset := new(big.Int).Mul(att.Price, new(big.Int).SetUint64(e.params.LoanToValueBps))
	perAsset.Quo(perAsset, basisPoints)
	if perAsset.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	total := new(big.Int).Mul(perAsset, big.NewInt(int64(len(assetIDs))))

	book, err := e.ensureBook()
	if err != nil {
		return nil, err
	}
	vaultAcc, err := e.loadAccount(e.vault)
	if err != nil {
		return nil, err
	}

	rate := e.interestRateLocked(total, book, vaultAcc.BalanceWei)
	if maxInterestPerSecond == nil || rate.Cmp(maxInterestPerSecond) > 0 {
		return nil, ErrRateTooHigh
	}

	seen := make(map[uint64]struct{}, len(assetIDs))
	for _, assetID := range assetIDs {
		if _, dup := seen[assetID]; dup {
			return nil, errDuplicate
		}
		seen[assetID] = struct{}{}
		holder, err := e.custody.Owner(assetID)
		if err != nil {
			return nil, err
		}
		if holder != borrower {
			return nil, ErrNotOwner
		}
		existing, err := e.state.GetLoan(assetID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, errLoanExists
		}
	}

	window, err := e.windowAfterBorrow(book, total, now)
	if err != nil {
		return nil, err
	}

	if vaultAcc.BalanceWei.Cmp(total) < 0 {
		return nil, ErrInsufficientLiquidity
	}
	borrowerAcc, err := e.loadAccount(borrower)
	if err != nil {
		return nil, err
	}

	// All checks passed: mutate.
	for _, assetID := range assetIDs {
		if err := e.custody.Transfer(assetID, borrower, e.vault); err != nil {
			return nil, err
		}
		loan := &Loan{
			AssetID:           assetID,
			Holder:            borrower,
			Principal:         new(big.Int).Set(perAsset),
			InterestPerSecond: new(big.Int).Set(rate),
			StartTime:         now,
		}
		if err := e.state.PutLoan(loan); err != nil {
			return nil, err
		}
	}

	vaultAcc.BalanceWei = new(big.Int).Sub(vaultAcc.BalanceWei, total)
	borrowerAcc.BalanceWei = new(big.Int).Add(borrowerAcc.BalanceWei, total)
	if err := e.state.PutAccount(e.vault, vaultAcc); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(borrower, borrowerAcc); err != nil {
		return nil, err
	}

	book.TotalBorrowed = new(big.Int).Add(book.TotalBorrowed, total)
	book.WindowAmount = window
	book.WindowUpdated = now
	if err := e.state.PutBook(book); err != nil {
		return nil, err
	}

	for _, assetID := range assetIDs {
		e.emitter.Emit(events.LoanCreated{
			AssetID:   assetID,
			Borrower:  borrower,
			Principal: new(big.Int).Set(perAsset),
			RateWei:   new(big.Int).Set(rate),
			StartTime: now,
		})
	}
	return total, nil
}

// windowAfterBorrow decays the daily window linearly since its last update,
// floors it at zero and adds the new borrow. The post-add amount must stay
// strictly below the cap.
func (e *Engine) windowAfterBorrow(book *Book, amount *big.Int, now int64) (*big.Int, error) {
	if e.dailyCap == nil || e.dailyCap.Sign() == 0 {
		return nil, ErrDailyLimitExceeded
	}
	window := new(big.Int).Set(book.WindowAmount)
	if elapsed := now - book.WindowUpdated; elapsed > 0 {
		decay := new(big.Int).Mul(e.dailyCap, big.NewInt(elapsed))
		decay.Quo(decay, big.NewInt(secondsPerDay))
		if decay.Cmp(window) >= 0 {
			window.SetInt64(0)
		} else {
			window.Sub(window, decay)
		}
	}
	window.Add(window, amount)
	if window.Cmp(e.dailyCap) >= 0 {
		return nil, ErrDailyLimitExceeded
	}
	return window, nil
}

// Owed returns the amount currently required to repay the loan backing the
// given asset: principal, accrued interest and any late fees.
func (e *Engine) Owed(assetID uint64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	loan, err := e.state.GetLoan(assetID)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, ErrNoLoan
	}
	owed, _ := e.loanOwed(loan, e.nowFn())
	return owed, nil
}

// loanOwed computes principal+interest+lateFees for a loan at the given
// timestamp. The late fee is a linear penalty on the overage period,
// independent of the agreed rate.
func (e *Engine) loanOwed(loan *Loan, now int64) (owed, lateFees *big.Int) {
	elapsed := now - loan.StartTime
	if elapsed < 0 {
		elapsed = 0
	}
	interest := new(big.Int).Mul(loan.InterestPerSecond, big.NewInt(elapsed))
	interest.Mul(interest, loan.Principal)
	interest.Quo(interest, interestScale)

	lateFees = big.NewInt(0)
	if e.maxLoanLength > 0 && elapsed > e.maxLoanLength {
		lateFees = new(big.Int).Mul(big.NewInt(elapsed-e.maxLoanLength), loan.Principal)
		lateFees.Quo(lateFees, big.NewInt(secondsPerDay))
	}

	owed = new(big.Int).Add(loan.Principal, interest)
	owed.Add(owed, lateFees)
	return owed, lateFees
}

// Repay settles the loans backing the given assets. The caller must hold
// every loan and the payment must cover the aggregate owed amount; only the
// owed amount is debited, so overpayment is implicitly refunded. Collateral
// custody returns to the caller and the daily window is partially refunded
// for loans repaid within a day of origination. Returns the total owed.
func (e *Engine) Repay(caller [20]byte, assetIDs []uint64, payment *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.custody == nil {
		return nil, errNilCustody
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if len(assetIDs) == 0 {
		return nil, errNoAssets
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.nowFn()

	book, err := e.ensureBook()
	if err != nil {
		return nil, err
	}

	type settled struct {
		loan     *Loan
		owed     *big.Int
		lateFees *big.Int
	}
	loans := make([]settled, 0, len(assetIDs))
	seen := make(map[uint64]struct{}, len(assetIDs))
	totalOwed := big.NewInt(0)
	totalPrincipal := big.NewInt(0)
	for _, assetID := range assetIDs {
		if _, dup := seen[assetID]; dup {
			return nil, errDuplicate
		}
		seen[assetID] = struct{}{}
		loan, err := e.state.GetLoan(assetID)
		if err != nil {
			return nil, err
		}
		if loan == nil {
			return nil, ErrNoLoan
		}
		if loan.Holder != caller {
			return nil, ErrNotOwner
		}
		owed, lateFees := e.loanOwed(loan, now)
		totalOwed.Add(totalOwed, owed)
		totalPrincipal.Add(totalPrincipal, loan.Principal)
		loans = append(loans, settled{loan: loan, owed: owed, lateFees: lateFees})
	}

	if payment == nil || payment.Cmp(totalOwed) < 0 {
		return nil, ErrInsufficientPayment
	}
	callerAcc, err := e.loadAccount(caller)
	if err != nil {
		return nil, err
	}
	if callerAcc.BalanceWei.Cmp(totalOwed) < 0 {
		return nil, ErrInsufficientPayment
	}
	vaultAcc, err := e.loadAccount(e.vault)
	if err != nil {
		return nil, err
	}

	// All checks passed: mutate.
	callerAcc.BalanceWei = new(big.Int).Sub(callerAcc.BalanceWei, totalOwed)
	vaultAcc.BalanceWei = new(big.Int).Add(vaultAcc.BalanceWei, totalOwed)
	if err := e.state.PutAccount(caller, callerAcc); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(e.vault, vaultAcc); err != nil {
		return nil, err
	}

	window := new(big.Int).Set(book.WindowAmount)
	for _, entry := range loans {
		loan := entry.loan
		if err := e.state.DeleteLoan(loan.AssetID); err != nil {
			return nil, err
		}
		if err := e.custody.Transfer(loan.AssetID, e.vault, caller); err != nil {
			return nil, err
		}
		if elapsed := now - loan.StartTime; elapsed < secondsPerDay {
			refund := new(big.Int).Mul(loan.Principal, big.NewInt(secondsPerDay-elapsed))
			refund.Quo(refund, big.NewInt(secondsPerDay))
			if refund.Cmp(window) >= 0 {
				window.SetInt64(0)
			} else {
				window.Sub(window, refund)
			}
		}
	}

	book.TotalBorrowed = new(big.Int).Sub(book.TotalBorrowed, totalPrincipal)
	book.WindowAmount = window
	if err := e.state.PutBook(book); err != nil {
		return nil, err
	}

	for _, entry := range loans {
		e.emitter.Emit(events.LoanRepaid{
			AssetID:  entry.loan.AssetID,
			Holder:   caller,
			Owed:     entry.owed,
			LateFees: entry.lateFees,
		})
	}
	return totalOwed, nil
}

// ClawBack seizes the collateral of a strictly expired loan. Only the
// configured liquidator may call it; the liquidator becomes responsible for
// auctioning the asset. The daily window is not adjusted: expired loans
// have already left the recent-borrow window naturally.
func (e *Engine) ClawBack(caller [20]byte, assetID uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.custody == nil {
		return errNilCustody
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if caller != e.liquidator || e.liquidator == ([20]byte{}) {
		return ErrUnauthorized
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.nowFn()

	loan, err := e.state.GetLoan(assetID)
	if err != nil {
		return err
	}
	if loan == nil {
		return ErrNoLoan
	}
	if now <= loan.StartTime+e.maxLoanLength {
		return ErrLoanNotExpired
	}

	book, err := e.ensureBook()
	if err != nil {
		return err
	}

	if err := e.state.DeleteLoan(assetID); err != nil {
		return err
	}
	if err := e.custody.Transfer(assetID, e.vault, caller); err != nil {
		return err
	}

	book.TotalBorrowed = new(big.Int).Sub(book.TotalBorrowed, loan.Principal)
	if err := e.state.PutBook(book); err != nil {
		return err
	}

	e.emitter.Emit(events.LoanClawedBack{
		AssetID:    assetID,
		Liquidator: caller,
		Principal:  new(big.Int).Set(loan.Principal),
	})
	return nil
}

// Loan returns a copy of the active loan backing the asset, if any.
func (e *Engine) Loan(assetID uint64) (*Loan, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	loan, err := e.state.GetLoan(assetID)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, ErrNoLoan
	}
	return loan.Clone(), nil
}

// Book returns a copy of the pool-wide accounting state.
func (e *Engine) Book() (*Book, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	book, err := e.ensureBook()
	if err != nil {
		return nil, err
	}
	return book.Clone(), nil
}

func (e *Engine) ensureBook() (*Book, error) {
	book, err := e.state.GetBook()
	if err != nil {
		return nil, err
	}
	if book == nil {
		book = &Book{}
	}
	if book.TotalBorrowed == nil {
		book.TotalBorrowed = big.NewInt(0)
	}
	if book.WindowAmount == nil {
		book.WindowAmount = big.NewInt(0)
	}
	return book, nil
}

func (e *Engine) loadAccount(addr [20]byte) (*types.Account, error) {
	acc, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = &types.Account{}
	}
	if acc.BalanceWei == nil {
		acc.BalanceWei = big.NewInt(0)
	}
	return acc, nil
}
