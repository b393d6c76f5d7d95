package auction

import (
	"errors"
	"math/big"
	"sync"
	"time"

	"lienchain/core/events"
	"lienchain/core/types"
	nativecommon "lienchain/native/common"
	"lienchain/native/curve"
)

var (
	errNilState   = errors.New("auction engine: state not configured")
	errNilCustody = errors.New("auction engine: custody not configured")
	errNilPool    = errors.New("auction engine: pool ownership not configured")

	// ErrUnauthorized marks privileged calls from the wrong account.
	ErrUnauthorized = errors.New("auction engine: caller not authorized")
	// ErrNoAuction marks operations against assets without a sale record.
	ErrNoAuction = errors.New("auction engine: auction not found")
	// ErrAuctionClosed marks purchases or re-schedules against a sale that
	// already settled or was activated.
	ErrAuctionClosed = errors.New("auction engine: auction closed")
	// ErrAuctionNotLive marks purchases outside the sale's time window.
	ErrAuctionNotLive = errors.New("auction engine: outside auction window")
	// ErrInvalidParameters marks malformed time or price ranges.
	ErrInvalidParameters = errors.New("auction engine: invalid auction parameters")
	// ErrInsufficientPayment marks purchases below the clearing price.
	ErrInsufficientPayment = errors.New("auction engine: payment below clearing price")
	// ErrNotCustodied marks sales over assets the engine vault does not hold.
	ErrNotCustodied = errors.New("auction engine: asset not custodied by engine")
)

var basisPoints = big.NewInt(10_000)

// MaxFeeBps bounds the configurable protocol fee.
const MaxFeeBps = 5_000

const moduleName = "auction"

type engineState interface {
	GetAuction(assetID uint64) (*Auction, error)
	PutAuction(*Auction) error
	DeleteAuction(assetID uint64) error
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
}

// Custody is the opaque ownership-transfer capability for collateral assets.
type Custody interface {
	Owner(assetID uint64) ([20]byte, error)
	Transfer(assetID uint64, from, to [20]byte) error
}

// PoolOwnership exposes the lending pool's owner. Forced withdrawals are
// gated by the custodying pool's governance, not by the auction operator.
type PoolOwnership interface {
	Owner() [20]byte
}

// Engine schedules, activates and settles liquidation sales along a linear
// price curve, splitting proceeds between the fee recipient and the pool
// owner.
type Engine struct {
	mu sync.Mutex

	state   engineState
	custody Custody
	pool    PoolOwnership
	emitter events.Emitter
	pauses  nativecommon.PauseView

	owner        [20]byte
	vault        [20]byte
	feeRecipient [20]byte
	feeBps       uint64

	nowFn func() int64
}

// NewEngine constructs an auction engine. The vault address custodies assets
// while they are under auction.
func NewEngine(owner, vault, feeRecipient [20]byte, feeBps uint64) *Engine {
	return &Engine{
		owner:        owner,
		vault:        vault,
		feeRecipient: feeRecipient,
		feeBps:       feeBps,
		emitter:      events.NoopEmitter{},
		nowFn:        func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetCustody wires the collateral ownership capability.
func (e *Engine) SetCustody(custody Custody) { e.custody = custody }

// SetPoolOwnership wires the lending pool whose owner gates withdrawals.
func (e *Engine) SetPoolOwnership(pool PoolOwnership) { e.pool = pool }

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

// Vault returns the address custodying assets under auction.
func (e *Engine) Vault() [20]byte {
	if e == nil {
		return [20]byte{}
	}
	return e.vault
}

// SetFeeBps updates the protocol fee taken from every sale.
func (e *Engine) SetFeeBps(caller [20]byte, bps uint64) error {
	if caller != e.owner {
		return ErrUnauthorized
	}
	if bps > MaxFeeBps {
		return ErrInvalidParameters
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.feeBps = bps
	return nil
}

// SetFeeRecipient updates the account receiving protocol fees.
func (e *Engine) SetFeeRecipient(caller, recipient [20]byte) error {
	if caller != e.owner {
		return ErrUnauthorized
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.feeRecipient = recipient
	return nil
}

// Schedule registers a liquidation sale for an asset the engine custodies.
// An existing record may only be overwritten while it is still scheduled;
// settled or activated sales are final.
func (e *Engine) Schedule(caller [20]byte, assetID uint64, startPrice, endPrice *big.Int, startTime, endTime int64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.custody == nil {
		return errNilCustody
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if caller != e.owner {
		return ErrUnauthorized
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.nowFn()

	if startPrice == nil || endPrice == nil || startPrice.Sign() <= 0 || endPrice.Sign() < 0 {
		return ErrInvalidParameters
	}
	if endPrice.Cmp(startPrice) > 0 {
		return ErrInvalidParameters
	}
	if startTime < now || endTime <= startTime {
		return ErrInvalidParameters
	}

	holder, err := e.custody.Owner(assetID)
	if err != nil {
		return err
	}
	if holder != e.vault {
		return ErrNotCustodied
	}

	existing, err := e.state.GetAuction(assetID)
	if err != nil {
		return err
	}
	if existing != nil && existing.Phase != PhaseScheduled {
		return ErrAuctionClosed
	}

	sale := &Auction{
		AssetID:    assetID,
		StartPrice: new(big.Int).Set(startPrice),
		EndPrice:   new(big.Int).Set(endPrice),
		StartTime:  startTime,
		EndTime:    endTime,
		Phase:      PhaseScheduled,
	}
	if err := e.state.PutAuction(sale); err != nil {
		return err
	}

	e.emitter.Emit(events.AuctionScheduled{
		AssetID:    assetID,
		StartPrice: new(big.Int).Set(startPrice),
		EndPrice:   new(big.Int).Set(endPrice),
		StartTime:  startTime,
		EndTime:    endTime,
	})
	return nil
}

// Activate closes public bidding on a scheduled sale. It exists as a
// separate step so a trusted operator can gate exactly when a sale stops
// accepting purchases even though Schedule already fixed the curve.
func (e *Engine) Activate(caller [20]byte, assetID uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if caller != e.owner {
		return ErrUnauthorized
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	sale, err := e.state.GetAuction(assetID)
	if err != nil {
		return err
	}
	if sale == nil {
		return ErrNoAuction
	}
	if sale.Phase != PhaseScheduled {
		return ErrAuctionClosed
	}
	sale.Phase = PhaseSold
	if err := e.state.PutAuction(sale); err != nil {
		return err
	}

	e.emitter.Emit(events.AuctionActivated{AssetID: assetID})
	return nil
}

// priceAt evaluates the sale's curve at the given time, clamped to
// [endPrice, startPrice]. The clamp guards against linear extrapolation and
// integer-division artifacts at the window boundaries.
func priceAt(sale *Auction, now int64) *big.Int {
	value := curve.ValueAt(now, sale.StartTime, sale.EndTime, sale.StartPrice, sale.EndPrice)
	return curve.Clamp(value, sale.EndPrice, sale.StartPrice)
}

// SpotPrice returns the clearing price a purchase would pay right now. It is
// the exact evaluation Purchase uses at the same timestamp.
func (e *Engine) SpotPrice(assetID uint64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	sale, err := e.state.GetAuction(assetID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, ErrNoAuction
	}
	return priceAt(sale, e.nowFn()), nil
}

// Purchase settles a scheduled sale at the current curve price. The buyer is
// debited exactly the clearing price (overpayment is implicitly refunded);
// the fee share goes to the fee recipient and the remainder to the pool
// owner, and collateral custody moves to the buyer. Returns the clearing
// price for the caller's own accounting.
func (e *Engine) Purchase(buyer [20]byte, assetID uint64, payment *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.custody == nil {
		return nil, errNilCustody
	}
	if e.pool == nil {
		return nil, errNilPool
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.nowFn()

	sale, err := e.state.GetAuction(assetID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, ErrNoAuction
	}
	if sale.Phase != PhaseScheduled {
		return nil, ErrAuctionClosed
	}
	if now < sale.StartTime || now > sale.EndTime {
		return nil, ErrAuctionNotLive
	}

	clearing := priceAt(sale, now)
	if payment == nil || payment.Cmp(clearing) < 0 {
		return nil, ErrInsufficientPayment
	}

	buyerAcc, err := e.loadAccount(buyer)
	if err != nil {
		return nil, err
	}
	if buyerAcc.BalanceWei.Cmp(clearing) < 0 {
		return nil, ErrInsufficientPayment
	}

	feeAmount := new(big.Int).Mul(clearing, new(big.Int).SetUint64(e.feeBps))
	feeAmount.Quo(feeAmount, basisPoints)
	proceeds := new(big.Int).Sub(clearing, feeAmount)
	poolOwner := e.pool.Owner()

	// All checks passed: mutate.
	buyerAcc.BalanceWei = new(big.Int).Sub(buyerAcc.BalanceWei, clearing)
	if err := e.state.PutAccount(buyer, buyerAcc); err != nil {
		return nil, err
	}
	if err := e.credit(e.feeRecipient, feeAmount); err != nil {
		return nil, err
	}
	if err := e.credit(poolOwner, proceeds); err != nil {
		return nil, err
	}
	if err := e.custody.Transfer(assetID, e.vault, buyer); err != nil {
		return nil, err
	}

	sale.Phase = PhaseSold
	if err := e.state.PutAuction(sale); err != nil {
		return nil, err
	}

	e.emitter.Emit(events.AuctionSold{
		AssetID:       assetID,
		Buyer:         buyer,
		ClearingPrice: new(big.Int).Set(clearing),
		FeeAmount:     feeAmount,
	})
	return clearing, nil
}

// Withdraw force-closes any auction state for the asset and returns custody
// to the lending pool's owner. The gate is the pool's owner, not the auction
// operator: the custodying party's governance controls forced recovery.
func (e *Engine) Withdraw(caller [20]byte, assetID uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.custody == nil {
		return errNilCustody
	}
	if e.pool == nil {
		return errNilPool
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	poolOwner := e.pool.Owner()
	if caller != poolOwner {
		return ErrUnauthorized
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	holder, err := e.custody.Owner(assetID)
	if err != nil {
		return err
	}
	if holder != e.vault {
		return ErrNotCustodied
	}

	if err := e.state.DeleteAuction(assetID); err != nil {
		return err
	}
	if err := e.custody.Transfer(assetID, e.vault, poolOwner); err != nil {
		return err
	}

	e.emitter.Emit(events.AuctionWithdrawn{AssetID: assetID, Owner: poolOwner})
	return nil
}

// Auction returns a copy of the sale record for the asset, if any.
func (e *Engine) Auction(assetID uint64) (*Auction, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	sale, err := e.state.GetAuction(assetID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, ErrNoAuction
	}
	return sale.Clone(), nil
}

// credit adds the amount to the recipient's balance, merging with any
// balance staged earlier in the same operation through the state layer.
func (e *Engine) credit(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	acc, err := e.loadAccount(addr)
	if err != nil {
		return err
	}
	acc.BalanceWei = new(big.Int).Add(acc.BalanceWei, amount)
	return e.state.PutAccount(addr, acc)
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
