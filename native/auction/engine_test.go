package auction

import (
	"errors"
	"math/big"
	"testing"

	"lienchain/core/types"
)

type mockState struct {
	auctions map[uint64]*Auction
	accounts map[[20]byte]*types.Account
}

func newMockState() *mockState {
	return &mockState{
		auctions: make(map[uint64]*Auction),
		accounts: make(map[[20]byte]*types.Account),
	}
}

func (m *mockState) GetAuction(assetID uint64) (*Auction, error) {
	if sale, ok := m.auctions[assetID]; ok {
		return sale, nil
	}
	return nil, nil
}

func (m *mockState) PutAuction(sale *Auction) error {
	if sale == nil {
		return nil
	}
	m.auctions[sale.AssetID] = sale
	return nil
}

func (m *mockState) DeleteAuction(assetID uint64) error {
	delete(m.auctions, assetID)
	return nil
}

func (m *mockState) GetAccount(addr [20]byte) (*types.Account, error) {
	if acc, ok := m.accounts[addr]; ok {
		return acc, nil
	}
	return nil, nil
}

func (m *mockState) PutAccount(addr [20]byte, account *types.Account) error {
	m.accounts[addr] = account
	return nil
}

func (m *mockState) balance(addr [20]byte) *big.Int {
	if acc, ok := m.accounts[addr]; ok && acc.BalanceWei != nil {
		return acc.BalanceWei
	}
	return big.NewInt(0)
}

type mockCustody struct {
	holders map[uint64][20]byte
}

func newMockCustody() *mockCustody {
	return &mockCustody{holders: make(map[uint64][20]byte)}
}

func (m *mockCustody) Owner(assetID uint64) ([20]byte, error) {
	holder, ok := m.holders[assetID]
	if !ok {
		return [20]byte{}, errors.New("asset not registered")
	}
	return holder, nil
}

func (m *mockCustody) Transfer(assetID uint64, from, to [20]byte) error {
	holder, ok := m.holders[assetID]
	if !ok || holder != from {
		return errors.New("transfer from non-holder")
	}
	m.holders[assetID] = to
	return nil
}

type mockPool struct {
	owner [20]byte
}

func (m *mockPool) Owner() [20]byte { return m.owner }

func addr(suffix byte) [20]byte {
	var out [20]byte
	out[len(out)-1] = suffix
	return out
}

type testFixture struct {
	engine    *Engine
	state     *mockState
	custody   *mockCustody
	operator  [20]byte
	vault     [20]byte
	recipient [20]byte
	poolOwner [20]byte
	buyer     [20]byte
	now       int64
}

// newFixture builds an engine with a 10% fee over a 100 -> 0 curve running
// from t=1000 to t=1100.
func newFixture(t *testing.T) *testFixture {
	t.Helper()
	fx := &testFixture{
		state:     newMockState(),
		custody:   newMockCustody(),
		operator:  addr(0x01),
		vault:     addr(0x02),
		recipient: addr(0x03),
		poolOwner: addr(0x04),
		buyer:     addr(0x05),
		now:       1_000,
	}

	engine := NewEngine(fx.operator, fx.vault, fx.recipient, 1_000)
	engine.SetState(fx.state)
	engine.SetCustody(fx.custody)
	engine.SetPoolOwnership(&mockPool{owner: fx.poolOwner})
	engine.SetNowFunc(func() int64 { return fx.now })
	fx.engine = engine

	fx.custody.holders[1] = fx.vault
	fx.state.accounts[fx.buyer] = &types.Account{BalanceWei: big.NewInt(1_000)}
	return fx
}

func (fx *testFixture) schedule(t *testing.T) {
	t.Helper()
	if err := fx.engine.Schedule(fx.operator, 1, big.NewInt(100), big.NewInt(0), 1_000, 1_100); err != nil {
		t.Fatalf("schedule: %v", err)
	}
}

func TestScheduleValidatesParameters(t *testing.T) {
	fx := newFixture(t)

	cases := []struct {
		name       string
		caller     [20]byte
		startPrice *big.Int
		endPrice   *big.Int
		startTime  int64
		endTime    int64
		want       error
	}{
		{"not operator", fx.buyer, big.NewInt(100), big.NewInt(0), 1_000, 1_100, ErrUnauthorized},
		{"zero start price", fx.operator, big.NewInt(0), big.NewInt(0), 1_000, 1_100, ErrInvalidParameters},
		{"end above start", fx.operator, big.NewInt(100), big.NewInt(200), 1_000, 1_100, ErrInvalidParameters},
		{"start in past", fx.operator, big.NewInt(100), big.NewInt(0), 999, 1_100, ErrInvalidParameters},
		{"empty window", fx.operator, big.NewInt(100), big.NewInt(0), 1_000, 1_000, ErrInvalidParameters},
	}
	for _, tc := range cases {
		err := fx.engine.Schedule(tc.caller, 1, tc.startPrice, tc.endPrice, tc.startTime, tc.endTime)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v want %v", tc.name, err, tc.want)
		}
	}
}

func TestScheduleRequiresVaultCustody(t *testing.T) {
	fx := newFixture(t)
	fx.custody.holders[2] = fx.buyer

	err := fx.engine.Schedule(fx.operator, 2, big.NewInt(100), big.NewInt(0), 1_000, 1_100)
	if !errors.Is(err, ErrNotCustodied) {
		t.Fatalf("expected ErrNotCustodied, got %v", err)
	}
}

func TestSpotPriceFollowsCurveAndClamps(t *testing.T) {
	fx := newFixture(t)
	fx.schedule(t)

	cases := []struct {
		at   int64
		want int64
	}{
		{900, 100},  // before the window: clamped to start price
		{1_000, 100},
		{1_025, 75},
		{1_050, 50},
		{1_100, 0},
		{1_150, 0}, // past the window: clamped to end price
	}
	for _, tc := range cases {
		fx.now = tc.at
		price, err := fx.engine.SpotPrice(1)
		if err != nil {
			t.Fatalf("spot price at %d: %v", tc.at, err)
		}
		if price.Int64() != tc.want {
			t.Fatalf("spot price at %d: got %s want %d", tc.at, price, tc.want)
		}
	}
}

func TestPurchaseSettlesAtCurvePrice(t *testing.T) {
	fx := newFixture(t)
	fx.schedule(t)

	fx.now = 1_050
	spot, err := fx.engine.SpotPrice(1)
	if err != nil {
		t.Fatalf("spot price: %v", err)
	}
	clearing, err := fx.engine.Purchase(fx.buyer, 1, big.NewInt(80))
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if clearing.Cmp(spot) != 0 {
		t.Fatalf("clearing %s differs from quoted spot %s", clearing, spot)
	}
	if clearing.Int64() != 50 {
		t.Fatalf("clearing: got %s want 50", clearing)
	}

	// Buyer pays exactly the clearing price, not the offered payment.
	if got := fx.state.balance(fx.buyer); got.Int64() != 950 {
		t.Fatalf("buyer balance: got %s want 950", got)
	}
	// 10% fee on 50 is 5; the pool owner receives the remainder.
	if got := fx.state.balance(fx.recipient); got.Int64() != 5 {
		t.Fatalf("fee recipient balance: got %s want 5", got)
	}
	if got := fx.state.balance(fx.poolOwner); got.Int64() != 45 {
		t.Fatalf("pool owner balance: got %s want 45", got)
	}

	holder, err := fx.custody.Owner(1)
	if err != nil {
		t.Fatalf("custody: %v", err)
	}
	if holder != fx.buyer {
		t.Fatalf("asset not delivered to buyer")
	}
	sale, err := fx.engine.Auction(1)
	if err != nil {
		t.Fatalf("auction: %v", err)
	}
	if sale.Phase != PhaseSold {
		t.Fatalf("phase after purchase: got %v", sale.Phase)
	}
}

func TestPurchaseMergesFeeAndProceedsForSameAccount(t *testing.T) {
	fx := newFixture(t)
	fx.engine.SetPoolOwnership(&mockPool{owner: fx.recipient})
	fx.schedule(t)

	fx.now = 1_050
	if _, err := fx.engine.Purchase(fx.buyer, 1, big.NewInt(50)); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	// Fee and proceeds land on the same account and must both survive.
	if got := fx.state.balance(fx.recipient); got.Int64() != 50 {
		t.Fatalf("merged balance: got %s want 50", got)
	}
}

func TestPurchaseRejectsUnderpayment(t *testing.T) {
	fx := newFixture(t)
	fx.schedule(t)

	fx.now = 1_050
	if _, err := fx.engine.Purchase(fx.buyer, 1, big.NewInt(49)); !errors.Is(err, ErrInsufficientPayment) {
		t.Fatalf("expected ErrInsufficientPayment, got %v", err)
	}
	holder, err := fx.custody.Owner(1)
	if err != nil {
		t.Fatalf("custody: %v", err)
	}
	if holder != fx.vault {
		t.Fatalf("failed purchase moved custody")
	}
}

func TestPurchaseRejectsOutsideWindow(t *testing.T) {
	fx := newFixture(t)
	fx.schedule(t)

	fx.now = 999
	if _, err := fx.engine.Purchase(fx.buyer, 1, big.NewInt(1_000)); !errors.Is(err, ErrAuctionNotLive) {
		t.Fatalf("expected ErrAuctionNotLive before start, got %v", err)
	}
	fx.now = 1_101
	if _, err := fx.engine.Purchase(fx.buyer, 1, big.NewInt(1_000)); !errors.Is(err, ErrAuctionNotLive) {
		t.Fatalf("expected ErrAuctionNotLive after end, got %v", err)
	}
}

func TestActivateClosesBidding(t *testing.T) {
	fx := newFixture(t)
	fx.schedule(t)

	if err := fx.engine.Activate(fx.buyer, 1); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := fx.engine.Activate(fx.operator, 1); err != nil {
		t.Fatalf("activate: %v", err)
	}

	fx.now = 1_050
	if _, err := fx.engine.Purchase(fx.buyer, 1, big.NewInt(1_000)); !errors.Is(err, ErrAuctionClosed) {
		t.Fatalf("expected ErrAuctionClosed after activate, got %v", err)
	}
	if err := fx.engine.Activate(fx.operator, 1); !errors.Is(err, ErrAuctionClosed) {
		t.Fatalf("expected double activate to fail, got %v", err)
	}
}

func TestScheduleCannotReplaceClosedSale(t *testing.T) {
	fx := newFixture(t)
	fx.schedule(t)

	// Re-scheduling while still open is allowed.
	if err := fx.engine.Schedule(fx.operator, 1, big.NewInt(200), big.NewInt(10), 1_000, 1_200); err != nil {
		t.Fatalf("reschedule open sale: %v", err)
	}

	if err := fx.engine.Activate(fx.operator, 1); err != nil {
		t.Fatalf("activate: %v", err)
	}
	err := fx.engine.Schedule(fx.operator, 1, big.NewInt(100), big.NewInt(0), 1_000, 1_100)
	if !errors.Is(err, ErrAuctionClosed) {
		t.Fatalf("expected ErrAuctionClosed, got %v", err)
	}
}

func TestWithdrawGatedByPoolOwner(t *testing.T) {
	fx := newFixture(t)
	fx.schedule(t)

	// Not even the auction operator can force a withdrawal.
	if err := fx.engine.Withdraw(fx.operator, 1); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for operator, got %v", err)
	}

	if err := fx.engine.Withdraw(fx.poolOwner, 1); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	holder, err := fx.custody.Owner(1)
	if err != nil {
		t.Fatalf("custody: %v", err)
	}
	if holder != fx.poolOwner {
		t.Fatalf("asset not returned to pool owner")
	}
	if _, err := fx.engine.Auction(1); !errors.Is(err, ErrNoAuction) {
		t.Fatalf("sale record should be deleted, got %v", err)
	}

	fx.now = 1_050
	if _, err := fx.engine.Purchase(fx.buyer, 1, big.NewInt(1_000)); !errors.Is(err, ErrNoAuction) {
		t.Fatalf("expected ErrNoAuction after withdraw, got %v", err)
	}
}
