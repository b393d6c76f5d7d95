// Package state persists the protocol's engine state in a key-value
// database. Records are RLP encoded: timestamps are stored as unsigned
// seconds and big.Int amounts round-trip exactly, which JSON floats would
// not guarantee.
package state

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"lienchain/core/types"
	"lienchain/native/auction"
	"lienchain/native/lending"
	"lienchain/storage"
)

var (
	// ErrNotAssetHolder marks custody transfers from an account that does not
	// hold the asset.
	ErrNotAssetHolder = errors.New("state: transfer from non-holder")
	// ErrAssetUnknown marks custody lookups for unregistered assets.
	ErrAssetUnknown = errors.New("state: asset not registered")
)

// Store implements the lending and auction engine state interfaces plus the
// collateral custody registry over a storage.Database.
type Store struct {
	db storage.Database
}

// NewStore wraps the given database.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

type storedLoan struct {
	AssetID           uint64
	Holder            [20]byte
	Principal         *big.Int
	InterestPerSecond *big.Int
	StartTime         uint64
}

type storedBook struct {
	TotalBorrowed *big.Int
	WindowAmount  *big.Int
	WindowUpdated uint64
}

type storedAuction struct {
	AssetID    uint64
	StartPrice *big.Int
	EndPrice   *big.Int
	StartTime  uint64
	EndTime    uint64
	Phase      uint8
}

type storedAccount struct {
	Nonce      uint64
	BalanceWei *big.Int
}

func (s *Store) get(key []byte, out interface{}) (bool, error) {
	raw, err := s.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) put(key []byte, value interface{}) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return s.db.Put(key, raw)
}

// --- lending state ---

func (s *Store) GetBook() (*lending.Book, error) {
	var stored storedBook
	ok, err := s.get([]byte(bookKey), &stored)
	if err != nil || !ok {
		return nil, err
	}
	return &lending.Book{
		TotalBorrowed: stored.TotalBorrowed,
		WindowAmount:  stored.WindowAmount,
		WindowUpdated: int64(stored.WindowUpdated),
	}, nil
}

func (s *Store) PutBook(book *lending.Book) error {
	if book == nil {
		return nil
	}
	stored := storedBook{
		TotalBorrowed: zeroIfNil(book.TotalBorrowed),
		WindowAmount:  zeroIfNil(book.WindowAmount),
		WindowUpdated: uint64(book.WindowUpdated),
	}
	return s.put([]byte(bookKey), stored)
}

func (s *Store) GetLoan(assetID uint64) (*lending.Loan, error) {
	var stored storedLoan
	ok, err := s.get(assetKey(loanPrefix, assetID), &stored)
	if err != nil || !ok {
		return nil, err
	}
	return &lending.Loan{
		AssetID:           stored.AssetID,
		Holder:            stored.Holder,
		Principal:         stored.Principal,
		InterestPerSecond: stored.InterestPerSecond,
		StartTime:         int64(stored.StartTime),
	}, nil
}

func (s *Store) PutLoan(loan *lending.Loan) error {
	if loan == nil {
		return nil
	}
	stored := storedLoan{
		AssetID:           loan.AssetID,
		Holder:            loan.Holder,
		Principal:         zeroIfNil(loan.Principal),
		InterestPerSecond: zeroIfNil(loan.InterestPerSecond),
		StartTime:         uint64(loan.StartTime),
	}
	return s.put(assetKey(loanPrefix, loan.AssetID), stored)
}

func (s *Store) DeleteLoan(assetID uint64) error {
	return s.db.Delete(assetKey(loanPrefix, assetID))
}

// --- auction state ---

func (s *Store) GetAuction(assetID uint64) (*auction.Auction, error) {
	var stored storedAuction
	ok, err := s.get(assetKey(auctionPrefix, assetID), &stored)
	if err != nil || !ok {
		return nil, err
	}
	return &auction.Auction{
		AssetID:    stored.AssetID,
		StartPrice: stored.StartPrice,
		EndPrice:   stored.EndPrice,
		StartTime:  int64(stored.StartTime),
		EndTime:    int64(stored.EndTime),
		Phase:      auction.Phase(stored.Phase),
	}, nil
}

func (s *Store) PutAuction(sale *auction.Auction) error {
	if sale == nil {
		return nil
	}
	stored := storedAuction{
		AssetID:    sale.AssetID,
		StartPrice: zeroIfNil(sale.StartPrice),
		EndPrice:   zeroIfNil(sale.EndPrice),
		StartTime:  uint64(sale.StartTime),
		EndTime:    uint64(sale.EndTime),
		Phase:      uint8(sale.Phase),
	}
	return s.put(assetKey(auctionPrefix, sale.AssetID), stored)
}

func (s *Store) DeleteAuction(assetID uint64) error {
	return s.db.Delete(assetKey(auctionPrefix, assetID))
}

// --- accounts ---

func (s *Store) GetAccount(addr [20]byte) (*types.Account, error) {
	var stored storedAccount
	ok, err := s.get(accountKey(addr), &stored)
	if err != nil || !ok {
		return nil, err
	}
	return &types.Account{Nonce: stored.Nonce, BalanceWei: stored.BalanceWei}, nil
}

func (s *Store) PutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		return nil
	}
	stored := storedAccount{
		Nonce:      account.Nonce,
		BalanceWei: zeroIfNil(account.BalanceWei),
	}
	return s.put(accountKey(addr), stored)
}

// --- custody registry ---

// RegisterAsset records the initial holder of a collateral asset.
func (s *Store) RegisterAsset(assetID uint64, holder [20]byte) error {
	return s.db.Put(assetKey(custodyPrefix, assetID), holder[:])
}

// Owner returns the current holder of the asset.
func (s *Store) Owner(assetID uint64) ([20]byte, error) {
	var holder [20]byte
	raw, err := s.db.Get(assetKey(custodyPrefix, assetID))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return holder, ErrAssetUnknown
	}
	if err != nil {
		return holder, err
	}
	copy(holder[:], raw)
	return holder, nil
}

// Transfer moves custody of the asset between accounts. The from account
// must currently hold the asset.
func (s *Store) Transfer(assetID uint64, from, to [20]byte) error {
	holder, err := s.Owner(assetID)
	if err != nil {
		return err
	}
	if holder != from {
		return ErrNotAssetHolder
	}
	return s.db.Put(assetKey(custodyPrefix, assetID), to[:])
}

func zeroIfNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
