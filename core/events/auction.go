package events

import (
	"fmt"
	"math/big"

	"lienchain/core/types"
	"lienchain/crypto"
)

const (
	// TypeAuctionScheduled is emitted when a liquidation sale is registered.
	TypeAuctionScheduled = "auction.scheduled"
	// TypeAuctionActivated is emitted when the operator closes public bidding.
	TypeAuctionActivated = "auction.activated"
	// TypeAuctionSold is emitted when a purchase settles.
	TypeAuctionSold = "auction.sold"
	// TypeAuctionWithdrawn is emitted when the pool owner force-recovers an asset.
	TypeAuctionWithdrawn = "auction.withdrawn"
)

type AuctionScheduled struct {
	AssetID    uint64
	StartPrice *big.Int
	EndPrice   *big.Int
	StartTime  int64
	EndTime    int64
}

func (AuctionScheduled) EventType() string { return TypeAuctionScheduled }

func (e AuctionScheduled) Event() *types.Event {
	start := big.NewInt(0)
	if e.StartPrice != nil {
		start = new(big.Int).Set(e.StartPrice)
	}
	end := big.NewInt(0)
	if e.EndPrice != nil {
		end = new(big.Int).Set(e.EndPrice)
	}
	return &types.Event{
		Type: TypeAuctionScheduled,
		Attributes: map[string]string{
			"assetId":    fmt.Sprintf("%d", e.AssetID),
			"startPrice": start.String(),
			"endPrice":   end.String(),
			"startTime":  fmt.Sprintf("%d", e.StartTime),
			"endTime":    fmt.Sprintf("%d", e.EndTime),
		},
	}
}

type AuctionActivated struct {
	AssetID uint64
}

func (AuctionActivated) EventType() string { return TypeAuctionActivated }

func (e AuctionActivated) Event() *types.Event {
	return &types.Event{
		Type:       TypeAuctionActivated,
		Attributes: map[string]string{"assetId": fmt.Sprintf("%d", e.AssetID)},
	}
}

type AuctionSold struct {
	AssetID       uint64
	Buyer         [20]byte
	ClearingPrice *big.Int
	FeeAmount     *big.Int
}

func (AuctionSold) EventType() string { return TypeAuctionSold }

func (e AuctionSold) Event() *types.Event {
	clearing := big.NewInt(0)
	if e.ClearingPrice != nil {
		clearing = new(big.Int).Set(e.ClearingPrice)
	}
	fee := big.NewInt(0)
	if e.FeeAmount != nil {
		fee = new(big.Int).Set(e.FeeAmount)
	}
	return &types.Event{
		Type: TypeAuctionSold,
		Attributes: map[string]string{
			"assetId":       fmt.Sprintf("%d", e.AssetID),
			"buyer":         crypto.NewAddress(crypto.LienPrefix, e.Buyer[:]).String(),
			"clearingPrice": clearing.String(),
			"feeAmount":     fee.String(),
		},
	}
}

type AuctionWithdrawn struct {
	AssetID uint64
	Owner   [20]byte
}

func (AuctionWithdrawn) EventType() string { return TypeAuctionWithdrawn }

func (e AuctionWithdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeAuctionWithdrawn,
		Attributes: map[string]string{
			"assetId": fmt.Sprintf("%d", e.AssetID),
			"owner":   crypto.NewAddress(crypto.LienPrefix, e.Owner[:]).String(),
		},
	}
}
