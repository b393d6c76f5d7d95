package metrics

import (
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"lienchain/core/events"
)

type captureEmitter struct {
	seen []string
}

func (c *captureEmitter) Emit(evt events.Event) {
	c.seen = append(c.seen, evt.EventType())
}

func TestEmitterCountsAndForwards(t *testing.T) {
	next := &captureEmitter{}
	emitter := NewEmitter(next)
	m := Protocol()

	openedBefore := testutil.ToFloat64(m.loansOpened)
	repaidBefore := testutil.ToFloat64(m.loansRepaid)
	soldBefore := testutil.ToFloat64(m.auctionsSold)

	emitter.Emit(events.LoanCreated{AssetID: 1, Principal: big.NewInt(100)})
	emitter.Emit(events.LoanCreated{AssetID: 2, Principal: big.NewInt(100)})
	emitter.Emit(events.LoanRepaid{AssetID: 1, Owed: big.NewInt(120)})
	emitter.Emit(events.AuctionSold{AssetID: 2, ClearingPrice: big.NewInt(50)})

	require.Equal(t, openedBefore+2, testutil.ToFloat64(m.loansOpened))
	require.Equal(t, repaidBefore+1, testutil.ToFloat64(m.loansRepaid))
	require.Equal(t, soldBefore+1, testutil.ToFloat64(m.auctionsSold))

	require.Equal(t, []string{
		events.TypeLoanCreated,
		events.TypeLoanCreated,
		events.TypeLoanRepaid,
		events.TypeAuctionSold,
	}, next.seen)
}

func TestEmitterLabelsClosedReasons(t *testing.T) {
	emitter := NewEmitter(nil)
	m := Protocol()

	activatedBefore := testutil.ToFloat64(m.auctionsClosed.WithLabelValues("activated"))
	withdrawnBefore := testutil.ToFloat64(m.auctionsClosed.WithLabelValues("withdrawn"))

	emitter.Emit(events.AuctionActivated{AssetID: 7})
	emitter.Emit(events.AuctionWithdrawn{AssetID: 7})

	require.Equal(t, activatedBefore+1, testutil.ToFloat64(m.auctionsClosed.WithLabelValues("activated")))
	require.Equal(t, withdrawnBefore+1, testutil.ToFloat64(m.auctionsClosed.WithLabelValues("withdrawn")))
}

func TestEmitterIgnoresNilEvents(t *testing.T) {
	next := &captureEmitter{}
	emitter := NewEmitter(next)

	emitter.Emit(nil)
	require.Empty(t, next.seen)
}
