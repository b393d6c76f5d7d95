package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"lienchain/core/events"
)

// ProtocolMetrics aggregates counters for loan and auction lifecycle events.
type ProtocolMetrics struct {
	loansOpened    prometheus.Counter
	loansRepaid    prometheus.Counter
	loansClawed    prometheus.Counter
	auctionsOpened prometheus.Counter
	auctionsSold   prometheus.Counter
	auctionsClosed *prometheus.CounterVec
}

var (
	protocolOnce     sync.Once
	protocolRegistry *ProtocolMetrics
)

// Protocol returns the process-wide protocol metrics, registering the
// collectors on first use.
func Protocol() *ProtocolMetrics {
	protocolOnce.Do(func() {
		protocolRegistry = &ProtocolMetrics{
			loansOpened: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lien_loans_opened_total",
				Help: "Count of loans registered by borrow operations.",
			}),
			loansRepaid: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lien_loans_repaid_total",
				Help: "Count of loans settled by repayment.",
			}),
			loansClawed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lien_loans_clawed_back_total",
				Help: "Count of expired loans seized by the liquidator.",
			}),
			auctionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lien_auctions_scheduled_total",
				Help: "Count of liquidation sales scheduled.",
			}),
			auctionsSold: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lien_auctions_sold_total",
				Help: "Count of liquidation sales settled by purchase.",
			}),
			auctionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lien_auctions_closed_total",
				Help: "Count of sales closed without a purchase, by reason.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			protocolRegistry.loansOpened,
			protocolRegistry.loansRepaid,
			protocolRegistry.loansClawed,
			protocolRegistry.auctionsOpened,
			protocolRegistry.auctionsSold,
			protocolRegistry.auctionsClosed,
		)
	})
	return protocolRegistry
}

// Emitter adapts the protocol metrics to the events.Emitter interface so the
// engines can be observed without extra wiring.
type Emitter struct {
	metrics *ProtocolMetrics
	next    events.Emitter
}

// NewEmitter builds an emitter that counts events and forwards them to next.
// A nil next discards the events after counting.
func NewEmitter(next events.Emitter) *Emitter {
	if next == nil {
		next = events.NoopEmitter{}
	}
	return &Emitter{metrics: Protocol(), next: next}
}

// Emit implements events.Emitter.
func (e *Emitter) Emit(evt events.Event) {
	if e == nil || evt == nil {
		return
	}
	switch evt.EventType() {
	case events.TypeLoanCreated:
		e.metrics.loansOpened.Inc()
	case events.TypeLoanRepaid:
		e.metrics.loansRepaid.Inc()
	case events.TypeLoanClawedBack:
		e.metrics.loansClawed.Inc()
	case events.TypeAuctionScheduled:
		e.metrics.auctionsOpened.Inc()
	case events.TypeAuctionSold:
		e.metrics.auctionsSold.Inc()
	case events.TypeAuctionActivated:
		e.metrics.auctionsClosed.WithLabelValues("activated").Inc()
	case events.TypeAuctionWithdrawn:
		e.metrics.auctionsClosed.WithLabelValues("withdrawn").Inc()
	}
	e.next.Emit(evt)
}
