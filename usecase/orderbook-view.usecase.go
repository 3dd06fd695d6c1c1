package usecase

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spooky-finn/orderbook-view/domain"
	promclient "github.com/spooky-finn/orderbook-view/infrastructure/prometheus"
	"github.com/spooky-finn/orderbook-view/view"
)

var logger = logrus.WithField("component", "orderbook-view-usecase")

// OrderBookView is what the presentation layer renders. Both sides are
// ordered highest price first.
type OrderBookView struct {
	Symbol         string
	Status         domain.OrderBookStatus
	SeqNum         int64
	Bids           []view.DisplayLevel
	Asks           []view.DisplayLevel
	RowHighlights  map[string]view.Tag
	CellHighlights map[string]view.Tag
	LastPrice      decimal.Decimal
	HasLastPrice   bool
	Direction      domain.PriceDirection
}

// OrderBookViewUseCase runs every accepted book mutation through aggregation,
// classification against the previous view, and the highlight scheduler.
// Writes come from a single maintainer goroutine; View may be called from
// anywhere.
type OrderBookViewUseCase struct {
	mu sync.RWMutex

	book      *domain.OrderBook
	scheduler *view.HighlightScheduler
	lastPrice *domain.LastPriceTracker

	bids     []view.DisplayLevel
	asks     []view.DisplayLevel
	prevBids []domain.PriceLevel
	prevAsks []domain.PriceLevel
}

func NewOrderBookViewUseCase(symbol string, scheduler *view.HighlightScheduler) *OrderBookViewUseCase {
	if scheduler == nil {
		scheduler = view.NewHighlightScheduler(nil, view.DefaultHighlightDwell)
	}
	scheduler.OnChange(func(class view.HighlightClass, active int) {
		promclient.ActiveHighlightsGauge.WithLabelValues(string(class)).Set(float64(active))
	})

	return &OrderBookViewUseCase{
		book:      domain.NewOrderBook(symbol, nil),
		scheduler: scheduler,
		lastPrice: domain.NewLastPriceTracker(),
	}
}

// ApplyBookMessage merges msg into the book and refreshes the view.
//
// On a sequence gap the book, the derived view and all pending highlights are
// dropped and an error wrapping domain.ErrResyncRequired is returned; the
// caller has to resubscribe. Any other error leaves the view as it was.
func (u *OrderBookViewUseCase) ApplyBookMessage(msg *domain.BookMessage) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	statusBefore := u.book.Status()
	if err := u.book.Apply(msg); err != nil {
		if errors.Is(err, domain.ErrResyncRequired) {
			u.clear()
		}
		return err
	}

	if status := u.book.Status(); status == domain.OrderBookStatus_Unanchored && statusBefore != status {
		logger.Warnf("%s: delta seq=%d applied before any snapshot, book is not anchored", u.book.Symbol, msg.SeqNum)
	}

	bids, asks := u.book.Bids(), u.book.Asks()
	u.bids, u.asks = view.Aggregate(bids, asks)

	changes := view.Classify(bids, asks, u.prevBids, u.prevAsks)
	if len(changes.Collisions) > 0 {
		logger.Warnf("%s: prices %v tagged on both sides, bid tag kept", u.book.Symbol, changes.Collisions)
	}
	u.scheduler.Trigger(changes)

	u.prevBids, u.prevAsks = bids, asks

	promclient.BookLevelsGauge.WithLabelValues(string(domain.Side_Bid)).Set(float64(len(bids)))
	promclient.BookLevelsGauge.WithLabelValues(string(domain.Side_Ask)).Set(float64(len(asks)))
	return nil
}

// ApplyTradeMessage updates the last price from the most recent trade.
// The book is never touched.
func (u *OrderBookViewUseCase) ApplyTradeMessage(msg *domain.TradeMessage) {
	u.mu.Lock()
	defer u.mu.Unlock()

	price, direction, ok := u.lastPrice.Observe(msg)
	if ok && logrus.IsLevelEnabled(logrus.DebugLevel) {
		logger.Debugf("last price %s direction=%q", price, direction)
	}
}

// Reset empties the book and the view, used when the transport reconnects.
func (u *OrderBookViewUseCase) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.book.Reset()
	u.clear()
}

func (u *OrderBookViewUseCase) clear() {
	u.scheduler.CancelAll()
	u.bids, u.asks = nil, nil
	u.prevBids, u.prevAsks = nil, nil

	promclient.BookLevelsGauge.WithLabelValues(string(domain.Side_Bid)).Set(0)
	promclient.BookLevelsGauge.WithLabelValues(string(domain.Side_Ask)).Set(0)
}

func (u *OrderBookViewUseCase) View() OrderBookView {
	u.mu.RLock()
	defer u.mu.RUnlock()

	seqNum, _ := u.book.LastSeqNum()
	price, direction, hasPrice := u.lastPrice.Last()

	return OrderBookView{
		Symbol:         u.book.Symbol,
		Status:         u.book.Status(),
		SeqNum:         seqNum,
		Bids:           append([]view.DisplayLevel(nil), u.bids...),
		Asks:           append([]view.DisplayLevel(nil), u.asks...),
		RowHighlights:  u.scheduler.Rows(),
		CellHighlights: u.scheduler.Cells(),
		LastPrice:      price,
		HasLastPrice:   hasPrice,
		Direction:      direction,
	}
}

// Snapshot copies the raw book, at most limit levels per side.
func (u *OrderBookViewUseCase) Snapshot(limit int) *domain.OrderBookSnapshot {
	return u.book.TakeSnapshot(limit)
}

// Close cancels every pending highlight timer.
func (u *OrderBookViewUseCase) Close() {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.scheduler.CancelAll()
}
