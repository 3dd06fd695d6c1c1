package domain

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

type OrderBookStatus string

const (
	OrderBookStatus_AwaitingSnapshot OrderBookStatus = "AwaitingSnapshot"
	OrderBookStatus_Ok               OrderBookStatus = "Ok"
	// deltas were applied without a snapshot since the last reset
	OrderBookStatus_Unanchored OrderBookStatus = "Unanchored"
)

var (
	ErrResyncRequired     = errors.New("order book resync required")
	ErrInvalidBookMessage = errors.New("invalid book message")
)

type OrderBookSnapshot struct {
	Symbol     string       `json:"symbol"`
	Status     string       `json:"status"`
	LastSeqNum int64        `json:"lastSeqNum"`
	Bids       []PriceLevel `json:"bids"`
	Asks       []PriceLevel `json:"asks"`
}

// OrderBook turns a stream of snapshot and delta messages into the current
// book. Both sides are stored highest price first.
type OrderBook struct {
	Symbol         string
	LastUpdateTime int64

	bids   *QuoteLedger
	asks   *QuoteLedger
	guard  ISequenceGuard
	status OrderBookStatus

	updateMx *sync.Mutex
}

func NewOrderBook(symbol string, guard ISequenceGuard) *OrderBook {
	if guard == nil {
		guard = NewSequenceGuard()
	}

	return &OrderBook{
		Symbol: symbol,
		bids:   NewQuoteLedger(Side_Bid),
		asks:   NewQuoteLedger(Side_Ask),
		guard:  guard,
		status: OrderBookStatus_AwaitingSnapshot,

		updateMx: &sync.Mutex{},
	}
}

// Apply validates msg against the sequence and merges it into the book.
//
// A message of unknown type or with an unparseable level is rejected before
// anything changes. Zero sizes inside a snapshot are skipped, not stored.
// A delta that does not continue the sequence clears the book and returns
// an error wrapping ErrResyncRequired; the caller must resubscribe.
func (ob *OrderBook) Apply(msg *BookMessage) error {
	if msg.Type != BookMessageType_Snapshot && msg.Type != BookMessageType_Delta {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidBookMessage, msg.Type)
	}

	bids, err := parsePriceLevels(msg.Bids)
	if err != nil {
		return fmt.Errorf("bids: %w", err)
	}
	asks, err := parsePriceLevels(msg.Asks)
	if err != nil {
		return fmt.Errorf("asks: %w", err)
	}

	ob.updateMx.Lock()
	defer ob.updateMx.Unlock()

	if err := ob.guard.Validate(msg); err != nil {
		ob.reset()
		return fmt.Errorf("%w: %w", ErrResyncRequired, err)
	}

	switch msg.Type {
	case BookMessageType_Snapshot:
		ob.bids.replace(bids)
		ob.asks.replace(asks)
		ob.status = OrderBookStatus_Ok

	case BookMessageType_Delta:
		ob.bids.applyAll(bids)
		ob.asks.applyAll(asks)
		if ob.status == OrderBookStatus_AwaitingSnapshot {
			ob.status = OrderBookStatus_Unanchored
		}
	}

	ob.LastUpdateTime = time.Now().Unix()
	return nil
}

// Reset drops both sides and the sequence state.
func (ob *OrderBook) Reset() {
	ob.updateMx.Lock()
	defer ob.updateMx.Unlock()

	ob.reset()
}

func (ob *OrderBook) reset() {
	ob.bids.Clear()
	ob.asks.Clear()
	ob.guard.Reset()
	ob.status = OrderBookStatus_AwaitingSnapshot
}

func (ob *OrderBook) Bids() []PriceLevel {
	ob.updateMx.Lock()
	defer ob.updateMx.Unlock()

	return ob.bids.Levels()
}

func (ob *OrderBook) Asks() []PriceLevel {
	ob.updateMx.Lock()
	defer ob.updateMx.Unlock()

	return ob.asks.Levels()
}

func (ob *OrderBook) Status() OrderBookStatus {
	ob.updateMx.Lock()
	defer ob.updateMx.Unlock()

	return ob.status
}

func (ob *OrderBook) LastSeqNum() (int64, bool) {
	ob.updateMx.Lock()
	defer ob.updateMx.Unlock()

	return ob.guard.LastSeqNum()
}

// TakeSnapshot copies the book, keeping at most limit levels per side
// nearest the best price. Asks are returned lowest price first.
func (ob *OrderBook) TakeSnapshot(limit int) *OrderBookSnapshot {
	ob.updateMx.Lock()
	defer ob.updateMx.Unlock()

	bids := ob.bids.Levels()
	asks := ob.asks.Levels()
	for i, j := 0, len(asks)-1; i < j; i, j = i+1, j-1 {
		asks[i], asks[j] = asks[j], asks[i]
	}

	seqNum, _ := ob.guard.LastSeqNum()
	return &OrderBookSnapshot{
		Symbol:     ob.Symbol,
		Status:     string(ob.status),
		LastSeqNum: seqNum,
		Bids:       LimitDepth(bids, limit),
		Asks:       LimitDepth(asks, limit),
	}
}
