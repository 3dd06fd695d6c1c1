package domain

import "github.com/shopspring/decimal"

type BookMessageType string

const (
	BookMessageType_Snapshot BookMessageType = "snapshot"
	BookMessageType_Delta    BookMessageType = "delta"
)

// BookMessage is a validated order book frame of the subscribed symbol.
type BookMessage struct {
	Topic      string
	Symbol     string
	Type       BookMessageType
	Bids       []PriceLevel
	Asks       []PriceLevel
	SeqNum     int64
	PrevSeqNum int64
	Timestamp  int64
}

func NewSnapshotMessage(bids []PriceLevel, asks []PriceLevel, seqNum int64) *BookMessage {
	return &BookMessage{
		Type:   BookMessageType_Snapshot,
		Bids:   bids,
		Asks:   asks,
		SeqNum: seqNum,
	}
}

func NewDeltaMessage(bids []PriceLevel, asks []PriceLevel, prevSeqNum int64, seqNum int64) *BookMessage {
	return &BookMessage{
		Type:       BookMessageType_Delta,
		Bids:       bids,
		Asks:       asks,
		SeqNum:     seqNum,
		PrevSeqNum: prevSeqNum,
	}
}

type TradeSide string

const (
	TradeSide_Buy  TradeSide = "BUY"
	TradeSide_Sell TradeSide = "SELL"
)

type Trade struct {
	Symbol    string
	Side      TradeSide
	Size      decimal.Decimal
	Price     decimal.Decimal
	TradeID   int64
	Timestamp int64
}

// TradeMessage holds the trades of one frame, most recent first.
type TradeMessage struct {
	Topic  string
	Trades []Trade
}

// StreamEvent is what a feed hands to its consumer: either a decoded
// message, or a marker that the transport (re)connected and subscribed again.
type StreamEvent[T any] struct {
	Reconnected bool
	Message     T
}

func OrderBookTopic(symbol string) string {
	return "update:" + symbol
}

func TradeHistoryTopic(symbol string) string {
	return TradeHistoryTopicPrefix + ":" + symbol
}

// Trade frames are published under the bare prefix regardless of symbol.
const TradeHistoryTopicPrefix = "tradeHistoryApi"
