package btse

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spooky-finn/orderbook-view/config"
	"github.com/spooky-finn/orderbook-view/domain"
	"github.com/spooky-finn/orderbook-view/helpers"
	promclient "github.com/spooky-finn/orderbook-view/infrastructure/prometheus"
)

const (
	Feed_OrderBook = "orderbook"
	Feed_Trade     = "trade"
)

const (
	dropReason_Decode = "decode"
	dropReason_Topic  = "topic"
	dropReason_Schema = "schema"
)

var (
	ErrUnexpectedTopic   = errors.New("unexpected topic")
	ErrInvalidFrame      = errors.New("invalid frame")
	ErrAlreadySubscribed = errors.New("stream is already subscribed")
)

type Envelope struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

type OrderBookData struct {
	Type       string     `json:"type" validate:"required,oneof=snapshot delta"`
	Bids       [][]string `json:"bids" validate:"required,dive,len=2,dive,numeric"`
	Asks       [][]string `json:"asks" validate:"required,dive,len=2,dive,numeric"`
	SeqNum     *int64     `json:"seqNum" validate:"required"`
	PrevSeqNum *int64     `json:"prevSeqNum" validate:"required"`
	Symbol     string     `json:"symbol" validate:"required"`
	Timestamp  *int64     `json:"timestamp" validate:"required"`
}

type TradeData struct {
	Symbol    string      `json:"symbol" validate:"required"`
	Side      string      `json:"side" validate:"required,oneof=BUY SELL"`
	Size      json.Number `json:"size" validate:"required,numeric"`
	Price     json.Number `json:"price" validate:"required,numeric"`
	TradeID   *int64      `json:"tradeId" validate:"required"`
	Timestamp *int64      `json:"timestamp" validate:"required"`
}

type tradeFrame struct {
	Data []TradeData `json:"data" validate:"required,dive"`
}

// StreamAPI turns the raw BTSE frames into validated domain messages.
// Frames of other topics and frames failing the schema are logged, counted
// and dropped; they never reach the book.
type StreamAPI struct {
	symbol    string
	orderbook *StreamClient
	trades    *StreamClient
	validate  *validator.Validate

	mu         sync.Mutex
	subscribed map[string]bool
}

func NewStreamAPI(symbol string, orderbook *StreamClient, trades *StreamClient) *StreamAPI {
	return &StreamAPI{
		symbol:     symbol,
		orderbook:  orderbook,
		trades:     trades,
		validate:   newValidator(),
		subscribed: make(map[string]bool),
	}
}

// NewStreamClients builds the order book and trade clients of symbol from the
// process configuration.
func NewStreamClients(conf *config.Config) (orderbook *StreamClient, trades *StreamClient) {
	orderbook = NewStreamClient(StreamClientConfig{
		Feed:             Feed_OrderBook,
		Endpoint:         conf.OrderBookEndpoint,
		Topic:            domain.OrderBookTopic(conf.Symbol),
		HandshakeTimeout: conf.HandshakeTimeout,
		KeepAliveTimeout: conf.KeepAliveTimeout,
	})
	trades = NewStreamClient(StreamClientConfig{
		Feed:             Feed_Trade,
		Endpoint:         conf.TradeEndpoint,
		Topic:            domain.TradeHistoryTopic(conf.Symbol),
		HandshakeTimeout: conf.HandshakeTimeout,
		KeepAliveTimeout: conf.KeepAliveTimeout,
	})

	return orderbook, trades
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

func (a *StreamAPI) OrderBookStream() (*domain.Subscription[domain.StreamEvent[*domain.BookMessage]], error) {
	if err := a.markSubscribed(Feed_OrderBook); err != nil {
		return nil, err
	}
	if err := a.orderbook.Connect(); err != nil {
		return nil, err
	}

	stream := make(chan domain.StreamEvent[*domain.BookMessage])
	stop := make(chan struct{})
	go forward(a.orderbook.Frames(), stream, stop, Feed_OrderBook, a.DecodeOrderBook)

	return &domain.Subscription[domain.StreamEvent[*domain.BookMessage]]{
		Stream:      stream,
		Unsubscribe: stopOnce(stop),
		Topic:       domain.OrderBookTopic(a.symbol),
	}, nil
}

func (a *StreamAPI) TradeStream() (*domain.Subscription[domain.StreamEvent[*domain.TradeMessage]], error) {
	if err := a.markSubscribed(Feed_Trade); err != nil {
		return nil, err
	}
	if err := a.trades.Connect(); err != nil {
		return nil, err
	}

	stream := make(chan domain.StreamEvent[*domain.TradeMessage])
	stop := make(chan struct{})
	go forward(a.trades.Frames(), stream, stop, Feed_Trade, a.DecodeTrades)

	return &domain.Subscription[domain.StreamEvent[*domain.TradeMessage]]{
		Stream:      stream,
		Unsubscribe: stopOnce(stop),
		Topic:       domain.TradeHistoryTopicPrefix,
	}, nil
}

func (a *StreamAPI) ResubscribeOrderBook() error {
	return a.orderbook.Resubscribe()
}

func (a *StreamAPI) Close() error {
	return errors.Join(a.orderbook.Close(), a.trades.Close())
}

func (a *StreamAPI) markSubscribed(feed string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.subscribed[feed] {
		return fmt.Errorf("%s: %w", feed, ErrAlreadySubscribed)
	}
	a.subscribed[feed] = true
	return nil
}

// DecodeOrderBook parses one order book frame. Only frames published under
// the update topic of the configured symbol are accepted.
func (a *StreamAPI) DecodeOrderBook(payload []byte) (*domain.BookMessage, error) {
	var envelope Envelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}

	if expected := domain.OrderBookTopic(a.symbol); envelope.Topic != expected {
		return nil, fmt.Errorf("%w: %q", ErrUnexpectedTopic, envelope.Topic)
	}

	var data OrderBookData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if err := a.validate.Struct(&data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}

	return &domain.BookMessage{
		Topic:      envelope.Topic,
		Symbol:     data.Symbol,
		Type:       domain.BookMessageType(data.Type),
		Bids:       domain.PriceLevelsFromTuples(data.Bids),
		Asks:       domain.PriceLevelsFromTuples(data.Asks),
		SeqNum:     *data.SeqNum,
		PrevSeqNum: *data.PrevSeqNum,
		Timestamp:  *data.Timestamp,
	}, nil
}

// DecodeTrades parses one trade history frame. Trade frames carry the bare
// tradeHistoryApi topic.
func (a *StreamAPI) DecodeTrades(payload []byte) (*domain.TradeMessage, error) {
	var envelope Envelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}

	if envelope.Topic != domain.TradeHistoryTopicPrefix {
		return nil, fmt.Errorf("%w: %q", ErrUnexpectedTopic, envelope.Topic)
	}

	var frame tradeFrame
	if err := json.Unmarshal(envelope.Data, &frame.Data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if err := a.validate.Struct(&frame); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}

	msg := &domain.TradeMessage{
		Topic:  envelope.Topic,
		Trades: make([]domain.Trade, 0, len(frame.Data)),
	}
	for _, item := range frame.Data {
		price, err := decimal.NewFromString(item.Price.String())
		if err != nil {
			return nil, fmt.Errorf("%w: price: %v", ErrInvalidFrame, err)
		}
		size, err := decimal.NewFromString(item.Size.String())
		if err != nil {
			return nil, fmt.Errorf("%w: size: %v", ErrInvalidFrame, err)
		}

		msg.Trades = append(msg.Trades, domain.Trade{
			Symbol:    item.Symbol,
			Side:      domain.TradeSide(item.Side),
			Size:      size,
			Price:     price,
			TradeID:   *item.TradeID,
			Timestamp: *item.Timestamp,
		})
	}

	return msg, nil
}

func forward[T any](
	frames <-chan Frame,
	out chan domain.StreamEvent[T],
	stop <-chan struct{},
	feed string,
	decode func([]byte) (T, error),
) {
	defer close(out)

	for {
		var f Frame
		var ok bool
		select {
		case <-stop:
			return
		case f, ok = <-frames:
			if !ok {
				return
			}
		}

		var event domain.StreamEvent[T]
		if f.Reconnected {
			event.Reconnected = true
		} else {
			msg, err := decode(f.Payload)
			if err != nil {
				drop(feed, f.Payload, err)
				continue
			}
			event.Message = msg
		}

		select {
		case <-stop:
			return
		case out <- event:
		}
	}
}

func drop(feed string, payload []byte, err error) {
	reason := dropReason_Schema
	switch {
	case errors.Is(err, ErrUnexpectedTopic):
		reason = dropReason_Topic
	case !json.Valid(payload):
		reason = dropReason_Decode
	}
	promclient.DroppedFramesCounter.WithLabelValues(feed, reason).Inc()

	// subscription acks and other channels share the socket
	if reason == dropReason_Topic {
		logger.Debugf("%s: dropped frame: %v", feed, err)
		return
	}
	logger.WithField("frame", helpers.Truncate(string(payload), 512)).Warnf("%s: dropped frame: %v", feed, err)
}

func stopOnce(stop chan struct{}) func() {
	var once sync.Once
	return func() {
		once.Do(func() { close(stop) })
	}
}
