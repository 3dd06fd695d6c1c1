package usecase

import (
	"context"
	"errors"

	"github.com/spooky-finn/orderbook-view/config"
	"github.com/spooky-finn/orderbook-view/domain"
	"github.com/spooky-finn/orderbook-view/helpers"
	promclient "github.com/spooky-finn/orderbook-view/infrastructure/prometheus"
)

var ErrStreamsClosed = errors.New("provider streams are closed")

const (
	outcome_Applied  = "applied"
	outcome_Resync   = "resync"
	outcome_Rejected = "rejected"
	outcome_Panic    = "panic"
)

// OrderbookMaintainer is the single consumer of both feeds of a venue. Book
// events and trade events are applied one at a time on the goroutine calling
// Run, so the book never sees concurrent writers.
type OrderbookMaintainer struct {
	streamAPI domain.ProviderStreamAPI
	view      *OrderBookViewUseCase

	OutOfSequenceErrCount int
}

func NewOrderBookMaintainer(streamAPI domain.ProviderStreamAPI, view *OrderBookViewUseCase) *OrderbookMaintainer {
	return &OrderbookMaintainer{
		streamAPI: streamAPI,
		view:      view,
	}
}

// Run subscribes to both feeds and applies their events until ctx is done or
// both streams are closed by the provider.
func (m *OrderbookMaintainer) Run(ctx context.Context) error {
	bookSub, err := m.streamAPI.OrderBookStream()
	if err != nil {
		return err
	}
	defer bookSub.Unsubscribe()

	tradeSub, err := m.streamAPI.TradeStream()
	if err != nil {
		return err
	}
	defer tradeSub.Unsubscribe()

	defer m.view.Close()

	bookEvents := bookSub.Stream
	tradeEvents := tradeSub.Stream

	for {
		if bookEvents == nil && tradeEvents == nil {
			return ErrStreamsClosed
		}

		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-bookEvents:
			if !ok {
				logger.Warnf("order book stream %s is closed", bookSub.Topic)
				bookEvents = nil
				continue
			}
			m.handleBookEvent(event)

		case event, ok := <-tradeEvents:
			if !ok {
				logger.Warnf("trade stream %s is closed", tradeSub.Topic)
				tradeEvents = nil
				continue
			}
			m.handleTradeEvent(event)
		}
	}
}

func (m *OrderbookMaintainer) handleBookEvent(event domain.StreamEvent[*domain.BookMessage]) {
	if event.Reconnected {
		logger.Infof("order book feed (re)connected, waiting for a snapshot")
		m.view.Reset()
		return
	}

	msg := event.Message
	if msg == nil {
		return
	}

	err := helpers.Recover(func() error {
		return m.view.ApplyBookMessage(msg)
	})

	var panicErr *helpers.PanicError
	switch {
	case err == nil:
		promclient.BookMessagesCounter.WithLabelValues(string(msg.Type), outcome_Applied).Inc()

	case errors.Is(err, domain.ErrResyncRequired):
		m.OutOfSequenceErrCount++
		promclient.BookMessagesCounter.WithLabelValues(string(msg.Type), outcome_Resync).Inc()
		promclient.ResyncCounter.Inc()
		logger.Warnf("%v, seqNum=%d prevSeqNum=%d. Re-subscribing...", err, msg.SeqNum, msg.PrevSeqNum)

		if err := m.streamAPI.ResubscribeOrderBook(); err != nil {
			logger.Errorf("failed to resubscribe order book: %v", err)
		}

	case errors.As(err, &panicErr):
		promclient.BookMessagesCounter.WithLabelValues(string(msg.Type), outcome_Panic).Inc()
		logger.WithField("message", helpers.ToJsonString(msg)).
			Errorf("recovered while applying order book message: %v\n%s", panicErr.Value, panicErr.Stack)

	default:
		promclient.BookMessagesCounter.WithLabelValues(string(msg.Type), outcome_Rejected).Inc()
		logger.Warnf("order book message seqNum=%d dropped: %v", msg.SeqNum, err)
	}

	if config.DebugMode {
		logger.Debugf("processed %s seqNum=%d status=%s", msg.Type, msg.SeqNum, m.view.View().Status)
	}
}

func (m *OrderbookMaintainer) handleTradeEvent(event domain.StreamEvent[*domain.TradeMessage]) {
	if event.Reconnected || event.Message == nil {
		return
	}

	err := helpers.Recover(func() error {
		m.view.ApplyTradeMessage(event.Message)
		return nil
	})
	if err != nil {
		logger.WithField("message", helpers.ToJsonString(event.Message)).Errorf("recovered while applying trade message: %v", err)
	}
}
