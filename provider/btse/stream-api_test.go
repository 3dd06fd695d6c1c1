package btse

import (
	"testing"

	"github.com/spooky-finn/orderbook-view/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI() *StreamAPI {
	return NewStreamAPI("BTCPFC", nil, nil)
}

func TestStreamAPI_DecodeOrderBook(t *testing.T) {
	api := newTestAPI()

	msg, err := api.DecodeOrderBook([]byte(`{
		"topic": "update:BTCPFC",
		"data": {
			"type": "delta",
			"bids": [["100.5", "2"], ["100", "0"]],
			"asks": [["101", "3"]],
			"seqNum": 11,
			"prevSeqNum": 10,
			"symbol": "BTCPFC",
			"timestamp": 1700000000000
		}
	}`))
	require.NoError(t, err)

	assert.Equal(t, domain.BookMessageType_Delta, msg.Type)
	assert.Equal(t, "update:BTCPFC", msg.Topic)
	assert.Equal(t, "BTCPFC", msg.Symbol)
	assert.Equal(t, int64(11), msg.SeqNum)
	assert.Equal(t, int64(10), msg.PrevSeqNum)
	assert.Equal(t, int64(1700000000000), msg.Timestamp)
	assert.Equal(t, []domain.PriceLevel{{Price: "100.5", Size: "2"}, {Price: "100", Size: "0"}}, msg.Bids)
	assert.Equal(t, []domain.PriceLevel{{Price: "101", Size: "3"}}, msg.Asks)
}

func TestStreamAPI_DecodeOrderBook_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected error
	}{
		{
			name:     "NotJSON",
			payload:  `{"topic":`,
			expected: ErrInvalidFrame,
		},
		{
			name:     "SubscriptionAck",
			payload:  `{"event":"subscribe","channel":["update:BTCPFC"]}`,
			expected: ErrUnexpectedTopic,
		},
		{
			name:     "OtherSymbol",
			payload:  `{"topic":"update:ETHPFC","data":{"type":"snapshot","bids":[],"asks":[],"seqNum":1,"prevSeqNum":0,"symbol":"ETHPFC","timestamp":1}}`,
			expected: ErrUnexpectedTopic,
		},
		{
			name:     "UnknownType",
			payload:  `{"topic":"update:BTCPFC","data":{"type":"partial","bids":[],"asks":[],"seqNum":1,"prevSeqNum":0,"symbol":"BTCPFC","timestamp":1}}`,
			expected: ErrInvalidFrame,
		},
		{
			name:     "MissingSeqNum",
			payload:  `{"topic":"update:BTCPFC","data":{"type":"delta","bids":[],"asks":[],"prevSeqNum":0,"symbol":"BTCPFC","timestamp":1}}`,
			expected: ErrInvalidFrame,
		},
		{
			name:     "MissingBids",
			payload:  `{"topic":"update:BTCPFC","data":{"type":"delta","asks":[],"seqNum":1,"prevSeqNum":0,"symbol":"BTCPFC","timestamp":1}}`,
			expected: ErrInvalidFrame,
		},
		{
			name:     "ShortTuple",
			payload:  `{"topic":"update:BTCPFC","data":{"type":"delta","bids":[["100"]],"asks":[],"seqNum":1,"prevSeqNum":0,"symbol":"BTCPFC","timestamp":1}}`,
			expected: ErrInvalidFrame,
		},
		{
			name:     "NonNumericSize",
			payload:  `{"topic":"update:BTCPFC","data":{"type":"delta","bids":[],"asks":[["101","lots"]],"seqNum":1,"prevSeqNum":0,"symbol":"BTCPFC","timestamp":1}}`,
			expected: ErrInvalidFrame,
		},
		{
			name:     "SeqNumAsString",
			payload:  `{"topic":"update:BTCPFC","data":{"type":"delta","bids":[],"asks":[],"seqNum":"1","prevSeqNum":0,"symbol":"BTCPFC","timestamp":1}}`,
			expected: ErrInvalidFrame,
		},
		{
			name:     "MissingData",
			payload:  `{"topic":"update:BTCPFC"}`,
			expected: ErrInvalidFrame,
		},
	}

	api := newTestAPI()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := api.DecodeOrderBook([]byte(tt.payload))
			assert.Nil(t, msg)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestStreamAPI_DecodeTrades(t *testing.T) {
	api := newTestAPI()

	msg, err := api.DecodeTrades([]byte(`{
		"topic": "tradeHistoryApi",
		"data": [
			{"symbol": "BTCPFC", "side": "BUY", "size": 0.25, "price": 68001.5, "tradeId": 2, "timestamp": 1700000000002},
			{"symbol": "BTCPFC", "side": "SELL", "size": 1, "price": 68000, "tradeId": 1, "timestamp": 1700000000001}
		]
	}`))
	require.NoError(t, err)
	require.Len(t, msg.Trades, 2)

	first := msg.Trades[0]
	assert.Equal(t, domain.TradeSide_Buy, first.Side)
	assert.Equal(t, "68001.5", first.Price.String())
	assert.Equal(t, "0.25", first.Size.String())
	assert.Equal(t, int64(2), first.TradeID)
	assert.Equal(t, domain.TradeSide_Sell, msg.Trades[1].Side)
}

func TestStreamAPI_DecodeTrades_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected error
	}{
		{
			name:     "SymbolScopedTopic",
			payload:  `{"topic":"tradeHistoryApi:BTCPFC","data":[]}`,
			expected: ErrUnexpectedTopic,
		},
		{
			name:     "UnknownSide",
			payload:  `{"topic":"tradeHistoryApi","data":[{"symbol":"BTCPFC","side":"HOLD","size":1,"price":1,"tradeId":1,"timestamp":1}]}`,
			expected: ErrInvalidFrame,
		},
		{
			name:     "MissingPrice",
			payload:  `{"topic":"tradeHistoryApi","data":[{"symbol":"BTCPFC","side":"BUY","size":1,"tradeId":1,"timestamp":1}]}`,
			expected: ErrInvalidFrame,
		},
		{
			name:     "DataIsNotAList",
			payload:  `{"topic":"tradeHistoryApi","data":{"price":1}}`,
			expected: ErrInvalidFrame,
		},
		{
			name:     "NullData",
			payload:  `{"topic":"tradeHistoryApi","data":null}`,
			expected: ErrInvalidFrame,
		},
	}

	api := newTestAPI()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := api.DecodeTrades([]byte(tt.payload))
			assert.Nil(t, msg)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestStreamAPI_DecodeTrades_EmptyList(t *testing.T) {
	msg, err := newTestAPI().DecodeTrades([]byte(`{"topic":"tradeHistoryApi","data":[]}`))
	require.NoError(t, err)
	assert.Empty(t, msg.Trades)
}

func TestForward_DropsInvalidFramesAndKeepsOrder(t *testing.T) {
	api := newTestAPI()
	frames := make(chan Frame, 4)
	out := make(chan domain.StreamEvent[*domain.BookMessage])
	stop := make(chan struct{})

	frames <- Frame{Reconnected: true}
	frames <- Frame{Payload: []byte(`{"event":"subscribe"}`)}
	frames <- Frame{Payload: []byte(`{"topic":"update:BTCPFC","data":{"type":"snapshot","bids":[["1","1"]],"asks":[],"seqNum":5,"prevSeqNum":0,"symbol":"BTCPFC","timestamp":1}}`)}
	close(frames)

	go forward(frames, out, stop, Feed_OrderBook, api.DecodeOrderBook)

	var events []domain.StreamEvent[*domain.BookMessage]
	for event := range out {
		events = append(events, event)
	}

	require.Len(t, events, 2)
	assert.True(t, events[0].Reconnected)
	assert.Nil(t, events[0].Message)
	assert.False(t, events[1].Reconnected)
	assert.Equal(t, int64(5), events[1].Message.SeqNum)
}
