package rpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/spooky-finn/orderbook-view/domain"
	"github.com/spooky-finn/orderbook-view/usecase"
	"github.com/spooky-finn/orderbook-view/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func levels(pairs ...string) []domain.PriceLevel {
	result := make([]domain.PriceLevel, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		result = append(result, domain.NewPriceLevel(pairs[i], pairs[i+1]))
	}
	return result
}

func newTestClient(t *testing.T, orderBookView *usecase.OrderBookViewUseCase) *Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())

	srv := NewServer(orderBookView, &ValidationServiceConfig{
		AvailableMarkets: []string{"BTCPFC"},
		VisibleDepth:     2,
	})
	done := make(chan error, 1)
	go func() { done <- serve(ctx, lis, srv) }()

	conn, err := grpc.DialContext(ctx, "bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("grpc server did not stop")
		}
	})

	return NewClient(conn)
}

func newFilledView(t *testing.T) *usecase.OrderBookViewUseCase {
	t.Helper()

	u := usecase.NewOrderBookViewUseCase("BTCPFC", view.NewHighlightScheduler(nil, time.Hour))
	t.Cleanup(u.Close)

	require.NoError(t, u.ApplyBookMessage(domain.NewSnapshotMessage(
		levels("100", "1", "99", "2", "98", "3"),
		levels("101", "1", "102", "1", "103", "1"),
		42,
	)))
	require.NoError(t, u.ApplyBookMessage(domain.NewDeltaMessage(levels("100", "4"), nil, 42, 43)))

	return u
}

func request(t *testing.T, fields map[string]interface{}) *structpb.Struct {
	t.Helper()

	in, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return in
}

func prices(list *structpb.ListValue) []string {
	result := make([]string, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		result = append(result, item.GetStructValue().GetFields()["price"].GetStringValue())
	}
	return result
}

func TestServer_GetOrderBook(t *testing.T) {
	client := newTestClient(t, newFilledView(t))

	out, err := client.GetOrderBook(context.Background(), request(t, map[string]interface{}{"market": "BTCPFC"}))
	require.NoError(t, err)

	fields := out.GetFields()
	assert.Equal(t, "BTCPFC", fields["symbol"].GetStringValue())
	assert.Equal(t, string(domain.OrderBookStatus_Ok), fields["status"].GetStringValue())
	assert.Equal(t, 43.0, fields["seqNum"].GetNumberValue())

	bids := fields["bids"].GetListValue()
	asks := fields["asks"].GetListValue()
	assert.Equal(t, []string{"100", "99"}, prices(bids), "bids keep the best levels")
	assert.Equal(t, []string{"102", "101"}, prices(asks), "asks keep the levels nearest the best ask")

	best := bids.GetValues()[0].GetStructValue().GetFields()
	assert.Equal(t, "4", best["size"].GetStringValue())
	assert.Equal(t, "4", best["total"].GetStringValue())
	assert.Equal(t, string(view.Tag_SizeUp), best["cell"].GetStringValue())
	assert.Equal(t, string(view.Tag_NewBid), best["row"].GetStringValue())

	_, isNull := fields["lastPrice"].GetKind().(*structpb.Value_NullValue)
	assert.True(t, isNull)
}

func TestServer_GetOrderBook_MaxDepth(t *testing.T) {
	client := newTestClient(t, newFilledView(t))

	out, err := client.GetOrderBook(context.Background(), request(t, map[string]interface{}{"market": "btcpfc", "maxDepth": 1}))
	require.NoError(t, err)

	assert.Equal(t, []string{"100"}, prices(out.GetFields()["bids"].GetListValue()))
	assert.Equal(t, []string{"101"}, prices(out.GetFields()["asks"].GetListValue()))

	out, err = client.GetOrderBook(context.Background(), request(t, map[string]interface{}{"market": "BTCPFC", "maxDepth": 50}))
	require.NoError(t, err)
	assert.Len(t, out.GetFields()["bids"].GetListValue().GetValues(), 2, "capped at the visible depth")
}

func TestServer_GetOrderBookSnapshot(t *testing.T) {
	client := newTestClient(t, newFilledView(t))

	out, err := client.GetOrderBookSnapshot(context.Background(), request(t, map[string]interface{}{"market": "BTCPFC", "maxDepth": 2}))
	require.NoError(t, err)

	fields := out.GetFields()
	assert.Equal(t, 43.0, fields["lastSeqNum"].GetNumberValue())

	asks := fields["asks"].GetListValue().GetValues()
	require.Len(t, asks, 2)
	assert.Equal(t, "101", asks[0].GetListValue().GetValues()[0].GetStringValue())
	assert.Equal(t, "102", asks[1].GetListValue().GetValues()[0].GetStringValue())
}

func TestServer_RejectsInvalidRequests(t *testing.T) {
	client := newTestClient(t, newFilledView(t))

	tests := []struct {
		name   string
		fields map[string]interface{}
	}{
		{name: "UnknownMarket", fields: map[string]interface{}{"market": "ETHPFC"}},
		{name: "MissingMarket", fields: map[string]interface{}{}},
		{name: "NegativeDepth", fields: map[string]interface{}{"market": "BTCPFC", "maxDepth": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.GetOrderBook(context.Background(), request(t, tt.fields))
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
		})
	}
}
