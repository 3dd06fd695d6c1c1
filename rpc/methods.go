package rpc

import (
	"context"

	"github.com/spooky-finn/orderbook-view/domain"
	"github.com/spooky-finn/orderbook-view/usecase"
	"github.com/spooky-finn/orderbook-view/view"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type orderBookRequest struct {
	Market   string
	MaxDepth int
}

func (s *server) parseRequest(in *structpb.Struct) (*orderBookRequest, error) {
	fields := in.GetFields()

	market := fields["market"].GetStringValue()
	if !s.validationService.IsSupportedMarket(market) {
		return nil, status.Errorf(codes.InvalidArgument, "market %q is not supported", market)
	}

	maxDepth := fields["maxDepth"].GetNumberValue()
	if maxDepth < 0 {
		return nil, status.Errorf(codes.InvalidArgument, "maxDepth must not be negative, got %v", maxDepth)
	}

	return &orderBookRequest{
		Market:   market,
		MaxDepth: s.validationService.Depth(int(maxDepth)),
	}, nil
}

// GetOrderBook returns the render-ready view, at most maxDepth levels per side
// nearest the best price, with the highlights active at the time of the call.
func (s *server) GetOrderBook(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := s.parseRequest(in)
	if err != nil {
		return nil, err
	}

	v := s.orderBookView.View()
	bids, asks := visibleLevels(v.Bids, v.Asks, req.MaxDepth)

	result := map[string]interface{}{
		"symbol":    v.Symbol,
		"status":    string(v.Status),
		"seqNum":    v.SeqNum,
		"bids":      displayLevels(bids, v),
		"asks":      displayLevels(asks, v),
		"lastPrice": nil,
		"direction": string(v.Direction),
	}
	if v.HasLastPrice {
		result["lastPrice"] = v.LastPrice.String()
	}

	out, err := structpb.NewStruct(result)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode order book: %v", err)
	}
	return out, nil
}

// GetOrderBookSnapshot returns the raw book without view annotations. Asks
// are lowest price first.
func (s *server) GetOrderBookSnapshot(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := s.parseRequest(in)
	if err != nil {
		return nil, err
	}

	snapshot := s.orderBookView.Snapshot(req.MaxDepth)

	out, err := structpb.NewStruct(map[string]interface{}{
		"symbol":     snapshot.Symbol,
		"status":     snapshot.Status,
		"lastSeqNum": snapshot.LastSeqNum,
		"bids":       tuples(snapshot.Bids),
		"asks":       tuples(snapshot.Asks),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode order book snapshot: %v", err)
	}
	return out, nil
}

// visibleLevels keeps the depth levels nearest the best price of each side.
// Both sides are descending, so bids are cut from the head and asks from the
// tail.
func visibleLevels(bids []view.DisplayLevel, asks []view.DisplayLevel, depth int) ([]view.DisplayLevel, []view.DisplayLevel) {
	if len(bids) > depth {
		bids = bids[:depth]
	}
	if len(asks) > depth {
		asks = asks[len(asks)-depth:]
	}
	return bids, asks
}

func displayLevels(levels []view.DisplayLevel, v usecase.OrderBookView) []interface{} {
	result := make([]interface{}, 0, len(levels))
	for _, level := range levels {
		item := map[string]interface{}{
			"price": level.Price,
			"size":  level.Size,
			"total": level.CumulativeTotal.String(),
			"depth": level.DepthPercent,
		}
		if tag, ok := v.RowHighlights[level.Price]; ok {
			item["row"] = string(tag)
		}
		if tag, ok := v.CellHighlights[level.Price]; ok {
			item["cell"] = string(tag)
		}
		result = append(result, item)
	}

	return result
}

func tuples(levels []domain.PriceLevel) []interface{} {
	result := make([]interface{}, 0, len(levels))
	for _, level := range levels {
		result = append(result, []interface{}{level.Price, level.Size})
	}

	return result
}
