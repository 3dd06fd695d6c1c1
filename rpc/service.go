package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "orderbookview.v1.OrderBookViewService"

const (
	getOrderBookMethod         = "/" + ServiceName + "/GetOrderBook"
	getOrderBookSnapshotMethod = "/" + ServiceName + "/GetOrderBookSnapshot"
)

// OrderBookViewServer is the server API of the order book view service.
// Requests and responses are google.protobuf.Struct messages:
//
//	request:  {"market": "BTCPFC", "maxDepth": 8}
type OrderBookViewServer interface {
	GetOrderBook(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetOrderBookSnapshot(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrderBookViewServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetOrderBook",
			Handler: unaryHandler(getOrderBookMethod, func(srv OrderBookViewServer) func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
				return srv.GetOrderBook
			}),
		},
		{
			MethodName: "GetOrderBookSnapshot",
			Handler: unaryHandler(getOrderBookSnapshotMethod, func(srv OrderBookViewServer) func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
				return srv.GetOrderBookSnapshot
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "orderbookview/v1/service.proto",
}

type handlerFunc = func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error)

func unaryHandler(fullMethod string, method func(OrderBookViewServer) func(context.Context, *structpb.Struct) (*structpb.Struct, error)) handlerFunc {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}

		call := method(srv.(OrderBookViewServer))
		if interceptor == nil {
			return call(ctx, in)
		}

		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func RegisterOrderBookViewServer(s grpc.ServiceRegistrar, srv OrderBookViewServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) GetOrderBook(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getOrderBookMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetOrderBookSnapshot(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getOrderBookSnapshotMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
