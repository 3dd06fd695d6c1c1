package rpc

import (
	"context"
	"errors"
	"net"

	"github.com/sirupsen/logrus"
	"github.com/spooky-finn/orderbook-view/usecase"
	"google.golang.org/grpc"
)

var logger = logrus.WithField("component", "rpc")

type server struct {
	orderBookView     *usecase.OrderBookViewUseCase
	validationService *ValidationService
}

func NewServer(orderBookView *usecase.OrderBookViewUseCase, conf *ValidationServiceConfig) *server {
	return &server{
		orderBookView:     orderBookView,
		validationService: NewValidationService(conf),
	}
}

// Serve registers srv on a new grpc server listening on addr and blocks
// until ctx is done.
func Serve(ctx context.Context, addr string, srv OrderBookViewServer) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	return serve(ctx, lis, srv)
}

func serve(ctx context.Context, lis net.Listener, srv OrderBookViewServer) error {
	s := grpc.NewServer(grpc.UnaryInterceptor(logUnaryErrors))
	RegisterOrderBookViewServer(s, srv)

	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	logger.Infof("grpc server listening at %v", lis.Addr())
	if err := s.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}

	return nil
}

func logUnaryErrors(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	resp, err := handler(ctx, req)
	if err != nil {
		logger.Warnf("%s: %v", info.FullMethod, err)
	}
	return resp, err
}
