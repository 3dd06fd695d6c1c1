package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spooky-finn/orderbook-view/config"
	"github.com/spooky-finn/orderbook-view/infrastructure/logger"
	promclient "github.com/spooky-finn/orderbook-view/infrastructure/prometheus"
	"github.com/spooky-finn/orderbook-view/provider/btse"
	"github.com/spooky-finn/orderbook-view/rpc"
	"github.com/spooky-finn/orderbook-view/usecase"
	"github.com/spooky-finn/orderbook-view/view"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		logrus.Fatalf("orderbook-view: %v", err)
	}
}

func run() error {
	conf, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Configure(conf.LogLevel, conf.LogFormat, conf.Debug); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orderbookClient, tradeClient := btse.NewStreamClients(conf)
	streamAPI := btse.NewStreamAPI(conf.Symbol, orderbookClient, tradeClient)
	defer streamAPI.Close()

	scheduler := view.NewHighlightScheduler(view.RuntimeClock, conf.HighlightDwell)
	orderBookView := usecase.NewOrderBookViewUseCase(conf.Symbol, scheduler)
	maintainer := usecase.NewOrderBookMaintainer(streamAPI, orderBookView)

	rpcServer := rpc.NewServer(orderBookView, &rpc.ValidationServiceConfig{
		AvailableMarkets: []string{conf.Symbol},
		VisibleDepth:     conf.VisibleDepth,
	})

	logrus.Infof("starting order book view for %s", conf.Symbol)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return maintainer.Run(ctx)
	})
	g.Go(func() error {
		return rpc.Serve(ctx, conf.RpcAddr, rpcServer)
	})
	g.Go(func() error {
		return promclient.StartPromClientServer(ctx, conf.MetricsAddr)
	})

	return g.Wait()
}
