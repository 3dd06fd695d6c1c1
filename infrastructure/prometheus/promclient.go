package promclient

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "promclient")

const namespace = "orderbook_view"

var BookMessagesCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "book_messages_total",
		Help:      "order book messages by type and outcome",
	},
	[]string{"type", "outcome"},
)

var ResyncCounter = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "resyncs_total",
		Help:      "order book resyncs caused by sequence gaps",
	},
)

var DroppedFramesCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dropped_frames_total",
		Help:      "frames dropped by the stream api",
	},
	[]string{"feed", "reason"},
)

var ReconnectCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconnects_total",
		Help:      "websocket (re)connects per feed",
	},
	[]string{"feed"},
)

var BookLevelsGauge = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "book_levels",
		Help:      "price levels per side of the local order book",
	},
	[]string{"side"},
)

var ActiveHighlightsGauge = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_highlights",
		Help:      "highlights currently shown per class",
	},
	[]string{"class"},
)

// NewRegistry returns a registry holding every collector of this package.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()

	reg.MustRegister(BookMessagesCounter)
	reg.MustRegister(ResyncCounter)
	reg.MustRegister(DroppedFramesCounter)
	reg.MustRegister(ReconnectCounter)
	reg.MustRegister(BookLevelsGauge)
	reg.MustRegister(ActiveHighlightsGauge)
	reg.MustRegister(collectors.NewGoCollector())

	return reg
}

// StartPromClientServer serves /metrics on addr until ctx is done.
func StartPromClientServer(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(NewRegistry(), promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Infof("prometheus server listening at %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
