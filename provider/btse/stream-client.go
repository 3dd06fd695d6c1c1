package btse

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/recws-org/recws"
	"github.com/sirupsen/logrus"
	"github.com/spooky-finn/orderbook-view/config"
	"github.com/spooky-finn/orderbook-view/helpers"
	promclient "github.com/spooky-finn/orderbook-view/infrastructure/prometheus"
)

var logger = logrus.WithField("component", "btse")

var ErrInvalidEndpoint = errors.New("endpoint must be a ws or wss url")

const (
	defaultHandshakeTimeout = 5 * time.Second
	defaultKeepAliveTimeout = time.Minute * 9
	// backoff of the reader while recws is redialing
	notConnectedDelay = 50 * time.Millisecond
)

type SubscribeRequest struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

// Frame is one unit handed from the socket to the consumer: a raw message,
// or the marker of a fresh (re)subscription.
type Frame struct {
	Reconnected bool
	Payload     []byte
}

type StreamClientConfig struct {
	// feed label used in logs and metrics
	Feed             string
	Endpoint         string
	Topic            string
	HandshakeTimeout time.Duration
	KeepAliveTimeout time.Duration
}

// StreamClient owns one reconnecting websocket subscribed to a single topic.
//
// The socket is read on its own goroutine into an unbounded queue, so a slow
// consumer never stalls the reader. Every successful dial, including the ones
// recws performs after a failure, pushes a reconnect marker and sends the
// subscribe request again.
type StreamClient struct {
	cfg  StreamClientConfig
	conn *recws.RecConn

	inbox  deque.Deque[Frame]
	mu     sync.Mutex
	signal chan struct{}
	out    chan Frame

	done      chan struct{}
	closeOnce sync.Once
	started   bool

	// set by Resubscribe until the reader sees the socket go down
	reconnectMx   sync.Mutex
	resubscribing bool
}

func NewStreamClient(cfg StreamClientConfig) *StreamClient {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if cfg.KeepAliveTimeout == 0 {
		cfg.KeepAliveTimeout = defaultKeepAliveTimeout
	}

	return &StreamClient{
		cfg:    cfg,
		inbox:  deque.Deque[Frame]{},
		signal: make(chan struct{}, 1),
		out:    make(chan Frame),
		done:   make(chan struct{}),
	}
}

// Connect dials the endpoint and starts the reader. recws keeps redialing in
// the background when the first attempt fails.
func (c *StreamClient) Connect() error {
	endpoint, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return fmt.Errorf("%s: %w", c.cfg.Feed, err)
	}
	if endpoint.Scheme != "ws" && endpoint.Scheme != "wss" {
		return fmt.Errorf("%s: %w: %s", c.cfg.Feed, ErrInvalidEndpoint, c.cfg.Endpoint)
	}

	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.mu.Unlock()

	conn := &recws.RecConn{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.cfg.HandshakeTimeout,
		KeepAliveTimeout: c.cfg.KeepAliveTimeout,
		NonVerbose:       !config.DebugMode,
	}
	conn.SubscribeHandler = c.onConnect
	c.conn = conn

	go c.pump()
	conn.Dial(c.cfg.Endpoint, nil)

	go c.read()
	return nil
}

// Frames is the single consumer side of the client.
func (c *StreamClient) Frames() <-chan Frame {
	return c.out
}

// Resubscribe drops the current socket so that the venue sends a new
// snapshot after the redial. A reader blocked on the socket makes recws
// redial by itself; otherwise the reader redials on its next pass. Either
// way onConnect subscribes again.
func (c *StreamClient) Resubscribe() error {
	c.reconnectMx.Lock()
	defer c.reconnectMx.Unlock()

	if c.conn == nil || !c.conn.IsConnected() {
		// a redial is already in flight and will subscribe on its own
		return nil
	}

	logger.Infof("%s: resubscribing to %s", c.cfg.Feed, c.cfg.Topic)
	c.resubscribing = true
	c.conn.Close()
	return nil
}

// redialPending runs when the reader finds the socket down. It redials only if
// Resubscribe closed the socket and recws did not pick it up.
func (c *StreamClient) redialPending() {
	c.reconnectMx.Lock()
	defer c.reconnectMx.Unlock()

	if !c.resubscribing {
		return
	}
	c.resubscribing = false

	select {
	case <-c.done:
		return
	default:
	}
	c.conn.CloseAndReconnect()
}

// readFailed runs after a failed read; recws is redialing already.
func (c *StreamClient) readFailed() {
	c.reconnectMx.Lock()
	defer c.reconnectMx.Unlock()

	c.resubscribing = false
}

func (c *StreamClient) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})

	return nil
}

func (c *StreamClient) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// onConnect must not return an error: recws exits the process on one.
func (c *StreamClient) onConnect() error {
	select {
	case <-c.done:
		c.conn.Close()
		return nil
	default:
	}

	c.push(Frame{Reconnected: true})
	promclient.ReconnectCounter.WithLabelValues(c.cfg.Feed).Inc()

	req := SubscribeRequest{Op: "subscribe", Args: []string{c.cfg.Topic}}
	if err := c.conn.WriteJSON(req); err != nil {
		logger.Warnf("%s: failed to send subscribe msg for topic=%s: %v", c.cfg.Feed, c.cfg.Topic, err)
		return nil
	}

	logger.Infof("%s: subscribed to %s on %s", c.cfg.Feed, c.cfg.Topic, c.cfg.Endpoint)
	return nil
}

func (c *StreamClient) read() {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, recws.ErrNotConnected) {
				c.redialPending()
				time.Sleep(notConnectedDelay)
				continue
			}
			c.readFailed()

			if config.DebugMode {
				logger.Debugf("%s: error while reading from connection: %v", c.cfg.Feed, err)
			}
			continue
		}

		if config.DebugMode {
			logger.Debugf("%s: frame %s", c.cfg.Feed, helpers.Truncate(string(msg), 256))
		}
		c.push(Frame{Payload: msg})
	}
}

func (c *StreamClient) push(f Frame) {
	c.mu.Lock()
	c.inbox.PushBack(f)
	c.mu.Unlock()

	select {
	case c.signal <- struct{}{}:
	default:
	}
}

// pump drains the inbox into out in arrival order.
func (c *StreamClient) pump() {
	defer close(c.out)

	for {
		c.mu.Lock()
		if c.inbox.Len() == 0 {
			c.mu.Unlock()

			select {
			case <-c.done:
				return
			case <-c.signal:
				continue
			}
		}
		f := c.inbox.PopFront()
		c.mu.Unlock()

		select {
		case <-c.done:
			return
		case c.out <- f:
		}
	}
}
