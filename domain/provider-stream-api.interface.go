package domain

type Subscription[T any] struct {
	Stream      chan T
	Unsubscribe func()
	Topic       string
}

// ProviderStreamAPI is the transport side of a venue: decoded, validated
// order book and trade streams, and a way to force a fresh subscription.
type ProviderStreamAPI interface {
	OrderBookStream() (*Subscription[StreamEvent[*BookMessage]], error)
	TradeStream() (*Subscription[StreamEvent[*TradeMessage]], error)
	// tear down the order book connection and subscribe again, which yields a new snapshot
	ResubscribeOrderBook() error
	Close() error
}
