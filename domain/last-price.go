package domain

import "github.com/shopspring/decimal"

type PriceDirection string

const (
	PriceDirection_Up   PriceDirection = "up"
	PriceDirection_Down PriceDirection = "down"
	PriceDirection_Same PriceDirection = "same"
	// no previous price to compare with
	PriceDirection_Absent PriceDirection = ""
)

// LastPriceTracker keeps the last traded price and the direction of the
// latest move. It is fed by the trade stream only and never touches the book.
type LastPriceTracker struct {
	price     decimal.Decimal
	hasPrice  bool
	direction PriceDirection
}

func NewLastPriceTracker() *LastPriceTracker {
	return &LastPriceTracker{}
}

// Observe takes the most recent trade of msg and returns the new last price
// together with its direction relative to the previously observed price.
// ok is false when msg carries no trades.
func (t *LastPriceTracker) Observe(msg *TradeMessage) (price decimal.Decimal, direction PriceDirection, ok bool) {
	if msg == nil || len(msg.Trades) == 0 {
		return decimal.Zero, PriceDirection_Absent, false
	}

	price = msg.Trades[0].Price
	direction = PriceDirection_Absent

	if t.hasPrice {
		switch price.Cmp(t.price) {
		case 1:
			direction = PriceDirection_Up
		case -1:
			direction = PriceDirection_Down
		default:
			direction = PriceDirection_Same
		}
	}

	t.price = price
	t.hasPrice = true
	t.direction = direction
	return price, direction, true
}

// Last returns the last observed price and direction.
func (t *LastPriceTracker) Last() (decimal.Decimal, PriceDirection, bool) {
	return t.price, t.direction, t.hasPrice
}
