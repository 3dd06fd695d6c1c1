package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type Side string

const (
	Side_Bid Side = "bid"
	Side_Ask Side = "ask"
)

var ErrInvalidPriceLevel = errors.New("invalid price level")

// PriceLevel is a single [price, size] quote as it arrives on the wire.
// Price is the identity of the level within a side, size "0" means removal.
type PriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

func NewPriceLevel(price string, size string) PriceLevel {
	return PriceLevel{Price: price, Size: size}
}

// SizeDecimal returns the parsed size. Levels read back from a ledger are
// always parseable; an unparseable size reads as zero.
func (l PriceLevel) SizeDecimal() decimal.Decimal {
	size, err := decimal.NewFromString(l.Size)
	if err != nil {
		return decimal.Zero
	}
	return size
}

// PriceDecimal returns the parsed price, zero if unparseable.
func (l PriceLevel) PriceDecimal() decimal.Decimal {
	price, err := decimal.NewFromString(l.Price)
	if err != nil {
		return decimal.Zero
	}
	return price
}

type parsedLevel struct {
	price decimal.Decimal
	size  decimal.Decimal
	level PriceLevel
}

func parseLevel(level PriceLevel) (parsedLevel, error) {
	price, err := decimal.NewFromString(level.Price)
	if err != nil {
		return parsedLevel{}, fmt.Errorf("%w: price %q: %s", ErrInvalidPriceLevel, level.Price, err)
	}
	size, err := decimal.NewFromString(level.Size)
	if err != nil {
		return parsedLevel{}, fmt.Errorf("%w: size %q: %s", ErrInvalidPriceLevel, level.Size, err)
	}
	if size.IsNegative() {
		return parsedLevel{}, fmt.Errorf("%w: negative size %q at price %q", ErrInvalidPriceLevel, level.Size, level.Price)
	}

	return parsedLevel{price: price, size: size, level: level}, nil
}

func parsePriceLevels(levels []PriceLevel) ([]parsedLevel, error) {
	result := make([]parsedLevel, len(levels))
	for i, level := range levels {
		parsed, err := parseLevel(level)
		if err != nil {
			return nil, err
		}
		result[i] = parsed
	}

	return result, nil
}

// PriceLevelsFromTuples converts wire tuples ([][]string{{price, size}})
// into price levels. Tuples must already have exactly two elements.
func PriceLevelsFromTuples(tuples [][]string) []PriceLevel {
	result := make([]PriceLevel, 0, len(tuples))
	for _, tuple := range tuples {
		if len(tuple) < 2 {
			continue
		}
		result = append(result, PriceLevel{Price: tuple[0], Size: tuple[1]})
	}

	return result
}

// LimitDepth returns at most limit levels from the head of depth.
// A non-positive limit returns depth unchanged.
func LimitDepth(depth []PriceLevel, limit int) []PriceLevel {
	if limit > 0 && len(depth) > limit {
		return depth[:limit]
	}

	return depth
}
