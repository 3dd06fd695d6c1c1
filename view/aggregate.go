// Package view derives the render-ready order book from the current book:
// depth annotation, change classification and the transient highlights
// built on top of it.
package view

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/spooky-finn/orderbook-view/domain"
)

var hundred = decimal.NewFromInt(100)

// DisplayLevel is a price level annotated for rendering.
type DisplayLevel struct {
	domain.PriceLevel
	// running size from the best price out to this level, inclusive
	CumulativeTotal decimal.Decimal `json:"total"`
	// CumulativeTotal as a share of the deepest side, in [0, 100]
	DepthPercent float64 `json:"depth"`
}

// Aggregate computes cumulative totals and depth percentages for both sides.
//
// bids must be ordered best (highest) first. asks may come in any order; they
// are accumulated from the lowest price and returned highest price first, so
// both slices share the descending order of the book. A single max total
// across both sides is used so bid and ask depth bars are comparable.
func Aggregate(bids []domain.PriceLevel, asks []domain.PriceLevel) (bidView []DisplayLevel, askView []DisplayLevel) {
	sortedAsks := make([]domain.PriceLevel, len(asks))
	copy(sortedAsks, asks)
	sort.SliceStable(sortedAsks, func(i, j int) bool {
		return sortedAsks[i].PriceDecimal().LessThan(sortedAsks[j].PriceDecimal())
	})

	bidView = withCumulativeTotals(bids)
	askView = withCumulativeTotals(sortedAsks)

	maxTotal := decimal.Max(lastTotal(bidView), lastTotal(askView))

	addDepth(bidView, maxTotal)
	addDepth(askView, maxTotal)

	for i, j := 0, len(askView)-1; i < j; i, j = i+1, j-1 {
		askView[i], askView[j] = askView[j], askView[i]
	}

	return bidView, askView
}

func withCumulativeTotals(depth []domain.PriceLevel) []DisplayLevel {
	result := make([]DisplayLevel, len(depth))
	total := decimal.Zero
	for i, level := range depth {
		total = total.Add(level.SizeDecimal())
		result[i] = DisplayLevel{PriceLevel: level, CumulativeTotal: total}
	}

	return result
}

func lastTotal(depth []DisplayLevel) decimal.Decimal {
	if len(depth) == 0 {
		return decimal.Zero
	}
	return depth[len(depth)-1].CumulativeTotal
}

func addDepth(depth []DisplayLevel, maxTotal decimal.Decimal) {
	if !maxTotal.IsPositive() {
		return
	}

	for i := range depth {
		depth[i].DepthPercent = depth[i].CumulativeTotal.Div(maxTotal).Mul(hundred).InexactFloat64()
	}
}
