package view

import (
	"github.com/shopspring/decimal"
	"github.com/spooky-finn/orderbook-view/domain"
)

type Tag string

const (
	Tag_NewBid   Tag = "new-bid"
	Tag_NewAsk   Tag = "new-ask"
	Tag_SizeUp   Tag = "size-up"
	Tag_SizeDown Tag = "size-down"
)

// ChangeSet maps prices to highlight tags. Rows carries newly appeared
// levels, Cells carries size changes of levels that already existed.
type ChangeSet struct {
	Rows  map[string]Tag
	Cells map[string]Tag
	// prices tagged on both sides in the same map; the bid tag was kept
	Collisions []string
}

func (c ChangeSet) IsEmpty() bool {
	return len(c.Rows) == 0 && len(c.Cells) == 0
}

// Classify compares the current book with the previous one. Removed levels
// produce no tag, unchanged levels produce no tag.
func Classify(currentBids, currentAsks, prevBids, prevAsks []domain.PriceLevel) ChangeSet {
	result := ChangeSet{
		Rows:  make(map[string]Tag),
		Cells: make(map[string]Tag),
	}

	bidRows, bidCells := classifySide(currentBids, prevBids, Tag_NewBid)
	askRows, askCells := classifySide(currentAsks, prevAsks, Tag_NewAsk)

	for price, tag := range bidRows {
		result.Rows[price] = tag
	}
	for price, tag := range bidCells {
		result.Cells[price] = tag
	}

	for price, tag := range askRows {
		if _, taken := result.Rows[price]; taken {
			result.Collisions = append(result.Collisions, price)
			continue
		}
		result.Rows[price] = tag
	}
	for price, tag := range askCells {
		if _, taken := result.Cells[price]; taken {
			result.Collisions = append(result.Collisions, price)
			continue
		}
		result.Cells[price] = tag
	}

	return result
}

func classifySide(current, prev []domain.PriceLevel, newTag Tag) (rows map[string]Tag, cells map[string]Tag) {
	rows = make(map[string]Tag)
	cells = make(map[string]Tag)
	prevSizes := sizeByPrice(prev)

	for key, curr := range sizeByPrice(current) {
		before, existed := prevSizes[key]
		if !existed {
			rows[curr.price] = newTag
			continue
		}

		switch curr.size.Cmp(before.size) {
		case 1:
			cells[curr.price] = Tag_SizeUp
		case -1:
			cells[curr.price] = Tag_SizeDown
		}
	}

	return rows, cells
}

type pricedSize struct {
	// price as rendered in the current view
	price string
	size  decimal.Decimal
}

// sizeByPrice keys levels by numeric price, so "100" and "100.0" match.
func sizeByPrice(depth []domain.PriceLevel) map[string]pricedSize {
	result := make(map[string]pricedSize, len(depth))
	for _, level := range depth {
		result[level.PriceDecimal().String()] = pricedSize{price: level.Price, size: level.SizeDecimal()}
	}

	return result
}
