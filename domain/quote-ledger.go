package domain

import (
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"
)

const ledgerDegree = 32

// QuoteLedger is the price -> size map of one side of the book.
//
// Levels are kept in a B-tree ordered by numeric price, highest first, for
// both sides, so every mutation costs O(log n) and the sorted view is always
// available without a re-sort. Two prices that are numerically equal
// ("100" and "100.0") are the same level; the latest write keeps its string.
type QuoteLedger struct {
	side   Side
	levels *btree.BTreeG[parsedLevel]
}

func NewQuoteLedger(side Side) *QuoteLedger {
	return &QuoteLedger{
		side:   side,
		levels: newLevelTree(),
	}
}

func newLevelTree() *btree.BTreeG[parsedLevel] {
	return btree.NewBTreeGOptions(byPriceDesc, btree.Options{Degree: ledgerDegree, NoLocks: true})
}

func byPriceDesc(a, b parsedLevel) bool {
	return a.price.GreaterThan(b.price)
}

func (l *QuoteLedger) Side() Side {
	return l.side
}

// Upsert inserts or replaces the level at level.Price. A zero size removes
// the price instead; removing an absent price is a no-op.
func (l *QuoteLedger) Upsert(level PriceLevel) error {
	parsed, err := parseLevel(level)
	if err != nil {
		return err
	}

	l.apply(parsed)
	return nil
}

// Delete removes price from the ledger and reports whether it was present.
func (l *QuoteLedger) Delete(price string) bool {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return false
	}

	_, ok := l.levels.Delete(parsedLevel{price: p})
	return ok
}

// Replace swaps the whole side for levels. Duplicate prices resolve to the
// last occurrence and zero sizes are skipped. On error the ledger is unchanged.
func (l *QuoteLedger) Replace(levels []PriceLevel) error {
	parsed, err := parsePriceLevels(levels)
	if err != nil {
		return err
	}

	l.replace(parsed)
	return nil
}

func (l *QuoteLedger) replace(levels []parsedLevel) {
	tree := newLevelTree()
	for _, level := range levels {
		if level.size.IsZero() {
			tree.Delete(level)
			continue
		}
		tree.Set(level)
	}

	l.levels = tree
}

func (l *QuoteLedger) applyAll(levels []parsedLevel) {
	for _, level := range levels {
		l.apply(level)
	}
}

func (l *QuoteLedger) apply(level parsedLevel) {
	if level.size.IsZero() {
		l.levels.Delete(level)
		return
	}

	l.levels.Set(level)
}

// Get returns the level stored at price.
func (l *QuoteLedger) Get(price string) (PriceLevel, bool) {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return PriceLevel{}, false
	}

	found, ok := l.levels.Get(parsedLevel{price: p})
	if !ok {
		return PriceLevel{}, false
	}
	return found.level, true
}

// Levels returns a copy of the side ordered by descending price.
func (l *QuoteLedger) Levels() []PriceLevel {
	result := make([]PriceLevel, 0, l.levels.Len())
	l.levels.Scan(func(item parsedLevel) bool {
		result = append(result, item.level)
		return true
	})

	return result
}

func (l *QuoteLedger) Len() int {
	return l.levels.Len()
}

func (l *QuoteLedger) Clear() {
	l.levels = newLevelTree()
}
