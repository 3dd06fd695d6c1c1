package view

import (
	"testing"

	"github.com/spooky-finn/orderbook-view/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func levels(pairs ...string) []domain.PriceLevel {
	result := make([]domain.PriceLevel, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		result = append(result, domain.NewPriceLevel(pairs[i], pairs[i+1]))
	}
	return result
}

func prices(depth []DisplayLevel) []string {
	result := make([]string, len(depth))
	for i, level := range depth {
		result[i] = level.Price
	}
	return result
}

func totals(depth []DisplayLevel) []string {
	result := make([]string, len(depth))
	for i, level := range depth {
		result[i] = level.CumulativeTotal.String()
	}
	return result
}

func TestAggregate_SingleLevelPerSide(t *testing.T) {
	bids, asks := Aggregate(levels("100", "2"), levels("101", "3"))

	require.Len(t, bids, 1)
	require.Len(t, asks, 1)
	assert.Equal(t, "2", bids[0].CumulativeTotal.String())
	assert.Equal(t, "3", asks[0].CumulativeTotal.String())
	assert.InDelta(t, 66.6666, bids[0].DepthPercent, 0.001)
	assert.Equal(t, 100.0, asks[0].DepthPercent)
}

func TestAggregate_CumulativeFromBestPrice(t *testing.T) {
	bids, asks := Aggregate(
		levels("100", "1", "99", "2.5", "98", "0.5"),
		levels("103", "4", "101", "1", "102", "2"),
	)

	assert.Equal(t, []string{"100", "99", "98"}, prices(bids))
	assert.Equal(t, []string{"1", "3.5", "4"}, totals(bids))

	assert.Equal(t, []string{"103", "102", "101"}, prices(asks), "asks come back highest first")
	assert.Equal(t, []string{"7", "3", "1"}, totals(asks), "best ask carries the smallest total")

	assert.Equal(t, 100.0, asks[0].DepthPercent, "deepest level of the larger side is 100")
	assert.InDelta(t, 4.0/7.0*100, bids[2].DepthPercent, 0.0001)
}

func TestAggregate_DepthMonotonicity(t *testing.T) {
	bids, asks := Aggregate(
		levels("10", "1", "9", "1", "8", "3", "7", "0.25"),
		levels("11", "0.5", "12", "0.5"),
	)

	for i := 1; i < len(bids); i++ {
		assert.True(t, bids[i].CumulativeTotal.GreaterThanOrEqual(bids[i-1].CumulativeTotal))
		assert.GreaterOrEqual(t, bids[i].DepthPercent, bids[i-1].DepthPercent)
	}
	// asks are descending by price, so distance from the best ask shrinks along the slice
	for i := 1; i < len(asks); i++ {
		assert.True(t, asks[i-1].CumulativeTotal.GreaterThanOrEqual(asks[i].CumulativeTotal))
	}

	for _, level := range append(bids, asks...) {
		assert.GreaterOrEqual(t, level.DepthPercent, 0.0)
		assert.LessOrEqual(t, level.DepthPercent, 100.0)
	}
	assert.Equal(t, 100.0, bids[len(bids)-1].DepthPercent)
}

func TestAggregate_EmptySides(t *testing.T) {
	bids, asks := Aggregate(nil, nil)
	assert.Empty(t, bids)
	assert.Empty(t, asks)

	bids, asks = Aggregate(levels("100", "2"), nil)
	assert.Empty(t, asks)
	assert.Equal(t, 100.0, bids[0].DepthPercent)
}

func TestAggregate_ZeroMaxTotal(t *testing.T) {
	bids, asks := Aggregate(levels("100", "0"), levels("101", "0"))

	assert.Equal(t, 0.0, bids[0].DepthPercent)
	assert.Equal(t, 0.0, asks[0].DepthPercent)
}

func TestAggregate_DoesNotMutateInput(t *testing.T) {
	asks := levels("103", "1", "101", "1", "102", "1")

	Aggregate(nil, asks)

	assert.Equal(t, levels("103", "1", "101", "1", "102", "1"), asks)
}
