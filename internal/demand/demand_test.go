package demand

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizhanchik/taxidispatch/internal/hexgrid"
	"github.com/bizhanchik/taxidispatch/internal/store"
	"github.com/bizhanchik/taxidispatch/model"
)

var center = model.Location{Lat: 51.111339, Lng: 71.415581}

func newAggregator(t *testing.T) *Aggregator {
	g, err := hexgrid.New(center, 7)
	require.NoError(t, err)
	return New(g)
}

func TestRecountIsIdempotent(t *testing.T) {
	a := newAggregator(t)
	s := store.New()
	s.SeedTaxis([]*model.Taxi{{ID: "t0", Status: model.TaxiFree, Location: center}})
	s.AddOrder(&model.Order{ID: "o0", Status: model.OrderPending, Pickup: center})

	snap := s.Snapshot()
	a.Recount(snap)
	first := cloneCounts(a.All())

	a.Recount(snap)
	second := cloneCounts(a.All())

	assert.Equal(t, first, second)
}

func TestEmptyCellLabelsNoDemand(t *testing.T) {
	ratio, color, level := deriveLabel(0, 0)
	assert.Equal(t, float64(0), ratio)
	assert.Equal(t, "#F0F0F0", color)
	assert.Equal(t, model.DemandNone, level)
}

func TestSupplyOnlyCell(t *testing.T) {
	ratio, color, level := deriveLabel(0, 3)
	assert.Equal(t, float64(0), ratio)
	assert.Equal(t, "#90EE90", color)
	assert.Equal(t, model.DemandSupplyOnly, level)
}

func TestUnmetDemandCellIsInfinite(t *testing.T) {
	ratio, color, level := deriveLabel(3, 0)
	assert.True(t, math.IsInf(ratio, 1))
	assert.Equal(t, "#FF4500", color)
	assert.Equal(t, model.DemandUnmet, level)
}

func TestRatioBands(t *testing.T) {
	cases := []struct {
		orders, taxis int
		level         model.DemandLevel
	}{
		{1, 10, model.DemandLow},
		{1, 2, model.DemandModerate},
		{3, 2, model.DemandHigh},
		{5, 1, model.DemandVeryHigh},
	}
	for _, c := range cases {
		_, _, level := deriveLabel(c.orders, c.taxis)
		assert.Equal(t, c.level, level)
	}
}

func cloneCounts(hexes []*model.Hexagon) map[string][2]int {
	out := make(map[string][2]int, len(hexes))
	for _, h := range hexes {
		out[h.HexID] = [2]int{h.OrdersCount, h.TaxisCount}
	}
	return out
}
